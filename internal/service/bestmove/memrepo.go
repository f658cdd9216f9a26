package bestmove

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/park285/Cheese-bestmove/internal/domain"
)

// memrepo keeps the query log in process when no database is configured.
type memrepo struct {
	mu      sync.RWMutex
	nextID  int64
	queries []*domain.EngineQuery
	max     int
}

func NewMemoryRepository(max int) Repository {
	if max <= 0 {
		max = 1000
	}
	return &memrepo{max: max}
}

func (m *memrepo) RecordQuery(ctx context.Context, q *domain.EngineQuery) (int64, error) {
	if q == nil {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	copy := *q
	copy.ID = m.nextID
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = time.Now()
	}
	m.queries = append(m.queries, &copy)
	if len(m.queries) > m.max {
		m.queries = m.queries[len(m.queries)-m.max:]
	}
	return copy.ID, nil
}

func (m *memrepo) RecentQueries(ctx context.Context, limit int) ([]*domain.EngineQuery, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	m.mu.RLock()
	items := make([]*domain.EngineQuery, 0, len(m.queries))
	for _, q := range m.queries {
		copy := *q
		items = append(items, &copy)
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
