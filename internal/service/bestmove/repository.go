package bestmove

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/park285/Cheese-bestmove/internal/domain"
)

type Repository interface {
	RecordQuery(ctx context.Context, q *domain.EngineQuery) (int64, error)
	RecentQueries(ctx context.Context, limit int) ([]*domain.EngineQuery, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS engine_queries (
	id          BIGSERIAL PRIMARY KEY,
	request_id  TEXT NOT NULL UNIQUE,
	fen         TEXT NOT NULL,
	move_uci    TEXT NOT NULL DEFAULT '',
	move_san    TEXT NOT NULL DEFAULT '',
	cached      BOOLEAN NOT NULL DEFAULT FALSE,
	ready_ok    BOOLEAN NOT NULL DEFAULT FALSE,
	outcome     TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	engine_path TEXT NOT NULL DEFAULT '',
	latency_ms  BIGINT NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

type repository struct {
	db *sql.DB
}

// NewRepository returns a Postgres-backed query log. The caller opens db
// with the "postgres" driver.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// EnsureSchema creates the engine_queries table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create engine_queries: %w", err)
	}
	return nil
}

func (r *repository) RecordQuery(ctx context.Context, q *domain.EngineQuery) (int64, error) {
	if q == nil {
		return 0, fmt.Errorf("nil engine query")
	}
	createdAt := q.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	const query = `
		INSERT INTO engine_queries (
			request_id,
			fen,
			move_uci,
			move_san,
			cached,
			ready_ok,
			outcome,
			error,
			engine_path,
			latency_ms,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	var id int64
	err := r.db.QueryRowContext(
		ctx,
		query,
		q.RequestID,
		q.FEN,
		q.MoveUCI,
		q.MoveSAN,
		q.Cached,
		q.ReadyOK,
		q.Outcome,
		q.Error,
		q.EnginePath,
		q.Latency.Milliseconds(),
		createdAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert engine query: %w", err)
	}
	return id, nil
}

func (r *repository) RecentQueries(ctx context.Context, limit int) ([]*domain.EngineQuery, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	const query = `
		SELECT
			id,
			request_id,
			fen,
			move_uci,
			move_san,
			cached,
			ready_ok,
			outcome,
			error,
			engine_path,
			latency_ms,
			created_at
		FROM engine_queries
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query engine queries: %w", err)
	}
	defer rows.Close()

	var out []*domain.EngineQuery
	for rows.Next() {
		var (
			q         domain.EngineQuery
			latencyMS int64
		)
		if err := rows.Scan(
			&q.ID,
			&q.RequestID,
			&q.FEN,
			&q.MoveUCI,
			&q.MoveSAN,
			&q.Cached,
			&q.ReadyOK,
			&q.Outcome,
			&q.Error,
			&q.EnginePath,
			&latencyMS,
			&q.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan engine query: %w", err)
		}
		q.Latency = time.Duration(latencyMS) * time.Millisecond
		out = append(out, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate engine queries: %w", err)
	}
	return out, nil
}
