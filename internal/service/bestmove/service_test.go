package bestmove

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/Cheese-bestmove/internal/chess/uci"
	"github.com/park285/Cheese-bestmove/internal/domain"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type fakeSearcher struct {
	move  string
	err   error
	calls int
	fens  []string
}

func (f *fakeSearcher) Search(ctx context.Context, fen string) (uci.SearchResult, error) {
	f.calls++
	f.fens = append(f.fens, fen)
	if f.err != nil {
		return uci.SearchResult{EnginePath: "/fake/engine"}, f.err
	}
	return uci.SearchResult{BestMove: f.move, ReadyOK: true, EnginePath: "/fake/engine"}, nil
}

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb, err := NewRedisClient(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisCache(rdb, time.Hour), mr
}

func newTestService(t *testing.T, engine Searcher, cache Cache) (*Service, Repository) {
	t.Helper()
	repo := NewMemoryRepository(10)
	svc, err := NewService(engine, cache, repo, Config{Variant: "test"}, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, repo
}

func TestAnalyzeReturnsMoveAndSAN(t *testing.T) {
	engine := &fakeSearcher{move: "g1f3"}
	svc, repo := newTestService(t, engine, nil)

	got, err := svc.Analyze(context.Background(), Request{FEN: startFEN})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.MoveUCI != "g1f3" || got.MoveSAN != "Nf3" {
		t.Fatalf("unexpected move: uci=%q san=%q", got.MoveUCI, got.MoveSAN)
	}
	if got.Cached {
		t.Fatalf("first query must not be cached")
	}
	if got.RequestID == "" {
		t.Fatalf("expected request id")
	}

	recent, err := repo.RecentQueries(context.Background(), 5)
	if err != nil {
		t.Fatalf("RecentQueries: %v", err)
	}
	if len(recent) != 1 || recent[0].Outcome != domain.OutcomeOK || recent[0].MoveSAN != "Nf3" {
		t.Fatalf("unexpected query log: %+v", recent)
	}
	if recent[0].RequestID != got.RequestID {
		t.Fatalf("request id mismatch: %q vs %q", recent[0].RequestID, got.RequestID)
	}
}

func TestAnalyzeCacheHitSkipsEngine(t *testing.T) {
	cache, mr := newRedisCache(t)
	engine := &fakeSearcher{move: "e2e4"}
	svc, _ := newTestService(t, engine, cache)
	ctx := context.Background()

	first, err := svc.Analyze(ctx, Request{FEN: startFEN})
	if err != nil {
		t.Fatalf("Analyze#1: %v", err)
	}
	if first.Cached {
		t.Fatalf("first query must miss the cache")
	}
	if !mr.Exists(CacheKey("test", startFEN)) {
		t.Fatalf("expected cache entry to be written")
	}

	second, err := svc.Analyze(ctx, Request{FEN: "  " + startFEN + " "})
	if err != nil {
		t.Fatalf("Analyze#2: %v", err)
	}
	if !second.Cached || second.MoveUCI != "e2e4" || second.MoveSAN != "e4" {
		t.Fatalf("expected cached e2e4/e4, got %+v", second)
	}
	if engine.calls != 1 {
		t.Fatalf("engine called %d times, want 1", engine.calls)
	}
}

func TestAnalyzeCacheTTL(t *testing.T) {
	cache, mr := newRedisCache(t)
	engine := &fakeSearcher{move: "e2e4"}
	svc, _ := newTestService(t, engine, cache)
	ctx := context.Background()

	if _, err := svc.Analyze(ctx, Request{FEN: startFEN}); err != nil {
		t.Fatalf("Analyze#1: %v", err)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := svc.Analyze(ctx, Request{FEN: startFEN}); err != nil {
		t.Fatalf("Analyze#2: %v", err)
	}
	if engine.calls != 2 {
		t.Fatalf("expected expired entry to be recomputed, engine calls=%d", engine.calls)
	}
}

func TestAnalyzeInvalidFENNeverSearches(t *testing.T) {
	engine := &fakeSearcher{move: "e2e4"}
	svc, repo := newTestService(t, engine, nil)

	for _, fen := range []string{"", "not a fen", startFEN + "\nquit"} {
		_, err := svc.Analyze(context.Background(), Request{FEN: fen})
		if !errors.Is(err, ErrInvalidFEN) {
			t.Fatalf("fen %q: expected ErrInvalidFEN, got %v", fen, err)
		}
	}
	if engine.calls != 0 {
		t.Fatalf("engine must not run for invalid input, calls=%d", engine.calls)
	}
	recent, _ := repo.RecentQueries(context.Background(), 10)
	if len(recent) != 3 {
		t.Fatalf("expected 3 logged queries, got %d", len(recent))
	}
	for _, q := range recent {
		if q.Outcome != domain.OutcomeInvalidFEN {
			t.Fatalf("unexpected outcome %q", q.Outcome)
		}
	}
}

func TestAnalyzeRejectsIllegalMove(t *testing.T) {
	cache, mr := newRedisCache(t)
	engine := &fakeSearcher{move: "e2e5"}
	svc, repo := newTestService(t, engine, cache)

	_, err := svc.Analyze(context.Background(), Request{FEN: startFEN})
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("expected ErrIllegalMove, got %v", err)
	}
	if mr.Exists(CacheKey("test", startFEN)) {
		t.Fatalf("illegal move must not be cached")
	}
	recent, _ := repo.RecentQueries(context.Background(), 1)
	if len(recent) != 1 || recent[0].Outcome != domain.OutcomeIllegalMove {
		t.Fatalf("unexpected query log: %+v", recent)
	}
}

func TestAnalyzeNoneMove(t *testing.T) {
	// mated position, engines answer "bestmove (none)"
	mated := "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"
	svc, _ := newTestService(t, &fakeSearcher{move: "(none)"}, nil)

	_, err := svc.Analyze(context.Background(), Request{FEN: mated})
	if !errors.Is(err, ErrNoMove) {
		t.Fatalf("expected ErrNoMove, got %v", err)
	}
}

func TestAnalyzeMapsEngineErrors(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		want    error
		outcome string
	}{
		{"not found", fmt.Errorf("%w (tried x)", uci.ErrEngineNotFound), ErrEngineUnavailable, domain.OutcomeNotFound},
		{"spawn", &uci.SpawnError{Op: "start engine", Path: "/x", Err: errors.New("boom")}, ErrEngineUnavailable, domain.OutcomeNotFound},
		{"no move", fmt.Errorf("%w: %w", uci.ErrNoBestMove, uci.ErrProtocolTimeout), ErrNoMove, domain.OutcomeNoMove},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo := newTestService(t, &fakeSearcher{err: tc.err}, nil)
			_, err := svc.Analyze(context.Background(), Request{FEN: startFEN})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("cause lost: %v", err)
			}
			recent, _ := repo.RecentQueries(context.Background(), 1)
			if len(recent) != 1 || recent[0].Outcome != tc.outcome || recent[0].Error == "" {
				t.Fatalf("unexpected query log: %+v", recent)
			}
			if recent[0].EnginePath != "/fake/engine" {
				t.Fatalf("engine path not recorded: %q", recent[0].EnginePath)
			}
		})
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	svc, _ := newTestService(t, &fakeSearcher{move: "e2e4"}, nil)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.Analyze(ctx, Request{FEN: startFEN}); err != nil {
			t.Fatalf("Analyze#%d: %v", i, err)
		}
	}

	items, err := svc.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if !items[0].CreatedAt.After(items[1].CreatedAt) {
		t.Fatalf("expected newest first: %v, %v", items[0].CreatedAt, items[1].CreatedAt)
	}
}

func TestMemoryRepositoryCap(t *testing.T) {
	repo := NewMemoryRepository(2)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := repo.RecordQuery(ctx, &domain.EngineQuery{FEN: startFEN, Outcome: domain.OutcomeOK}); err != nil {
			t.Fatalf("RecordQuery: %v", err)
		}
	}
	items, _ := repo.RecentQueries(ctx, 10)
	if len(items) != 2 {
		t.Fatalf("expected cap of 2, got %d", len(items))
	}
	if items[0].ID != 5 || items[1].ID != 4 {
		t.Fatalf("expected ids 5,4 got %d,%d", items[0].ID, items[1].ID)
	}
}

func TestRedisCacheMissAndCorruptEntry(t *testing.T) {
	cache, mr := newRedisCache(t)
	ctx := context.Background()

	got, err := cache.Get(ctx, "bestmove:missing")
	if err != nil || got != nil {
		t.Fatalf("expected clean miss, got %+v err=%v", got, err)
	}

	if err := mr.Set("bestmove:bad", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := cache.Get(ctx, "bestmove:bad"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestCacheKeyDependsOnVariant(t *testing.T) {
	if CacheKey("a", startFEN) == CacheKey("b", startFEN) {
		t.Fatalf("variant must change the key")
	}
	if CacheKey("a", startFEN) != CacheKey("a", " "+startFEN) {
		t.Fatalf("surrounding whitespace must not change the key")
	}
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "http://nope"); err == nil {
		t.Fatalf("expected parse error")
	}
}
