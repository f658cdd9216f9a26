package bestmove

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/google/uuid"
	"github.com/park285/Cheese-bestmove/internal/chess/uci"
	"github.com/park285/Cheese-bestmove/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrInvalidFEN        = errors.New("invalid fen")
	ErrIllegalMove       = errors.New("engine returned an illegal move")
	ErrNoMove            = errors.New("engine produced no move")
	ErrEngineUnavailable = errors.New("chess engine unavailable")
)

const defaultRecentLimit = 20

// Searcher runs one engine query. *uci.Driver satisfies it.
type Searcher interface {
	Search(ctx context.Context, fen string) (uci.SearchResult, error)
}

type Config struct {
	// Variant identifies the engine settings in cache keys.
	Variant string
}

type Service struct {
	engine Searcher
	cache  Cache
	repo   Repository
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

type Request struct {
	FEN string
}

type Analysis struct {
	RequestID  string
	FEN        string
	MoveUCI    string
	MoveSAN    string
	Cached     bool
	ReadyOK    bool
	EnginePath string
	Duration   time.Duration
}

func NewService(engine Searcher, cache Cache, repo Repository, cfg Config, logger *zap.Logger) (*Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("nil engine")
	}
	if cache == nil {
		cache = NopCache()
	}
	if repo == nil {
		repo = NewMemoryRepository(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		engine: engine,
		cache:  cache,
		repo:   repo,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Analyze validates the position, serves a cached move when present and
// otherwise asks the engine. Every request is recorded in the query log.
func (s *Service) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	start := s.now()
	fen := strings.TrimSpace(req.FEN)
	out := &Analysis{RequestID: uuid.NewString(), FEN: fen}

	game, err := gameFromFEN(fen)
	if err != nil {
		s.record(ctx, out, start, domain.OutcomeInvalidFEN, err)
		return nil, err
	}

	key := CacheKey(s.cfg.Variant, fen)
	if cached, cerr := s.cache.Get(ctx, key); cerr != nil {
		s.logger.Warn("bestmove_cache_get_error", zap.String("request_id", out.RequestID), zap.Error(cerr))
	} else if cached != nil {
		out.MoveUCI = cached.MoveUCI
		out.MoveSAN = cached.MoveSAN
		out.Cached = true
		s.record(ctx, out, start, domain.OutcomeOK, nil)
		return out, nil
	}

	res, err := s.engine.Search(ctx, fen)
	out.ReadyOK = res.ReadyOK
	out.EnginePath = res.EnginePath
	if err != nil {
		outcome, mapped := mapEngineError(err)
		s.record(ctx, out, start, outcome, err)
		return nil, mapped
	}

	san, err := decodeMove(game, res.BestMove)
	if err != nil {
		s.record(ctx, out, start, domain.OutcomeIllegalMove, err)
		return nil, err
	}
	out.MoveUCI = res.BestMove
	out.MoveSAN = san

	if err := s.cache.Set(ctx, key, &CachedMove{MoveUCI: out.MoveUCI, MoveSAN: out.MoveSAN, StoredAt: s.now()}); err != nil {
		s.logger.Warn("bestmove_cache_set_error", zap.String("request_id", out.RequestID), zap.Error(err))
	}
	s.record(ctx, out, start, domain.OutcomeOK, nil)
	return out, nil
}

func (s *Service) Recent(ctx context.Context, limit int) ([]*domain.EngineQuery, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultRecentLimit
	}
	return s.repo.RecentQueries(ctx, limit)
}

func (s *Service) record(ctx context.Context, a *Analysis, start time.Time, outcome string, cause error) {
	a.Duration = s.now().Sub(start)
	q := &domain.EngineQuery{
		RequestID:  a.RequestID,
		FEN:        a.FEN,
		MoveUCI:    a.MoveUCI,
		MoveSAN:    a.MoveSAN,
		Cached:     a.Cached,
		ReadyOK:    a.ReadyOK,
		Outcome:    outcome,
		EnginePath: a.EnginePath,
		Latency:    a.Duration,
		CreatedAt:  start,
	}
	if cause != nil {
		q.Error = cause.Error()
	}
	if _, err := s.repo.RecordQuery(ctx, q); err != nil {
		s.logger.Warn("bestmove_record_error", zap.String("request_id", a.RequestID), zap.Error(err))
	}

	fields := []zap.Field{
		zap.String("request_id", a.RequestID),
		zap.String("outcome", outcome),
		zap.String("move", a.MoveUCI),
		zap.Bool("cached", a.Cached),
		zap.Duration("latency", a.Duration),
	}
	if cause != nil {
		s.logger.Warn("bestmove_analyze", append(fields, zap.Error(cause))...)
		return
	}
	s.logger.Info("bestmove_analyze", fields...)
}

func mapEngineError(err error) (string, error) {
	switch {
	case errors.Is(err, uci.ErrEngineNotFound), errors.Is(err, uci.ErrSpawn):
		return domain.OutcomeNotFound, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	case errors.Is(err, uci.ErrNoBestMove):
		return domain.OutcomeNoMove, fmt.Errorf("%w: %w", ErrNoMove, err)
	case errors.Is(err, uci.ErrInvalidPosition):
		return domain.OutcomeInvalidFEN, fmt.Errorf("%w: %w", ErrInvalidFEN, err)
	default:
		return domain.OutcomeError, err
	}
}

func gameFromFEN(fen string) (*nchess.Game, error) {
	if fen == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidFEN)
	}
	if strings.ContainsAny(fen, "\r\n") {
		return nil, fmt.Errorf("%w: contains a line break", ErrInvalidFEN)
	}
	option, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFEN, err)
	}
	return nchess.NewGame(option), nil
}

// decodeMove checks the engine move against the position and returns its SAN.
func decodeMove(game *nchess.Game, move string) (string, error) {
	move = strings.TrimSpace(move)
	if move == "" || move == "(none)" || move == "0000" {
		return "", fmt.Errorf("%w: %q", ErrNoMove, move)
	}
	pos := game.Position()
	mv, err := nchess.UCINotation{}.Decode(pos, move)
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrIllegalMove, move, err)
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, mv)
	if err := game.PushNotationMove(move, nchess.UCINotation{}, nil); err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrIllegalMove, move, err)
	}
	return san, nil
}
