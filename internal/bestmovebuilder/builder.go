package bestmovebuilder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/Cheese-bestmove/internal/chess/uci"
	"github.com/park285/Cheese-bestmove/internal/config"
	svc "github.com/park285/Cheese-bestmove/internal/service/bestmove"
	"go.uber.org/zap"
)

type Deps struct {
	Service *svc.Service
	Driver  *uci.Driver
	Cache   svc.Cache
	Repo    svc.Repository

	closers []func() error
}

// Close releases the Redis client and database pool, if any.
func (d *Deps) Close() error {
	var first error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	d.closers = nil
	return first
}

// NewDriver builds the engine driver alone; the CLI needs nothing else.
func NewDriver(cfg *config.AppConfig, logger *zap.Logger) *uci.Driver {
	return uci.NewDriver(
		uci.WithLocator(uci.NewLocator(cfg.EnginePaths...)),
		uci.WithOptions(EngineOptions(cfg)),
		uci.WithTimeouts(uci.Timeouts{
			Ready:        cfg.ReadyTimeout,
			Result:       cfg.ResultTimeout,
			PollInterval: cfg.PollInterval,
		}),
		uci.WithLogger(logger),
	)
}

func EngineOptions(cfg *config.AppConfig) uci.Options {
	return uci.Options{
		Threads:        cfg.Threads,
		HashMB:         cfg.HashMB,
		SkillLevel:     cfg.SkillLevel,
		MultiPV:        cfg.MultiPV,
		MoveTimeMillis: cfg.MoveTimeMillis,
	}
}

// Variant names the engine settings that affect the chosen move.
func Variant(cfg *config.AppConfig) string {
	return fmt.Sprintf("skill=%d;movetime=%d;multipv=%d", cfg.SkillLevel, cfg.MoveTimeMillis, cfg.MultiPV)
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	deps := &Deps{Driver: NewDriver(cfg, logger)}

	// Cache (Redis optional)
	if strings.TrimSpace(cfg.RedisURL) != "" {
		rdb, err := svc.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("init cache: %w", err)
		}
		deps.closers = append(deps.closers, rdb.Close)
		deps.Cache = svc.NewRedisCache(rdb, cfg.CacheTTL())
	} else {
		logger.Info("cache_disabled", zap.String("reason", "REDIS_URL not set"))
		deps.Cache = svc.NopCache()
	}

	// Repository (DB optional)
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err := openPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = deps.Close()
			return nil, err
		}
		deps.closers = append(deps.closers, db.Close)
		if err := svc.EnsureSchema(ctx, db); err != nil {
			_ = deps.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		deps.Repo = svc.NewRepository(db)
	} else {
		logger.Info("query_log_in_memory", zap.String("reason", "DATABASE_URL not set"))
		deps.Repo = svc.NewMemoryRepository(0)
	}

	service, err := svc.NewService(deps.Driver, deps.Cache, deps.Repo, svc.Config{Variant: Variant(cfg)}, logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}
	deps.Service = service
	return deps, nil
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	// basic pool settings
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
