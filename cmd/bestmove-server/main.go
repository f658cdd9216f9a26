package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/Cheese-bestmove/internal/bestmovebuilder"
	appcfg "github.com/park285/Cheese-bestmove/internal/config"
	"github.com/park285/Cheese-bestmove/internal/httpapi"
	"github.com/park285/Cheese-bestmove/internal/obslog"
	"go.uber.org/zap"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}

	deps, err := bestmovebuilder.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("init_error", zap.Error(err))
	}
	defer deps.Close()

	// one engine search plus its ready phase
	timeout := cfg.ReadyTimeout + cfg.ResultTimeout + 2*time.Second
	srv, err := httpapi.NewServer(deps.Service, logger, httpapi.WithRequestTimeout(timeout))
	if err != nil {
		logger.Fatal("http_init_error", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(cfg.HTTPAddr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown_signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("http_serve_error", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("http_shutdown_error", zap.Error(err))
	}
}
