package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/Cheese-bestmove/internal/bestmoveclient"
	"github.com/park285/Cheese-bestmove/internal/bestmovebuilder"
	appcfg "github.com/park285/Cheese-bestmove/internal/config"
	"github.com/park285/Cheese-bestmove/internal/obslog"
	svc "github.com/park285/Cheese-bestmove/internal/service/bestmove"
	"go.uber.org/zap"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("bestmove", flag.ContinueOnError)
	san := fs.Bool("san", false, "validate the move and print it in SAN as well")
	server := fs.String("server", "", "ask a running bestmove-server instead of spawning an engine")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	fen := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if fen == "" {
		fen = startFEN
	}

	if err := obslog.InitFromEnv(); err != nil {
		log.Printf("logger init error: %v", err)
	}
	defer func() { _ = obslog.L().Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		obslog.L().Error("config_error", zap.Error(err))
		return 1
	}

	switch {
	case *server != "":
		return viaServer(*server, fen)
	case *san:
		return withService(cfg, fen)
	}

	move := bestmovebuilder.NewDriver(cfg, obslog.L()).Move(fen)
	if move == "" {
		return 1
	}
	fmt.Println(move)
	return 0
}

func withService(cfg *appcfg.AppConfig, fen string) int {
	ctx := context.Background()
	deps, err := bestmovebuilder.New(ctx, cfg, obslog.L())
	if err != nil {
		obslog.L().Error("init_error", zap.Error(err))
		return 1
	}
	defer deps.Close()

	a, err := deps.Service.Analyze(ctx, svc.Request{FEN: fen})
	if err != nil {
		return 1
	}
	fmt.Printf("%s %s\n", a.MoveUCI, a.MoveSAN)
	return 0
}

func viaServer(baseURL, fen string) int {
	client := bestmoveclient.NewClient(baseURL, bestmoveclient.WithTimeout(20*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := client.BestMove(ctx, fen)
	if err != nil {
		obslog.L().Warn("server_query_failed", zap.String("server", baseURL), zap.Error(err))
		return 1
	}
	fmt.Printf("%s %s\n", resp.MoveUCI, resp.MoveSAN)
	return 0
}
