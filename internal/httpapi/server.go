package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/park285/Cheese-bestmove/internal/adapter/movepresenter"
	"github.com/park285/Cheese-bestmove/internal/domain"
	svc "github.com/park285/Cheese-bestmove/internal/service/bestmove"
	"github.com/park285/Cheese-bestmove/pkg/movedto"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	defaultRequestTimeout = 15 * time.Second
	maxQueriesLimit       = 200
)

// Analyzer is the part of the best-move service the API needs.
type Analyzer interface {
	Analyze(ctx context.Context, req svc.Request) (*svc.Analysis, error)
	Recent(ctx context.Context, limit int) ([]*domain.EngineQuery, error)
}

type Server struct {
	svc     Analyzer
	logger  *zap.Logger
	timeout time.Duration
	srv     *fasthttp.Server
}

type Option func(*Server)

func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewServer(analyzer Analyzer, logger *zap.Logger, opts ...Option) (*Server, error) {
	if analyzer == nil {
		return nil, errors.New("nil analyzer")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{svc: analyzer, logger: logger, timeout: defaultRequestTimeout}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = &fasthttp.Server{
		Handler:      s.Handle,
		Name:         "bestmove",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: s.timeout + 5*time.Second,
	}
	return s, nil
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("http_listen", zap.String("addr", addr))
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

// Handle routes a single request.
func (s *Server) Handle(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	path := string(ctx.Path())

	if !ctx.IsGet() {
		writeError(ctx, fasthttp.StatusMethodNotAllowed, movedto.DomainError{Code: "method_not_allowed", Message: "only GET is supported"})
		return
	}

	switch path {
	case "/healthz":
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString("ok")
	case "/bestmove":
		s.handleBestMove(ctx)
	case "/queries":
		s.handleQueries(ctx)
	default:
		writeError(ctx, fasthttp.StatusNotFound, movedto.DomainError{Code: "not_found", Message: "unknown path"})
	}

	s.logger.Debug("http_request",
		zap.String("path", path),
		zap.Int("status", ctx.Response.StatusCode()),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func (s *Server) handleBestMove(ctx *fasthttp.RequestCtx) {
	fen := strings.TrimSpace(string(ctx.QueryArgs().Peek("fen")))

	reqCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	analysis, err := s.svc.Analyze(reqCtx, svc.Request{FEN: fen})
	if err != nil {
		writeError(ctx, statusFor(err), movepresenter.ToDomainError(err))
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, movepresenter.ToDTOAnalysis(analysis))
}

func (s *Server) handleQueries(ctx *fasthttp.RequestCtx) {
	limit := ctx.QueryArgs().GetUintOrZero("limit")
	if limit > maxQueriesLimit {
		limit = maxQueriesLimit
	}

	reqCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	items, err := s.svc.Recent(reqCtx, limit)
	if err != nil {
		s.logger.Warn("http_queries_error", zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, movedto.DomainError{Code: movedto.CodeInternal, Message: "query log unavailable", Retryable: true})
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, movedto.QueriesResponse{Items: movepresenter.ToDTOQueries(items)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, svc.ErrInvalidFEN):
		return fasthttp.StatusBadRequest
	case errors.Is(err, svc.ErrEngineUnavailable):
		return fasthttp.StatusServiceUnavailable
	case errors.Is(err, svc.ErrNoMove), errors.Is(err, svc.ErrIllegalMove):
		return fasthttp.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return fasthttp.StatusGatewayTimeout
	default:
		return fasthttp.StatusInternalServerError
	}
}

func writeError(ctx *fasthttp.RequestCtx, status int, derr movedto.DomainError) {
	writeJSON(ctx, status, movedto.ErrorResponse{Error: derr})
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString(`{"error":{"code":"internal","message":"encode response"}}`)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
