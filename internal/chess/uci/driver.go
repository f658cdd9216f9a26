package uci

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/park285/Cheese-bestmove/internal/obslog"
	"go.uber.org/zap"
)

const (
	defaultReadyTimeout  = 5 * time.Second
	defaultResultTimeout = 7 * time.Second
	defaultPollInterval  = 10 * time.Millisecond

	readyToken = "readyok"
)

var ErrInvalidPosition = errors.New("invalid position for uci command")

type Timeouts struct {
	Ready        time.Duration
	Result       time.Duration
	PollInterval time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Ready:        defaultReadyTimeout,
		Result:       defaultResultTimeout,
		PollInterval: defaultPollInterval,
	}
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Ready <= 0 {
		t.Ready = defaultReadyTimeout
	}
	if t.Result <= 0 {
		t.Result = defaultResultTimeout
	}
	if t.PollInterval <= 0 {
		t.PollInterval = defaultPollInterval
	}
	return t
}

// Driver runs one handshake/query exchange per call against a freshly
// spawned engine. A Driver holds no process state and may be shared.
type Driver struct {
	locator  *Locator
	opt      Options
	timeouts Timeouts
	logger   *zap.Logger
}

type DriverOption func(*Driver)

func WithLocator(l *Locator) DriverOption {
	return func(d *Driver) {
		if l != nil {
			d.locator = l
		}
	}
}

func WithOptions(opt Options) DriverOption {
	return func(d *Driver) { d.opt = opt }
}

func WithTimeouts(t Timeouts) DriverOption {
	return func(d *Driver) { d.timeouts = t.withDefaults() }
}

func WithLogger(l *zap.Logger) DriverOption {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

func NewDriver(opts ...DriverOption) *Driver {
	d := &Driver{
		locator:  NewLocator(),
		opt:      DefaultOptions(),
		timeouts: DefaultTimeouts(),
		logger:   obslog.L(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type SearchResult struct {
	BestMove   string
	Transcript string
	ReadyOK    bool
	EnginePath string
	Elapsed    time.Duration
}

// session is the per-call exchange state: captured text, the start of the
// current wait phase and whether its target line was seen.
type session struct {
	text  strings.Builder
	start time.Time
	found bool
}

func (s *session) begin() {
	s.text.Reset()
	s.start = time.Now()
	s.found = false
}

func (s *session) record(line, token string) bool {
	s.text.WriteString(line)
	s.text.WriteByte('\n')
	if strings.Contains(line, token) {
		s.found = true
	}
	return s.found
}

// Move returns the engine's best move for fen, or "" on any failure.
// The cause of a failure is only reported through the logger.
func (d *Driver) Move(fen string) string {
	res, err := d.Search(context.Background(), fen)
	if err != nil {
		d.logger.Warn("bestmove_failed",
			zap.String("fen", fen),
			zap.String("engine", res.EnginePath),
			zap.Duration("elapsed", res.Elapsed),
			zap.Error(err),
		)
		return ""
	}
	return res.BestMove
}

// Move runs a single query with the default driver.
func Move(fen string) string {
	return NewDriver().Move(fen)
}

// Search spawns an engine, runs handshake, configuration, position and
// search, and tears the engine down before returning on every path.
func (d *Driver) Search(ctx context.Context, fen string) (SearchResult, error) {
	start := time.Now()
	var res SearchResult

	if strings.ContainsAny(fen, "\r\n") {
		return res, fmt.Errorf("%w: fen contains a line break", ErrInvalidPosition)
	}
	if err := validateOptions(d.opt); err != nil {
		return res, err
	}

	path, err := d.locator.Find()
	if err != nil {
		return res, err
	}
	res.EnginePath = path

	proc, err := Spawn(path)
	if err != nil {
		return res, err
	}
	pid := proc.PID()
	defer func() {
		if serr := proc.Shutdown(); serr != nil {
			d.logger.Warn("uci_shutdown_error", zap.Int("pid", pid), zap.Error(serr))
		}
	}()

	sess := &session{}

	if err := proc.WriteLine("uci"); err != nil {
		return d.finish(res, start), fmt.Errorf("send uci: %w", err)
	}
	for _, cmd := range configureCommands(d.opt) {
		if err := proc.WriteLine(cmd); err != nil {
			return d.finish(res, start), fmt.Errorf("apply options: %w", err)
		}
	}
	if err := proc.WriteLine("isready"); err != nil {
		return d.finish(res, start), fmt.Errorf("send isready: %w", err)
	}

	err = d.await(ctx, proc, sess, readyToken, d.timeouts.Ready)
	switch {
	case err == nil:
		res.ReadyOK = true
	case errors.Is(err, ErrProtocolTimeout):
		d.logger.Warn("uci_ready_timeout",
			zap.Int("pid", pid),
			zap.Duration("timeout", d.timeouts.Ready),
		)
	default:
		return d.finish(res, start), fmt.Errorf("wait readyok: %w", err)
	}

	if err := proc.WriteLine(buildPositionCommand(fen)); err != nil {
		return d.finish(res, start), fmt.Errorf("send position: %w", err)
	}
	goCmd := buildGoCommand(d.opt)
	if err := proc.WriteLine(goCmd); err != nil {
		return d.finish(res, start), fmt.Errorf("send go: %w", err)
	}

	waitErr := d.await(ctx, proc, sess, bestMoveKeyword, d.timeouts.Result)
	res.Transcript = sess.text.String()
	res.BestMove = ExtractBestMove(res.Transcript)
	res = d.finish(res, start)

	if res.BestMove == "" {
		if waitErr != nil {
			return res, fmt.Errorf("%w: %w", ErrNoBestMove, waitErr)
		}
		return res, ErrNoBestMove
	}

	d.logger.Debug("bestmove_query",
		zap.Int("pid", pid),
		zap.String("go", goCmd),
		zap.String("move", res.BestMove),
		zap.Bool("ready_ok", res.ReadyOK),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

func (d *Driver) finish(res SearchResult, start time.Time) SearchResult {
	res.Elapsed = time.Since(start)
	return res
}

// await polls the engine until a line containing token arrives or limit
// elapses. It never retries and never blocks on a read.
func (d *Driver) await(ctx context.Context, proc *Process, sess *session, token string, limit time.Duration) error {
	sess.begin()
	for {
		if time.Since(sess.start) > limit {
			return fmt.Errorf("%w: no %q within %s", ErrProtocolTimeout, token, limit)
		}

		line, err := proc.PollLine()
		switch {
		case err == nil:
			if sess.record(line, token) {
				return nil
			}
			continue
		case errors.Is(err, ErrNoData):
		case errors.Is(err, io.EOF):
			return fmt.Errorf("engine closed output: %w", err)
		default:
			return fmt.Errorf("read engine output: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.timeouts.PollInterval):
		}
	}
}
