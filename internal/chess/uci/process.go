package uci

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

const readChunkSize = 4096

// Process is one engine child process wired to two private pipes.
//
// A Process is owned by a single caller and is not safe for concurrent use.
// Shutdown is the only release path and must run once per successful Spawn.
type Process struct {
	cmd  *exec.Cmd
	path string

	toEngine   *os.File
	fromEngine *os.File
	writer     *bufio.Writer
	raw        syscall.RawConn

	buf     []byte
	pending []byte
	eof     bool

	shutdownOnce sync.Once
	shutdownErr  error
}

// Spawn starts the executable at path with no arguments. Its stdin and
// stdout are bound to pipes owned by the returned Process; stderr is inherited.
func Spawn(path string) (*Process, error) {
	toEngineR, toEngineW, err := os.Pipe()
	if err != nil {
		return nil, &SpawnError{Op: "create stdin pipe", Path: path, Err: err}
	}
	fromEngineR, fromEngineW, err := os.Pipe()
	if err != nil {
		closeFiles(toEngineR, toEngineW)
		return nil, &SpawnError{Op: "create stdout pipe", Path: path, Err: err}
	}

	cmd := exec.Command(path)
	cmd.Stdin = toEngineR
	cmd.Stdout = fromEngineW
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		closeFiles(toEngineR, toEngineW, fromEngineR, fromEngineW)
		return nil, &SpawnError{Op: "start engine", Path: path, Err: err}
	}
	// the child holds its own copies now
	closeFiles(toEngineR, fromEngineW)

	p := &Process{
		cmd:        cmd,
		path:       path,
		toEngine:   toEngineW,
		fromEngine: fromEngineR,
		writer:     bufio.NewWriter(toEngineW),
		buf:        make([]byte, readChunkSize),
	}

	raw, err := fromEngineR.SyscallConn()
	if err != nil {
		_ = p.Shutdown()
		return nil, &SpawnError{Op: "access stdout pipe", Path: path, Err: err}
	}
	var nbErr error
	if err := raw.Control(func(fd uintptr) {
		nbErr = unix.SetNonblock(int(fd), true)
	}); err != nil || nbErr != nil {
		_ = p.Shutdown()
		return nil, &SpawnError{Op: "set non-blocking", Path: path, Err: errors.Join(err, nbErr)}
	}
	p.raw = raw
	return p, nil
}

func (p *Process) PID() int {
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return -1
	}
	return p.cmd.Process.Pid
}

func (p *Process) Path() string { return p.path }

// WriteLine sends one newline-terminated command and flushes it.
func (p *Process) WriteLine(text string) error {
	if _, err := p.writer.WriteString(text + "\n"); err != nil {
		return err
	}
	return p.writer.Flush()
}

// PollLine makes at most one non-blocking read and returns the next complete
// line without its terminator. It returns ErrNoData when no full line is
// buffered yet, and io.EOF once the engine closed its output and every
// buffered byte was handed out.
func (p *Process) PollLine() (string, error) {
	if line, ok := p.nextLine(); ok {
		return line, nil
	}
	if !p.eof {
		n, err := p.readOnce()
		if n > 0 {
			p.pending = append(p.pending, p.buf[:n]...)
		}
		switch {
		case errors.Is(err, io.EOF):
			p.eof = true
		case err != nil:
			return "", err
		}
		if line, ok := p.nextLine(); ok {
			return line, nil
		}
	}
	if !p.eof {
		return "", ErrNoData
	}
	if len(p.pending) > 0 {
		line := strings.TrimSuffix(string(p.pending), "\r")
		p.pending = nil
		return line, nil
	}
	return "", io.EOF
}

func (p *Process) readOnce() (int, error) {
	if p.raw == nil {
		return 0, os.ErrClosed
	}
	var (
		n    int
		rerr error
	)
	// returning true keeps the runtime from parking on the poller
	err := p.raw.Read(func(fd uintptr) bool {
		n, rerr = unix.Read(int(fd), p.buf)
		return true
	})
	if err != nil {
		return 0, err
	}
	switch {
	case errors.Is(rerr, unix.EAGAIN), errors.Is(rerr, unix.EINTR):
		return 0, nil
	case rerr != nil:
		return 0, rerr
	case n == 0:
		return 0, io.EOF
	}
	return n, nil
}

func (p *Process) nextLine() (string, bool) {
	idx := bytes.IndexByte(p.pending, '\n')
	if idx < 0 {
		return "", false
	}
	line := string(p.pending[:idx])
	p.pending = p.pending[idx+1:]
	return strings.TrimSuffix(line, "\r"), true
}

// Shutdown sends quit, closes both pipes, signals SIGTERM and reaps the
// child. Only the first call does any work; later calls return its result.
func (p *Process) Shutdown() error {
	p.shutdownOnce.Do(func() {
		p.shutdownErr = p.shutdown()
	})
	return p.shutdownErr
}

func (p *Process) shutdown() error {
	var errs []error

	// the engine may already be gone; quit is best effort
	_ = p.WriteLine("quit")

	if err := p.toEngine.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close stdin pipe: %w", err))
	}
	if err := p.fromEngine.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close stdout pipe: %w", err))
	}
	p.raw = nil

	if err := p.cmd.Process.Signal(unix.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		errs = append(errs, fmt.Errorf("signal engine: %w", err))
	}

	// exit status is irrelevant once we asked the engine to stop
	var exitErr *exec.ExitError
	if err := p.cmd.Wait(); err != nil && !errors.As(err, &exitErr) {
		errs = append(errs, fmt.Errorf("wait engine: %w", err))
	}

	return errors.Join(errs...)
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		if f != nil {
			_ = f.Close()
		}
	}
}
