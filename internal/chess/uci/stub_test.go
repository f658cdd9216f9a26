package uci

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

type stubBehavior struct {
	readyOK  bool
	bestMove string
	exitNow  bool
}

// writeStubEngine writes a /bin/sh engine that records its pid and answers
// a subset of UCI according to b.
func writeStubEngine(t *testing.T, b stubBehavior) (path, pidFile string) {
	t.Helper()
	dir := t.TempDir()
	path = filepath.Join(dir, "stub-engine")
	pidFile = filepath.Join(dir, "engine.pid")

	ready := ":"
	if b.readyOK {
		ready = `echo "readyok"`
	}
	search := ":"
	if b.bestMove != "" {
		search = fmt.Sprintf(`echo "info depth 1 score cp 20 pv %[1]s"; echo "bestmove %[1]s ponder e7e5"`, b.bestMove)
	}

	var sb strings.Builder
	sb.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&sb, "echo $$ > '%s'\n", pidFile)
	if b.exitNow {
		sb.WriteString("exit 0\n")
	}
	sb.WriteString("while IFS= read -r line; do\n")
	sb.WriteString("  case \"$line\" in\n")
	sb.WriteString("    uci) echo \"id name stub\"; echo \"uciok\" ;;\n")
	fmt.Fprintf(&sb, "    isready) %s ;;\n", ready)
	fmt.Fprintf(&sb, "    go*) %s ;;\n", search)
	sb.WriteString("    quit) exit 0 ;;\n")
	sb.WriteString("  esac\n")
	sb.WriteString("done\n")

	if err := os.WriteFile(path, []byte(sb.String()), 0o755); err != nil {
		t.Fatalf("write stub engine: %v", err)
	}
	return path, pidFile
}

func readPID(t *testing.T, pidFile string) int {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		raw, err := os.ReadFile(pidFile)
		if err == nil {
			if pid, perr := strconv.Atoi(strings.TrimSpace(string(raw))); perr == nil && pid > 0 {
				return pid
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("engine pid file %s not written: %v", pidFile, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// assertReaped fails when pid still names a live or zombie process.
func assertReaped(t *testing.T, pid int) {
	t.Helper()
	if err := unix.Kill(pid, 0); err != unix.ESRCH {
		t.Fatalf("engine pid %d still present after call (kill 0: %v)", pid, err)
	}
}

func fastTimeouts() Timeouts {
	return Timeouts{
		Ready:        300 * time.Millisecond,
		Result:       600 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	}
}

func testOptions() Options {
	opt := DefaultOptions()
	opt.Threads = 1
	opt.HashMB = 16
	opt.MoveTimeMillis = 50
	return opt
}
