package uci

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

// DefaultCandidates is probed in order. The bare name is resolved through PATH.
var DefaultCandidates = []string{
	"/usr/local/bin/stockfish",
	"/app/stockfish",
	"stockfish",
	"/opt/homebrew/bin/stockfish",
}

type Locator struct {
	Candidates []string
}

func NewLocator(candidates ...string) *Locator {
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	return &Locator{Candidates: append([]string(nil), candidates...)}
}

// Find returns the first candidate that is an executable file.
func (l *Locator) Find() (string, error) {
	candidates := DefaultCandidates
	if l != nil && len(l.Candidates) > 0 {
		candidates = l.Candidates
	}

	probed := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		probed = append(probed, c)
		if path, ok := probe(c); ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w (tried %s)", ErrEngineNotFound, strings.Join(probed, ", "))
}

func probe(candidate string) (string, bool) {
	if !strings.ContainsRune(candidate, os.PathSeparator) {
		path, err := exec.LookPath(candidate)
		if err != nil {
			return "", false
		}
		return path, true
	}

	info, err := os.Stat(candidate)
	if err != nil || info.IsDir() {
		return "", false
	}
	if err := unix.Access(candidate, unix.X_OK); err != nil {
		return "", false
	}
	return candidate, true
}
