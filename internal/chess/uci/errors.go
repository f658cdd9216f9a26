package uci

import (
	"errors"
	"fmt"
)

var (
	ErrEngineNotFound  = errors.New("uci engine not found")
	ErrSpawn           = errors.New("uci engine spawn failed")
	ErrProtocolTimeout = errors.New("uci protocol timeout")
	ErrNoBestMove      = errors.New("bestmove not found in engine output")
	ErrNoData          = errors.New("no engine output available yet")
)

// SpawnError reports a failure while creating the pipes or starting the engine.
type SpawnError struct {
	Op   string
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *SpawnError) Unwrap() []error {
	return []error{ErrSpawn, e.Err}
}
