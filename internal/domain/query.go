package domain

import "time"

const (
	OutcomeOK          = "ok"
	OutcomeNoMove      = "no_move"
	OutcomeNotFound    = "engine_not_found"
	OutcomeInvalidFEN  = "invalid_fen"
	OutcomeIllegalMove = "illegal_move"
	OutcomeError       = "error"
)

// EngineQuery is one logged best-move request.
type EngineQuery struct {
	ID         int64
	RequestID  string
	FEN        string
	MoveUCI    string
	MoveSAN    string
	Cached     bool
	ReadyOK    bool
	Outcome    string
	Error      string
	EnginePath string
	Latency    time.Duration
	CreatedAt  time.Time
}
