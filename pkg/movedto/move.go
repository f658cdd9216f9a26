package movedto

import "time"

type BestMoveResponse struct {
	RequestID  string `json:"request_id"`
	FEN        string `json:"fen"`
	MoveUCI    string `json:"move_uci"`
	MoveSAN    string `json:"move_san"`
	Cached     bool   `json:"cached"`
	DurationMS int64  `json:"duration_ms"`
}

type QueryDTO struct {
	ID         int64     `json:"id"`
	RequestID  string    `json:"request_id"`
	FEN        string    `json:"fen"`
	MoveUCI    string    `json:"move_uci,omitempty"`
	MoveSAN    string    `json:"move_san,omitempty"`
	Cached     bool      `json:"cached"`
	ReadyOK    bool      `json:"ready_ok"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	EnginePath string    `json:"engine_path,omitempty"`
	LatencyMS  int64     `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

type QueriesResponse struct {
	Items []QueryDTO `json:"items"`
}

type ErrorResponse struct {
	Error DomainError `json:"error"`
}
