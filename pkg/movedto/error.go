package movedto

// Error codes carried by DomainError.
const (
	CodeInvalidFEN        = "invalid_fen"
	CodeIllegalMove       = "illegal_move"
	CodeNoMove            = "no_move"
	CodeEngineUnavailable = "engine_unavailable"
	CodeInternal          = "internal"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "bestmove service error"
}
