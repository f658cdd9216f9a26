package movepresenter

import (
	"errors"

	"github.com/park285/Cheese-bestmove/internal/domain"
	svc "github.com/park285/Cheese-bestmove/internal/service/bestmove"
	"github.com/park285/Cheese-bestmove/pkg/movedto"
)

func ToDTOAnalysis(a *svc.Analysis) *movedto.BestMoveResponse {
	if a == nil {
		return nil
	}
	return &movedto.BestMoveResponse{
		RequestID:  a.RequestID,
		FEN:        a.FEN,
		MoveUCI:    a.MoveUCI,
		MoveSAN:    a.MoveSAN,
		Cached:     a.Cached,
		DurationMS: a.Duration.Milliseconds(),
	}
}

func ToDTOQuery(q *domain.EngineQuery) movedto.QueryDTO {
	if q == nil {
		return movedto.QueryDTO{}
	}
	return movedto.QueryDTO{
		ID:         q.ID,
		RequestID:  q.RequestID,
		FEN:        q.FEN,
		MoveUCI:    q.MoveUCI,
		MoveSAN:    q.MoveSAN,
		Cached:     q.Cached,
		ReadyOK:    q.ReadyOK,
		Outcome:    q.Outcome,
		Error:      q.Error,
		EnginePath: q.EnginePath,
		LatencyMS:  q.Latency.Milliseconds(),
		CreatedAt:  q.CreatedAt,
	}
}

func ToDTOQueries(items []*domain.EngineQuery) []movedto.QueryDTO {
	out := make([]movedto.QueryDTO, 0, len(items))
	for _, q := range items {
		out = append(out, ToDTOQuery(q))
	}
	return out
}

// ToDomainError maps service errors onto the wire error shape.
func ToDomainError(err error) movedto.DomainError {
	switch {
	case err == nil:
		return movedto.DomainError{}
	case errors.Is(err, svc.ErrInvalidFEN):
		return movedto.DomainError{Code: movedto.CodeInvalidFEN, Message: err.Error()}
	case errors.Is(err, svc.ErrIllegalMove):
		return movedto.DomainError{Code: movedto.CodeIllegalMove, Message: err.Error(), Retryable: true}
	case errors.Is(err, svc.ErrNoMove):
		return movedto.DomainError{Code: movedto.CodeNoMove, Message: err.Error(), Retryable: true}
	case errors.Is(err, svc.ErrEngineUnavailable):
		return movedto.DomainError{Code: movedto.CodeEngineUnavailable, Message: err.Error()}
	default:
		return movedto.DomainError{Code: movedto.CodeInternal, Message: err.Error(), Retryable: true}
	}
}
