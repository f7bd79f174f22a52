package history

import (
	"context"
	"errors"
	"strings"

	"civbuilders/internal/app/ports"
	"civbuilders/internal/domain/ledger"
	"civbuilders/internal/domain/progression"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

var ErrInvalidRequest = errors.New("invalid history request")

type UseCase struct {
	Events ports.EventRepository
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" || req.Limit < 0 || (req.OccurredTo > 0 && req.OccurredFrom > req.OccurredTo) {
		return Response{}, ErrInvalidRequest
	}
	limit := req.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	events, err := u.Events.ListByUserID(ctx, userID, limit)
	if err != nil {
		return Response{}, err
	}
	events = filterByTimeWindow(events, req.OccurredFrom, req.OccurredTo)
	return Response{Events: events, Latest: latest(events)}, nil
}

func filterByTimeWindow(events []progression.DomainEvent, from, to int64) []progression.DomainEvent {
	out := make([]progression.DomainEvent, 0, len(events))
	for _, evt := range events {
		ts := evt.OccurredAt.Unix()
		if from > 0 && ts < from {
			continue
		}
		if to > 0 && ts > to {
			continue
		}
		out = append(out, evt)
	}
	return out
}

// latest reads the ledger snapshot of the newest event; events arrive newest first.
func latest(events []progression.DomainEvent) ledger.Resources {
	for _, evt := range events {
		after, ok := evt.Payload["state_after"].(map[string]any)
		if !ok {
			continue
		}
		return ledger.Resources{
			Faith:              int(num(after["faith"])),
			Reason:             int(num(after["reason"])),
			CivilizationPoints: int(num(after["civilization_points"])),
		}
	}
	return ledger.Resources{}
}

func num(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
