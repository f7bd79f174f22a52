package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"civbuilders/internal/domain/progression"
)

func TestUseCase_ReportsLatestLedgerFromNewestEvent(t *testing.T) {
	repo := &fakeRepo{events: []progression.DomainEvent{
		{Type: "contribution_played", OccurredAt: time.Unix(2, 0), Payload: map[string]any{"state_after": map[string]any{"faith": 8.0, "reason": 0.0, "civilization_points": 35.0}}},
		{Type: "session_started", OccurredAt: time.Unix(1, 0), Payload: map[string]any{"state_after": map[string]any{"faith": 15, "reason": 10, "civilization_points": 0}}},
	}}

	uc := UseCase{Events: repo}
	out, err := uc.Execute(context.Background(), Request{UserID: "u1", Limit: 10})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if out.Latest.CivilizationPoints != 35 || out.Latest.Faith != 8 {
		t.Fatalf("unexpected latest ledger: %+v", out.Latest)
	}
	if len(out.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(out.Events))
	}
}

func TestUseCase_FiltersByTimeWindow(t *testing.T) {
	repo := &fakeRepo{events: []progression.DomainEvent{
		{Type: "c", OccurredAt: time.Unix(300, 0)},
		{Type: "b", OccurredAt: time.Unix(200, 0)},
		{Type: "a", OccurredAt: time.Unix(100, 0)},
	}}
	uc := UseCase{Events: repo}
	out, err := uc.Execute(context.Background(), Request{UserID: "u1", OccurredFrom: 150, OccurredTo: 250})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(out.Events) != 1 || out.Events[0].Type != "b" {
		t.Fatalf("unexpected events: %+v", out.Events)
	}
}

func TestUseCase_ClampsLimit(t *testing.T) {
	repo := &fakeRepo{}
	uc := UseCase{Events: repo}
	if _, err := uc.Execute(context.Background(), Request{UserID: "u1"}); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if repo.limit != DefaultLimit {
		t.Fatalf("expected default limit %d, got %d", DefaultLimit, repo.limit)
	}
	if _, err := uc.Execute(context.Background(), Request{UserID: "u1", Limit: 10_000}); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if repo.limit != MaxLimit {
		t.Fatalf("expected max limit %d, got %d", MaxLimit, repo.limit)
	}
}

func TestUseCase_RejectsInvalidRequests(t *testing.T) {
	uc := UseCase{Events: &fakeRepo{}}
	cases := []Request{
		{UserID: " "},
		{UserID: "u1", Limit: -1},
		{UserID: "u1", OccurredFrom: 10, OccurredTo: 5},
	}
	for _, req := range cases {
		if _, err := uc.Execute(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest for %+v, got %v", req, err)
		}
	}
}

type fakeRepo struct {
	events []progression.DomainEvent
	limit  int
}

func (r *fakeRepo) Append(_ context.Context, _ string, _ []progression.DomainEvent) error {
	return nil
}

func (r *fakeRepo) ListByUserID(_ context.Context, _ string, limit int) ([]progression.DomainEvent, error) {
	r.limit = limit
	return r.events, nil
}
