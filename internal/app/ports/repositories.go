package ports

import (
	"context"

	"civbuilders/internal/domain/progression"
)

// SaveRepository is the per-user document store. Put overwrites wholesale.
type SaveRepository interface {
	Get(ctx context.Context, userID string) (progression.Record, error)
	Put(ctx context.Context, userID string, record progression.Record) error
	Delete(ctx context.Context, userID string) error
}

type EventRepository interface {
	Append(ctx context.Context, userID string, events []progression.DomainEvent) error
	ListByUserID(ctx context.Context, userID string, limit int) ([]progression.DomainEvent, error)
}
