package memory

import (
	"context"

	"civbuilders/internal/domain/progression"
)

type EventRepo struct {
	store *Store
}

func NewEventRepo(store *Store) EventRepo {
	return EventRepo{store: store}
}

func (r EventRepo) Append(ctx context.Context, userID string, events []progression.DomainEvent) error {
	r.store.with(ctx, func() {
		r.store.events[userID] = append(r.store.events[userID], events...)
	})
	return nil
}

// ListByUserID returns events newest first.
func (r EventRepo) ListByUserID(ctx context.Context, userID string, limit int) ([]progression.DomainEvent, error) {
	var out []progression.DomainEvent
	r.store.with(ctx, func() {
		all := r.store.events[userID]
		out = make([]progression.DomainEvent, 0, len(all))
		for i := len(all) - 1; i >= 0; i-- {
			out = append(out, all[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	})
	return out, nil
}
