package memory

import (
	"context"

	"civbuilders/internal/app/ports"
	"civbuilders/internal/domain/progression"
)

type SaveRepo struct {
	store *Store
}

func NewSaveRepo(store *Store) SaveRepo {
	return SaveRepo{store: store}
}

func (r SaveRepo) Get(ctx context.Context, userID string) (progression.Record, error) {
	var (
		rec progression.Record
		ok  bool
	)
	r.store.with(ctx, func() {
		rec, ok = r.store.saves[userID]
	})
	if !ok {
		return progression.Record{}, ports.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (r SaveRepo) Put(ctx context.Context, userID string, record progression.Record) error {
	r.store.with(ctx, func() {
		r.store.saves[userID] = cloneRecord(record)
	})
	return nil
}

func (r SaveRepo) Delete(ctx context.Context, userID string) error {
	var ok bool
	r.store.with(ctx, func() {
		_, ok = r.store.saves[userID]
		delete(r.store.saves, userID)
	})
	if !ok {
		return ports.ErrNotFound
	}
	return nil
}
