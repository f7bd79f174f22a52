package progression

import (
	"fmt"

	"civbuilders/internal/domain/deck"
	"civbuilders/internal/domain/ledger"
)

func ToRecord(state SessionState) Record {
	return Record{
		SelectedOrderID:     state.OrderID,
		Faith:               state.Resources.Faith,
		Reason:              state.Resources.Reason,
		CivilizationPoints:  state.Resources.CivilizationPoints,
		PlayedContributions: cloneIDs(state.PlayedContributions),
		DebunkedMyths:       cloneIDs(state.DebunkedMyths),
		Timestamp:           state.UpdatedAt,
	}
}

// Restore rebuilds an in-progress session from a saved record and deals
// fresh hands. Records naming ids the catalog does not know are rejected.
func (e Engine) Restore(record Record) (SessionState, Outcome, error) {
	order, err := e.Catalog.Order(record.SelectedOrderID)
	if err != nil {
		return NewSessionState(), Outcome{}, fmt.Errorf("%w: unknown order %q", ErrCorruptRecord, record.SelectedOrderID)
	}
	resources := ledger.Resources{
		Faith:              record.Faith,
		Reason:             record.Reason,
		CivilizationPoints: record.CivilizationPoints,
	}
	if !resources.Valid() {
		return NewSessionState(), Outcome{}, fmt.Errorf("%w: negative resources %+v", ErrCorruptRecord, resources)
	}

	played, err := uniqueKnownIDs(record.PlayedContributions, e.Catalog.HasContribution, "contribution")
	if err != nil {
		return NewSessionState(), Outcome{}, err
	}
	debunked, err := uniqueKnownIDs(record.DebunkedMyths, e.Catalog.HasMyth, "myth")
	if err != nil {
		return NewSessionState(), Outcome{}, err
	}

	now := e.now()
	next := NewSessionState()
	next.Phase = PhaseInProgress
	next.OrderID = order.ID
	next.Resources = resources
	next.PlayedContributions = played
	next.DebunkedMyths = debunked
	next.Version = 1
	next.StartedAt = record.Timestamp
	next.UpdatedAt = now
	next.AvailableContributions = e.drawContributions(next)
	next.AvailableMyths = e.drawMyths(next)

	return next, Outcome{
		Kind:      OutcomeSessionRestored,
		ID:        order.ID,
		Name:      order.Name,
		Resources: next.Resources,
	}, nil
}

func uniqueKnownIDs(ids []string, known func(string) bool, kind string) ([]string, error) {
	seen := deck.NewSet()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !known(id) {
			return nil, fmt.Errorf("%w: unknown %s %q", ErrCorruptRecord, kind, id)
		}
		if seen.Has(id) {
			return nil, fmt.Errorf("%w: duplicate %s %q", ErrCorruptRecord, kind, id)
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
