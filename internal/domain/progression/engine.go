package progression

import (
	"fmt"
	"time"

	"civbuilders/internal/domain/catalog"
	"civbuilders/internal/domain/deck"
	"civbuilders/internal/domain/ledger"

	"github.com/google/uuid"
)

const (
	DefaultContributionHandSize = 3
	DefaultMythHandSize         = 1
)

// Engine applies game rules to a SessionState. It never mutates its input;
// every operation returns the next state or an error with the input untouched.
type Engine struct {
	Catalog              *catalog.Catalog
	Rand                 deck.Source
	Now                  func() time.Time
	ContributionHandSize int
	MythHandSize         int
}

func (e Engine) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now().UTC()
}

func (e Engine) contributionHandSize() int {
	if e.ContributionHandSize <= 0 {
		return DefaultContributionHandSize
	}
	return e.ContributionHandSize
}

func (e Engine) mythHandSize() int {
	if e.MythHandSize <= 0 {
		return DefaultMythHandSize
	}
	return e.MythHandSize
}

func (e Engine) StartSession(state SessionState, orderID string) (SessionState, Outcome, error) {
	order, err := e.Catalog.Order(orderID)
	if err != nil {
		return state, Outcome{}, fmt.Errorf("%w: %q", ErrUnknownOrder, orderID)
	}
	resources, err := ledger.New(order.InitialFaith, order.InitialReason)
	if err != nil {
		return state, Outcome{}, err
	}

	now := e.now()
	next := NewSessionState()
	next.Phase = PhaseInProgress
	next.OrderID = order.ID
	next.Resources = resources
	next.Version = state.Version + 1
	next.StartedAt = now
	next.UpdatedAt = now
	next.AvailableContributions = e.drawContributions(next)
	next.AvailableMyths = e.drawMyths(next)

	return next, Outcome{
		Kind:      OutcomeSessionStarted,
		ID:        order.ID,
		Name:      order.Name,
		Resources: next.Resources,
	}, nil
}

func (e Engine) PlayContribution(state SessionState, cardID string) (SessionState, Outcome, error) {
	if !state.InProgress() {
		return state, Outcome{}, &InvalidStateTransitionError{Operation: "play_contribution", Phase: state.Phase}
	}
	card, err := e.Catalog.Contribution(cardID)
	if err != nil {
		return state, Outcome{}, fmt.Errorf("%w: %q", ErrUnknownCard, cardID)
	}
	if state.HasPlayed(card.ID) {
		return state, Outcome{}, &AlreadyResolvedError{ID: card.ID, kind: ErrAlreadyPlayed}
	}

	resources, err := state.Resources.Debit(card.Cost)
	if err != nil {
		return state, Outcome{}, err
	}
	resources, err = resources.Credit(card.CivilizationPoints)
	if err != nil {
		return state, Outcome{}, err
	}

	next := state.clone()
	next.Resources = resources
	next.PlayedContributions = append(next.PlayedContributions, card.ID)
	next.AvailableContributions = e.drawContributions(next)
	next.Version++
	next.UpdatedAt = e.now()

	return next, Outcome{
		Kind:          OutcomeContributionPlayed,
		ID:            card.ID,
		Name:          card.Name,
		PointsAwarded: card.CivilizationPoints,
		Quote:         card.Quote,
		Resources:     next.Resources,
	}, nil
}

func (e Engine) DebunkMyth(state SessionState, mythID string) (SessionState, Outcome, error) {
	if !state.InProgress() {
		return state, Outcome{}, &InvalidStateTransitionError{Operation: "debunk_myth", Phase: state.Phase}
	}
	myth, err := e.Catalog.Myth(mythID)
	if err != nil {
		return state, Outcome{}, fmt.Errorf("%w: %q", ErrUnknownMyth, mythID)
	}
	if state.HasDebunked(myth.ID) {
		return state, Outcome{}, &AlreadyResolvedError{ID: myth.ID, kind: ErrAlreadyDebunked}
	}

	missing := e.missingPrerequisites(state, myth)
	shortfall := state.Resources.Shortfall(myth.Cost())
	if len(missing) > 0 || shortfall.Reason > 0 {
		return state, Outcome{}, &DebunkRejectedError{
			MythID:               myth.ID,
			ReasonShortfall:      shortfall.Reason,
			MissingPrerequisites: missing,
		}
	}

	resources, err := state.Resources.Debit(myth.Cost())
	if err != nil {
		return state, Outcome{}, err
	}
	resources, err = resources.Credit(myth.CivilizationBonus)
	if err != nil {
		return state, Outcome{}, err
	}

	next := state.clone()
	next.Resources = resources
	next.DebunkedMyths = append(next.DebunkedMyths, myth.ID)
	next.AvailableMyths = e.drawMyths(next)
	next.Version++
	next.UpdatedAt = e.now()

	return next, Outcome{
		Kind:          OutcomeMythDebunked,
		ID:            myth.ID,
		Name:          myth.Name,
		PointsAwarded: myth.CivilizationBonus,
		Quote:         myth.DebunkQuote,
		Resources:     next.Resources,
	}, nil
}

func (e Engine) RedrawContributions(state SessionState) (SessionState, Outcome, error) {
	if !state.InProgress() {
		return state, Outcome{}, &InvalidStateTransitionError{Operation: "redraw_contributions", Phase: state.Phase}
	}
	next := state.clone()
	next.AvailableContributions = e.drawContributions(next)
	return next, Outcome{Kind: OutcomeHandRedrawn, ID: "contributions", Resources: next.Resources}, nil
}

func (e Engine) RedrawMyths(state SessionState) (SessionState, Outcome, error) {
	if !state.InProgress() {
		return state, Outcome{}, &InvalidStateTransitionError{Operation: "redraw_myths", Phase: state.Phase}
	}
	next := state.clone()
	next.AvailableMyths = e.drawMyths(next)
	return next, Outcome{Kind: OutcomeHandRedrawn, ID: "myths", Resources: next.Resources}, nil
}

// ProposeReset is the first half of the two-phase reset. The proposal is only
// valid for the exact state version it was issued against.
func (e Engine) ProposeReset(state SessionState) (ResetProposal, error) {
	if !state.InProgress() {
		return ResetProposal{}, &InvalidStateTransitionError{Operation: "propose_reset", Phase: state.Phase}
	}
	return ResetProposal{
		Token:    uuid.NewString(),
		Version:  state.Version,
		IssuedAt: e.now(),
	}, nil
}

func (e Engine) ConfirmReset(state SessionState, proposal ResetProposal) (SessionState, Outcome, error) {
	if !state.InProgress() {
		return state, Outcome{}, &InvalidStateTransitionError{Operation: "confirm_reset", Phase: state.Phase}
	}
	if proposal.Token == "" || proposal.Version != state.Version {
		return state, Outcome{}, ErrStaleResetProposal
	}
	next := NewSessionState()
	next.Version = state.Version + 1
	next.UpdatedAt = e.now()
	return next, Outcome{Kind: OutcomeSessionReset, Resources: next.Resources}, nil
}

func (e Engine) missingPrerequisites(state SessionState, myth catalog.MythCard) []Prerequisite {
	var missing []Prerequisite
	for _, req := range myth.RequiredContributions {
		if state.HasPlayed(req) {
			continue
		}
		missing = append(missing, Prerequisite{ID: req, Name: e.Catalog.ContributionName(req)})
	}
	return missing
}

func (e Engine) drawContributions(state SessionState) []string {
	return deck.DrawIDs(e.Rand, e.Catalog.ContributionIDs(), deck.NewSet(state.PlayedContributions...), e.contributionHandSize())
}

func (e Engine) drawMyths(state SessionState) []string {
	return deck.DrawIDs(e.Rand, e.Catalog.MythIDs(), deck.NewSet(state.DebunkedMyths...), e.mythHandSize())
}
