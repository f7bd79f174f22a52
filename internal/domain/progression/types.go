package progression

import (
	"slices"
	"time"

	"civbuilders/internal/domain/ledger"
)

type Phase string

const (
	PhaseNoGame     Phase = "no_game"
	PhaseInProgress Phase = "in_progress"
)

type SessionState struct {
	Phase                  Phase            `json:"phase"`
	OrderID                string           `json:"order_id,omitempty"`
	Resources              ledger.Resources `json:"resources"`
	PlayedContributions    []string         `json:"played_contributions"`
	DebunkedMyths          []string         `json:"debunked_myths"`
	AvailableContributions []string         `json:"available_contributions"`
	AvailableMyths         []string         `json:"available_myths"`
	Version                int64            `json:"version"`
	StartedAt              time.Time        `json:"started_at,omitempty"`
	UpdatedAt              time.Time        `json:"updated_at,omitempty"`
}

func NewSessionState() SessionState {
	return SessionState{
		Phase:                  PhaseNoGame,
		PlayedContributions:    []string{},
		DebunkedMyths:          []string{},
		AvailableContributions: []string{},
		AvailableMyths:         []string{},
	}
}

func (s SessionState) InProgress() bool {
	return s.Phase == PhaseInProgress
}

func (s SessionState) HasPlayed(cardID string) bool {
	return slices.Contains(s.PlayedContributions, cardID)
}

func (s SessionState) HasDebunked(mythID string) bool {
	return slices.Contains(s.DebunkedMyths, mythID)
}

func (s SessionState) clone() SessionState {
	s.PlayedContributions = cloneIDs(s.PlayedContributions)
	s.DebunkedMyths = cloneIDs(s.DebunkedMyths)
	s.AvailableContributions = cloneIDs(s.AvailableContributions)
	s.AvailableMyths = cloneIDs(s.AvailableMyths)
	return s
}

func cloneIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return append(make([]string, 0, len(ids)), ids...)
}

type OutcomeKind string

const (
	OutcomeSessionStarted     OutcomeKind = "session_started"
	OutcomeSessionRestored    OutcomeKind = "session_restored"
	OutcomeContributionPlayed OutcomeKind = "contribution_played"
	OutcomeMythDebunked       OutcomeKind = "myth_debunked"
	OutcomeHandRedrawn        OutcomeKind = "hand_redrawn"
	OutcomeResetProposed      OutcomeKind = "reset_proposed"
	OutcomeResetCancelled     OutcomeKind = "reset_cancelled"
	OutcomeSessionReset       OutcomeKind = "session_reset"
)

// Persisted reports whether the outcome changed state that belongs in the
// saved record. Hands are re-rollable and never saved.
func (k OutcomeKind) Persisted() bool {
	switch k {
	case OutcomeSessionStarted, OutcomeContributionPlayed, OutcomeMythDebunked:
		return true
	default:
		return false
	}
}

type Outcome struct {
	Kind          OutcomeKind      `json:"kind"`
	ID            string           `json:"id,omitempty"`
	Name          string           `json:"name,omitempty"`
	PointsAwarded int              `json:"points_awarded,omitempty"`
	Quote         string           `json:"quote,omitempty"`
	Resources     ledger.Resources `json:"resources"`
}

type ResetProposal struct {
	Token    string    `json:"token"`
	Version  int64     `json:"version"`
	IssuedAt time.Time `json:"issued_at"`
}

// Record is the saved projection of a session. Drawn hands are left out.
type Record struct {
	SelectedOrderID     string    `json:"selected_order_id"`
	Faith               int       `json:"faith"`
	Reason              int       `json:"reason"`
	CivilizationPoints  int       `json:"civilization_points"`
	PlayedContributions []string  `json:"played_contributions"`
	DebunkedMyths       []string  `json:"debunked_myths"`
	Timestamp           time.Time `json:"timestamp"`
}

type LibraryEntry struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Quote string `json:"quote"`
}
