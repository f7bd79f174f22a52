package progression

import (
	"civbuilders/internal/domain/catalog"
	"civbuilders/internal/domain/ledger"
)

type ContributionView struct {
	catalog.ContributionCard
	Affordable bool `json:"affordable"`
}

type MythView struct {
	catalog.MythCard
	Affordable           bool           `json:"affordable"`
	MissingPrerequisites []Prerequisite `json:"missing_prerequisites"`
	Eligible             bool           `json:"eligible"`
}

type View struct {
	Phase                  Phase              `json:"phase"`
	Order                  *catalog.Order     `json:"order,omitempty"`
	Resources              ledger.Resources   `json:"resources"`
	PlayedContributions    []string           `json:"played_contributions"`
	DebunkedMyths          []string           `json:"debunked_myths"`
	AvailableContributions []ContributionView `json:"available_contributions"`
	AvailableMyths         []MythView         `json:"available_myths"`
	Version                int64              `json:"version"`
}

// View resolves hand ids to catalog cards and precomputes the flags a client
// needs to enable or disable actions.
func (e Engine) View(state SessionState) View {
	v := View{
		Phase:                  state.Phase,
		Resources:              state.Resources,
		PlayedContributions:    cloneIDs(state.PlayedContributions),
		DebunkedMyths:          cloneIDs(state.DebunkedMyths),
		AvailableContributions: make([]ContributionView, 0, len(state.AvailableContributions)),
		AvailableMyths:         make([]MythView, 0, len(state.AvailableMyths)),
		Version:                state.Version,
	}
	if order, err := e.Catalog.Order(state.OrderID); err == nil {
		v.Order = &order
	}
	for _, id := range state.AvailableContributions {
		card, err := e.Catalog.Contribution(id)
		if err != nil {
			continue
		}
		v.AvailableContributions = append(v.AvailableContributions, ContributionView{
			ContributionCard: card,
			Affordable:       state.Resources.CanAfford(card.Cost),
		})
	}
	for _, id := range state.AvailableMyths {
		myth, err := e.Catalog.Myth(id)
		if err != nil {
			continue
		}
		missing := e.missingPrerequisites(state, myth)
		if missing == nil {
			missing = []Prerequisite{}
		}
		affordable := state.Resources.CanAfford(myth.Cost())
		v.AvailableMyths = append(v.AvailableMyths, MythView{
			MythCard:             myth,
			Affordable:           affordable,
			MissingPrerequisites: missing,
			Eligible:             affordable && len(missing) == 0,
		})
	}
	return v
}

func (e Engine) Library(state SessionState) []LibraryEntry {
	out := make([]LibraryEntry, 0, len(state.PlayedContributions)+len(state.DebunkedMyths))
	for _, id := range state.PlayedContributions {
		card, err := e.Catalog.Contribution(id)
		if err != nil {
			continue
		}
		out = append(out, LibraryEntry{Kind: "contribution", ID: card.ID, Name: card.Name, Quote: card.Quote})
	}
	for _, id := range state.DebunkedMyths {
		myth, err := e.Catalog.Myth(id)
		if err != nil {
			continue
		}
		out = append(out, LibraryEntry{Kind: "myth", ID: myth.ID, Name: myth.Name, Quote: myth.DebunkQuote})
	}
	return out
}
