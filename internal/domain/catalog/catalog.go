package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"civbuilders/internal/domain/ledger"

	"gopkg.in/yaml.v3"
)

var (
	ErrNotFound       = errors.New("catalog entry not found")
	ErrInvalidCatalog = errors.New("invalid catalog")
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

type Order struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	Description   string `json:"description" yaml:"description"`
	InitialFaith  int    `json:"initial_faith" yaml:"initial_faith"`
	InitialReason int    `json:"initial_reason" yaml:"initial_reason"`
}

type ContributionCard struct {
	ID                 string      `json:"id" yaml:"id"`
	Name               string      `json:"name" yaml:"name"`
	Description        string      `json:"description" yaml:"description"`
	Cost               ledger.Cost `json:"cost" yaml:"cost"`
	CivilizationPoints int         `json:"civilization_points" yaml:"civilization_points"`
	Quote              string      `json:"quote" yaml:"quote"`
}

type MythCard struct {
	ID                    string   `json:"id" yaml:"id"`
	Name                  string   `json:"name" yaml:"name"`
	Description           string   `json:"description" yaml:"description"`
	ReasonCost            int      `json:"reason_cost" yaml:"reason_cost"`
	CivilizationBonus     int      `json:"civilization_bonus" yaml:"civilization_bonus"`
	RequiredContributions []string `json:"required_contributions" yaml:"required_contributions"`
	DebunkQuote           string   `json:"debunk_quote" yaml:"debunk_quote"`
}

func (m MythCard) Cost() ledger.Cost {
	return ledger.Cost{Reason: m.ReasonCost}
}

type document struct {
	Orders        []Order            `yaml:"orders"`
	Contributions []ContributionCard `yaml:"contributions"`
	Myths         []MythCard         `yaml:"myths"`
}

// Catalog is read-only once built. Accessors hand out copies.
type Catalog struct {
	orders        []Order
	contributions []ContributionCard
	myths         []MythCard

	orderIdx        map[string]int
	contributionIdx map[string]int
	mythIdx         map[string]int
}

func Default() *Catalog {
	c, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

func Parse(raw []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidCatalog, err)
	}
	return New(doc.Orders, doc.Contributions, doc.Myths)
}

func New(orders []Order, contributions []ContributionCard, myths []MythCard) (*Catalog, error) {
	c := &Catalog{
		orderIdx:        make(map[string]int, len(orders)),
		contributionIdx: make(map[string]int, len(contributions)),
		mythIdx:         make(map[string]int, len(myths)),
	}
	for _, o := range orders {
		o.ID = strings.TrimSpace(o.ID)
		if err := checkID("order", o.ID, c.orderIdx); err != nil {
			return nil, err
		}
		if o.InitialFaith < 0 || o.InitialReason < 0 {
			return nil, fmt.Errorf("%w: order %q has negative initial resources", ErrInvalidCatalog, o.ID)
		}
		c.orderIdx[o.ID] = len(c.orders)
		c.orders = append(c.orders, o)
	}
	for _, card := range contributions {
		card.ID = strings.TrimSpace(card.ID)
		if err := checkID("contribution", card.ID, c.contributionIdx); err != nil {
			return nil, err
		}
		if card.Cost.Faith < 0 || card.Cost.Reason < 0 || card.CivilizationPoints < 0 {
			return nil, fmt.Errorf("%w: contribution %q has negative cost or award", ErrInvalidCatalog, card.ID)
		}
		c.contributionIdx[card.ID] = len(c.contributions)
		c.contributions = append(c.contributions, card)
	}
	for _, myth := range myths {
		myth.ID = strings.TrimSpace(myth.ID)
		if err := checkID("myth", myth.ID, c.mythIdx); err != nil {
			return nil, err
		}
		if myth.ReasonCost < 0 || myth.CivilizationBonus < 0 {
			return nil, fmt.Errorf("%w: myth %q has negative cost or bonus", ErrInvalidCatalog, myth.ID)
		}
		seen := make(map[string]struct{}, len(myth.RequiredContributions))
		for _, req := range myth.RequiredContributions {
			if _, ok := c.contributionIdx[req]; !ok {
				return nil, fmt.Errorf("%w: myth %q requires unknown contribution %q", ErrInvalidCatalog, myth.ID, req)
			}
			if _, dup := seen[req]; dup {
				return nil, fmt.Errorf("%w: myth %q lists contribution %q twice", ErrInvalidCatalog, myth.ID, req)
			}
			seen[req] = struct{}{}
		}
		c.mythIdx[myth.ID] = len(c.myths)
		c.myths = append(c.myths, myth)
	}
	return c, nil
}

func checkID(kind, id string, idx map[string]int) error {
	if id == "" {
		return fmt.Errorf("%w: %s with empty id", ErrInvalidCatalog, kind)
	}
	if _, dup := idx[id]; dup {
		return fmt.Errorf("%w: duplicate %s id %q", ErrInvalidCatalog, kind, id)
	}
	return nil
}

func (c *Catalog) Order(id string) (Order, error) {
	i, ok := c.orderIdx[id]
	if !ok {
		return Order{}, fmt.Errorf("order %q: %w", id, ErrNotFound)
	}
	return c.orders[i], nil
}

func (c *Catalog) Contribution(id string) (ContributionCard, error) {
	i, ok := c.contributionIdx[id]
	if !ok {
		return ContributionCard{}, fmt.Errorf("contribution %q: %w", id, ErrNotFound)
	}
	return c.contributions[i], nil
}

func (c *Catalog) Myth(id string) (MythCard, error) {
	i, ok := c.mythIdx[id]
	if !ok {
		return MythCard{}, fmt.Errorf("myth %q: %w", id, ErrNotFound)
	}
	m := c.myths[i]
	m.RequiredContributions = append([]string(nil), m.RequiredContributions...)
	return m, nil
}

// ContributionName falls back to the id so callers can always render something.
func (c *Catalog) ContributionName(id string) string {
	if i, ok := c.contributionIdx[id]; ok {
		return c.contributions[i].Name
	}
	return id
}

func (c *Catalog) Orders() []Order {
	return append([]Order(nil), c.orders...)
}

func (c *Catalog) Contributions() []ContributionCard {
	return append([]ContributionCard(nil), c.contributions...)
}

func (c *Catalog) Myths() []MythCard {
	out := make([]MythCard, len(c.myths))
	for i, m := range c.myths {
		m.RequiredContributions = append([]string(nil), m.RequiredContributions...)
		out[i] = m
	}
	return out
}

func (c *Catalog) ContributionIDs() []string {
	out := make([]string, len(c.contributions))
	for i, card := range c.contributions {
		out[i] = card.ID
	}
	return out
}

func (c *Catalog) MythIDs() []string {
	out := make([]string, len(c.myths))
	for i, m := range c.myths {
		out[i] = m.ID
	}
	return out
}

func (c *Catalog) HasContribution(id string) bool {
	_, ok := c.contributionIdx[id]
	return ok
}

func (c *Catalog) HasMyth(id string) bool {
	_, ok := c.mythIdx[id]
	return ok
}
