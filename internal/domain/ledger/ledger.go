package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientResources = errors.New("insufficient resources")
	ErrInvalidDelta          = errors.New("invalid resource delta")
)

type Cost struct {
	Faith  int `json:"faith" yaml:"faith"`
	Reason int `json:"reason" yaml:"reason"`
}

func (c Cost) IsZero() bool {
	return c.Faith == 0 && c.Reason == 0
}

type Resources struct {
	Faith              int `json:"faith"`
	Reason             int `json:"reason"`
	CivilizationPoints int `json:"civilization_points"`
}

// InsufficientResourcesError carries how much of each resource is missing.
// A zero component means that resource was sufficient.
type InsufficientResourcesError struct {
	Shortfall Cost
}

func (e *InsufficientResourcesError) Error() string {
	return fmt.Sprintf("%s: short %d faith, %d reason", ErrInsufficientResources.Error(), e.Shortfall.Faith, e.Shortfall.Reason)
}

func (e *InsufficientResourcesError) Unwrap() error {
	return ErrInsufficientResources
}

func New(faith, reason int) (Resources, error) {
	if faith < 0 || reason < 0 {
		return Resources{}, ErrInvalidDelta
	}
	return Resources{Faith: faith, Reason: reason}, nil
}

func (r Resources) CanAfford(cost Cost) bool {
	return r.Faith >= cost.Faith && r.Reason >= cost.Reason
}

func (r Resources) Shortfall(cost Cost) Cost {
	return Cost{
		Faith:  max(cost.Faith-r.Faith, 0),
		Reason: max(cost.Reason-r.Reason, 0),
	}
}

func (r Resources) Debit(cost Cost) (Resources, error) {
	if cost.Faith < 0 || cost.Reason < 0 {
		return r, ErrInvalidDelta
	}
	if !r.CanAfford(cost) {
		return r, &InsufficientResourcesError{Shortfall: r.Shortfall(cost)}
	}
	r.Faith -= cost.Faith
	r.Reason -= cost.Reason
	return r, nil
}

func (r Resources) Credit(points int) (Resources, error) {
	if points < 0 {
		return r, ErrInvalidDelta
	}
	r.CivilizationPoints += points
	return r, nil
}

func (r Resources) Valid() bool {
	return r.Faith >= 0 && r.Reason >= 0 && r.CivilizationPoints >= 0
}
