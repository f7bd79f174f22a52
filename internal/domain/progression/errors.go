package progression

import (
	"errors"
	"fmt"
	"strings"

	"civbuilders/internal/domain/ledger"
)

var (
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrUnknownOrder           = errors.New("unknown order")
	ErrUnknownCard            = errors.New("unknown contribution card")
	ErrUnknownMyth            = errors.New("unknown myth card")
	ErrAlreadyResolved        = errors.New("card already resolved")
	ErrAlreadyPlayed          = errors.New("contribution already played")
	ErrAlreadyDebunked        = errors.New("myth already debunked")
	ErrInsufficientResources  = ledger.ErrInsufficientResources
	ErrPrerequisitesNotMet    = errors.New("prerequisites not met")
	ErrStaleResetProposal     = errors.New("reset proposal is stale")
	ErrCorruptRecord          = errors.New("corrupt saved record")
)

type InvalidStateTransitionError struct {
	Operation string
	Phase     Phase
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("%s: %s not allowed in phase %s", ErrInvalidStateTransition.Error(), e.Operation, e.Phase)
}

func (e *InvalidStateTransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

type AlreadyResolvedError struct {
	ID   string
	kind error
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("%s: %q", e.kind.Error(), e.ID)
}

func (e *AlreadyResolvedError) Unwrap() []error {
	return []error{e.kind, ErrAlreadyResolved}
}

type Prerequisite struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DebunkRejectedError reports every failed debunk check at once.
type DebunkRejectedError struct {
	MythID               string
	ReasonShortfall      int
	MissingPrerequisites []Prerequisite
}

func (e *DebunkRejectedError) Error() string {
	parts := make([]string, 0, 2)
	if e.ReasonShortfall > 0 {
		parts = append(parts, fmt.Sprintf("short %d reason", e.ReasonShortfall))
	}
	if len(e.MissingPrerequisites) > 0 {
		names := make([]string, 0, len(e.MissingPrerequisites))
		for _, p := range e.MissingPrerequisites {
			names = append(names, p.Name)
		}
		parts = append(parts, "missing contributions: "+strings.Join(names, ", "))
	}
	return fmt.Sprintf("cannot debunk myth %q: %s", e.MythID, strings.Join(parts, "; "))
}

func (e *DebunkRejectedError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.ReasonShortfall > 0 {
		out = append(out, ErrInsufficientResources)
	}
	if len(e.MissingPrerequisites) > 0 {
		out = append(out, ErrPrerequisitesNotMet)
	}
	return out
}

func (e *DebunkRejectedError) MissingIDs() []string {
	out := make([]string, 0, len(e.MissingPrerequisites))
	for _, p := range e.MissingPrerequisites {
		out = append(out, p.ID)
	}
	return out
}
