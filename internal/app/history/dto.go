package history

import (
	"civbuilders/internal/domain/ledger"
	"civbuilders/internal/domain/progression"
)

type Request struct {
	UserID       string
	Limit        int
	OccurredFrom int64
	OccurredTo   int64
}

type Response struct {
	Events []progression.DomainEvent `json:"events"`
	// Latest is the ledger as of the newest event in the window.
	Latest ledger.Resources `json:"latest"`
}
