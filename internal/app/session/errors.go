package session

import (
	"errors"

	"civbuilders/internal/app/persistence"
	"civbuilders/internal/domain/progression"
)

// Stable machine-readable codes for rejected operations.
const (
	CodeIdentityNotReady       = "identity_not_ready"
	CodeInvalidStateTransition = "invalid_state_transition"
	CodeUnknownOrder           = "unknown_order"
	CodeUnknownCard            = "unknown_card"
	CodeUnknownMyth            = "unknown_myth"
	CodeAlreadyPlayed          = "already_played"
	CodeAlreadyDebunked        = "already_debunked"
	CodeInsufficientResources  = "insufficient_resources"
	CodePrerequisitesNotMet    = "prerequisites_not_met"
	CodeStaleResetProposal     = "stale_reset_proposal"
	CodeStorageError           = "storage_error"
	CodeInternalError          = "internal_error"
)

// ErrorCode classifies err into one of the Code constants.
func ErrorCode(err error) string {
	var storageErr *persistence.StorageError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, persistence.ErrIdentityNotReady):
		return CodeIdentityNotReady
	case errors.As(err, &storageErr):
		return CodeStorageError
	case errors.Is(err, progression.ErrInvalidStateTransition):
		return CodeInvalidStateTransition
	case errors.Is(err, progression.ErrUnknownOrder):
		return CodeUnknownOrder
	case errors.Is(err, progression.ErrUnknownCard):
		return CodeUnknownCard
	case errors.Is(err, progression.ErrUnknownMyth):
		return CodeUnknownMyth
	case errors.Is(err, progression.ErrAlreadyPlayed):
		return CodeAlreadyPlayed
	case errors.Is(err, progression.ErrAlreadyDebunked):
		return CodeAlreadyDebunked
	case errors.Is(err, progression.ErrPrerequisitesNotMet):
		return CodePrerequisitesNotMet
	case errors.Is(err, progression.ErrInsufficientResources):
		return CodeInsufficientResources
	case errors.Is(err, progression.ErrStaleResetProposal):
		return CodeStaleResetProposal
	default:
		return CodeInternalError
	}
}

// IsRejection reports whether err is a rule rejection rather than a failure
// of the service.
func IsRejection(err error) bool {
	switch ErrorCode(err) {
	case "", CodeStorageError, CodeInternalError:
		return false
	default:
		return true
	}
}
