package persistence

import (
	"errors"
	"fmt"
)

// ErrIdentityNotReady is returned when a load or save is attempted before
// the caller has a user id. Callers defer rather than fail.
var ErrIdentityNotReady = errors.New("identity not ready")

type StorageError struct {
	Op     string
	UserID string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s for user %q: %v", e.Op, e.UserID, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
