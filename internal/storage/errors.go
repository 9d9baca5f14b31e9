package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// PersistenceError wraps a store failure with which tier and operation
// failed. Audit-tier failures are logged and swallowed by the gateway;
// user-tier failures are surfaced to the caller.
type PersistenceError struct {
	Store string // "user" or "audit"
	Op    string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s store: %s: %v", e.Store, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
