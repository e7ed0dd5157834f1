package types

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a namespace entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConcurrentModification is returned when a write carries a stale version.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// NamespaceError reports a failed lookup or write inside the namespace store.
type NamespaceError struct {
	Op  string
	Key string
	Err error
}

func (e *NamespaceError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("namespace %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("namespace %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *NamespaceError) Unwrap() error { return e.Err }

// UserNotFoundError is returned when a write is attributed to an unknown user.
type UserNotFoundError struct {
	User string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("user %q not found", e.User)
}
