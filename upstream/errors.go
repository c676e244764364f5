package upstream

import (
	"errors"
	"fmt"
)

// ErrNotFound -> the entity no longer exists on the platform. Callers
// purge the corresponding cached entity when they see this.
var ErrNotFound = errors.New("not found on platform")

// TransientError wraps a network or decode failure. Callers fail safe:
// keep last-known-good local state and ask the user to retry.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("platform %s failed: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient -> true when err is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
