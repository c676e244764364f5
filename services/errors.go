package services

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
)

var (
	// ErrWaitlistExpired -> the entry no longer exists server-side; the
	// caller purges local waitlist state.
	ErrWaitlistExpired = errors.New("waitlist entry has expired")

	// ErrNotQueued -> the device holds no waitlist entry.
	ErrNotQueued = errors.New("device is not on a waitlist")
)

// IsValidation -> true when err came from input validation and never
// reached the network layer.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	var ve validation.Errors
	return errors.As(err, &ve)
}
