package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrOwnership           = errors.New("machine does not belong to user")
	ErrInvalidState        = errors.New("invalid state")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrMaxLevelReached     = errors.New("max level reached")
	ErrDuplicateOperation  = errors.New("duplicate operation")
	ErrTierLocked          = errors.New("tier locked")

	// ErrUnavailable marks an exit that exists but cannot be used right now.
	ErrUnavailable = fmt.Errorf("option unavailable: %w", ErrInvalidState)
)

// StateError reports an operation attempted on a machine in the wrong status.
type StateError struct {
	Op       string
	Actual   Status
	Required []Status
}

func (e *StateError) Error() string {
	req := make([]string, 0, len(e.Required))
	for _, s := range e.Required {
		req = append(req, string(s))
	}

	return fmt.Sprintf("%s: machine is %s, requires %s", e.Op, e.Actual, strings.Join(req, " or "))
}

func (e *StateError) Unwrap() error {
	return ErrInvalidState
}

// RequireStatus returns a *StateError unless actual is one of required.
func RequireStatus(op string, actual Status, required ...Status) error {
	for _, s := range required {
		if actual == s {
			return nil
		}
	}

	return &StateError{Op: op, Actual: actual, Required: required}
}
