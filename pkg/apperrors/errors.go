package apperrors

import (
	"errors"
	"fmt"
)

// Domain error taxonomy. All are expected, local conditions reported
// synchronously to the caller; none is fatal to the process. Callers branch
// with errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrInvalidStopState       = errors.New("invalid stop state")
	ErrMissingProofOfDelivery = errors.New("missing proof of delivery")
	ErrDriverUnavailable      = errors.New("driver unavailable")
	ErrVehicleUnavailable     = errors.New("vehicle unavailable")
	ErrAlreadyAssigned        = errors.New("load already assigned")
	ErrTerminalLoad           = errors.New("load is in a terminal status")
	ErrConcurrentModification = errors.New("concurrent modification, retry")
	ErrNoDriversAvailable     = errors.New("no drivers available")
	ErrInvalidLoadSpec        = errors.New("invalid load spec")
)

// ErrStorageFailure wraps unexpected backend failures (connectivity,
// serialization), kept distinct from the domain taxonomy so callers can
// tell an invalid request from an unreachable system.
var ErrStorageFailure = errors.New("storage failure")

// Storage wraps err as a storage failure. Returns nil for nil.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStorageFailure, err)
}

// Wrapf attaches context to a sentinel without breaking errors.Is.
func Wrapf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
