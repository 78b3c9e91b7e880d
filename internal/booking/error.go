package booking

import (
	"errors"
	"fmt"
)

var (
	ErrNextID            = errors.New("get next id from generator")
	ErrNotFound          = errors.New("booking not found")
	ErrConflict          = errors.New("slot no longer available")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrAlreadyOccupied   = errors.New("booking already checked in")
	ErrHasActiveBooking  = errors.New("unit has an active booking")
)

// ConflictError is returned when a reservation lost to an existing booking,
// a unit taken out of service, or a concurrent writer.
type ConflictError struct {
	UnitID string
	Reason string
}

func newConflictError(unitID, reason string) *ConflictError {
	return &ConflictError{UnitID: unitID, Reason: reason}
}

func IsConflictError(err error) *ConflictError {
	if err == nil {
		return nil
	}

	var conflictError *ConflictError

	if errors.As(err, &conflictError) {
		return conflictError
	}

	return nil
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("unit '%v': %v", e.UnitID, e.Reason)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
