package admin

import (
	"errors"
	"fmt"

	"stealthcompany.com/medadmin/internal/models"
)

var (
	// ErrNotFound is returned when the requested doctor, patient or
	// appointment does not exist
	ErrNotFound = errors.New("record not found")
	// ErrInvalidStatus is returned for an appointment status outside the
	// known set
	ErrInvalidStatus = errors.New("invalid appointment status")
	// ErrInvalidTransition is returned when the appointment state machine
	// does not allow the requested move
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict is returned when the appointment changed between the
	// transition check and the write
	ErrConflict = errors.New("appointment was modified concurrently")
)

// TransitionError describes a rejected appointment status change
type TransitionError struct {
	From models.AppointmentStatus
	To   models.AppointmentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
