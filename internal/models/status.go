package models

import "fmt"

// DoctorStatus is the registration state of a doctor account
type DoctorStatus string

const (
	DoctorPending  DoctorStatus = "pending"
	DoctorApproved DoctorStatus = "approved"
	DoctorRejected DoctorStatus = "rejected"
)

// Valid reports whether s is one of the known doctor states
func (s DoctorStatus) Valid() bool {
	switch s {
	case DoctorPending, DoctorApproved, DoctorRejected:
		return true
	}
	return false
}

// VerificationMethod records how a patient account was verified
type VerificationMethod string

const (
	VerifiedGoogle VerificationMethod = "google"
	VerifiedNormal VerificationMethod = "normal"
)

// AppointmentStatus is the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// appointmentTransitions lists the states reachable from each state.
// completed and cancelled are terminal.
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentPending:   {AppointmentConfirmed, AppointmentCancelled},
	AppointmentConfirmed: {AppointmentCompleted, AppointmentCancelled},
	AppointmentCompleted: nil,
	AppointmentCancelled: nil,
}

// Valid reports whether s is one of the known appointment states
func (s AppointmentStatus) Valid() bool {
	_, ok := appointmentTransitions[s]
	return ok
}

// CanTransitionTo reports whether an appointment in state s may move to next.
// Writing the current state again is always allowed.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseAppointmentStatus converts a raw status string into a known state
func ParseAppointmentStatus(raw string) (AppointmentStatus, error) {
	s := AppointmentStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown appointment status %q", raw)
	}
	return s, nil
}
