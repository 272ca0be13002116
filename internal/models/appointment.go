package models

import "time"

// Appointment links a patient to a doctor for a consultation.
// PatientID is expanded into Patient at read time; DoctorID is a plain
// reference that is resolved with a separate lookup.
type Appointment struct {
	ID        string            `json:"id"`
	PatientID string            `json:"-"`
	Patient   *PatientSummary   `json:"patientId"`
	DoctorID  string            `json:"doctorid"`
	Date      string            `json:"date,omitempty"`
	TimeSlot  string            `json:"timeSlot,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Status    AppointmentStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
}

// AppointmentStatusUpdate sets a new status, optionally guarded by the
// status the caller last observed
type AppointmentStatusUpdate struct {
	Status AppointmentStatus
	// Expected, when non-empty, makes the write conditional on the stored
	// status still being Expected.
	Expected AppointmentStatus
}
