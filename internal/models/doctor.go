package models

import "time"

// Doctor is a registered practitioner awaiting or holding admin approval
type Doctor struct {
	DoctorID        string       `json:"doctorid"`
	Name            string       `json:"name"`
	Email           string       `json:"email"`
	Phone           string       `json:"phone,omitempty"`
	Specialization  string       `json:"specialization"`
	HospitalName    string       `json:"hospitalName"`
	Location        string       `json:"location"`
	LicenseNumber   string       `json:"licenseNumber,omitempty"`
	Status          DoctorStatus `json:"status"`
	LicenseVerified bool         `json:"licenseVerified"`
	PasswordHash    string       `json:"passwordHash,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// Redacted returns a copy of d without the credential hash
func (d Doctor) Redacted() Doctor {
	d.PasswordHash = ""
	return d
}

// DoctorSummary is the doctor projection shown next to an appointment
type DoctorSummary struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Specialization string `json:"specialization"`
	HospitalName   string `json:"hospitalName"`
	Location       string `json:"location"`
}

// Summary projects d onto the appointment-detail fields
func (d Doctor) Summary() DoctorSummary {
	return DoctorSummary{
		Name:           d.Name,
		Email:          d.Email,
		Specialization: d.Specialization,
		HospitalName:   d.HospitalName,
		Location:       d.Location,
	}
}

// DoctorUpdate carries the fields an admin action may change.
// Nil fields are left untouched.
type DoctorUpdate struct {
	Status          *DoctorStatus
	LicenseVerified *bool
}
