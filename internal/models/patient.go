package models

import "time"

// Patient is a registered patient account
type Patient struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	Username  string             `json:"username"`
	Phone     string             `json:"phone,omitempty"`
	Age       int                `json:"age,omitempty"`
	Gender    string             `json:"gender,omitempty"`
	Address   string             `json:"address,omitempty"`
	Verified  VerificationMethod `json:"verified"`
	CreatedAt time.Time          `json:"createdAt"`
}

// PatientSummary is an expanded patient reference embedded in appointments.
// Which optional fields are filled depends on the projection used.
type PatientSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Age      int    `json:"age,omitempty"`
	Gender   string `json:"gender,omitempty"`
	Address  string `json:"address,omitempty"`
}

// PatientProjection selects which patient fields an expansion copies
type PatientProjection int

const (
	// ProjectContact keeps name and email
	ProjectContact PatientProjection = iota
	// ProjectListing adds the username
	ProjectListing
	// ProjectDetail adds phone, age, gender and address
	ProjectDetail
)

// Project builds the summary of p for the given projection
func (p Patient) Project(proj PatientProjection) PatientSummary {
	s := PatientSummary{ID: p.ID, Name: p.Name, Email: p.Email}
	if proj >= ProjectListing {
		s.Username = p.Username
	}
	if proj >= ProjectDetail {
		s.Phone = p.Phone
		s.Age = p.Age
		s.Gender = p.Gender
		s.Address = p.Address
	}
	return s
}
