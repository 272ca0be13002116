package admin

import "stealthcompany.com/medadmin/internal/models"

// DashboardView feeds the admin landing page
type DashboardView struct {
	PendingDoctors       []models.Doctor `json:"pendingDoctors"`
	ApprovedDoctors      []models.Doctor `json:"approvedDoctors"`
	ApprovedDoctorsCount int             `json:"approvedDoctorsCount"`
	RejectedDoctorsCount int             `json:"rejectedDoctorsCount"`
	TotalDoctorsCount    int             `json:"totalDoctorsCount"`
}

// ManageDoctorsView feeds the doctor management page
type ManageDoctorsView struct {
	Doctors              []models.Doctor `json:"doctors"`
	TotalDoctorsCount    int             `json:"totalDoctorsCount"`
	ApprovedDoctorsCount int             `json:"approvedDoctorsCount"`
	PendingDoctorsCount  int             `json:"pendingDoctorsCount"`
	RejectedDoctorsCount int             `json:"rejectedDoctorsCount"`
}

// PatientRecordsView feeds the patient records page
type PatientRecordsView struct {
	Patients            []models.Patient `json:"patients"`
	TotalPatientsCount  int              `json:"totalPatientsCount"`
	GoogleVerifiedCount int              `json:"googleVerifiedCount"`
	NormalVerifiedCount int              `json:"normalVerifiedCount"`
}

// AppointmentsView feeds the appointments page
type AppointmentsView struct {
	Appointments               []models.Appointment `json:"appointments"`
	RecentAppointments         []models.Appointment `json:"recentAppointments"`
	TotalAppointmentsCount     int                  `json:"totalAppointmentsCount"`
	PendingAppointmentsCount   int                  `json:"pendingAppointmentsCount"`
	ConfirmedAppointmentsCount int                  `json:"confirmedAppointmentsCount"`
	RecentAppointmentsCount    int                  `json:"recentAppointmentsCount"`
}

// AppointmentDetail is an appointment with its doctor looked up separately.
// Doctor is nil when the referenced doctor no longer exists.
type AppointmentDetail struct {
	Appointment models.Appointment    `json:"appointment"`
	Doctor      *models.DoctorSummary `json:"doctor"`
}
