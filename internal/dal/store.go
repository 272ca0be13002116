package dal

import (
	"context"
	"time"

	"stealthcompany.com/medadmin/internal/models"
)

// DoctorFilter narrows doctor queries. Empty fields match everything.
type DoctorFilter struct {
	Status models.DoctorStatus
}

// PatientFilter narrows patient queries. Empty fields match everything.
type PatientFilter struct {
	Verified models.VerificationMethod
}

// AppointmentFilter narrows appointment queries. Empty fields match everything.
type AppointmentFilter struct {
	Status models.AppointmentStatus
	// CreatedSince keeps appointments created at or after this instant
	CreatedSince time.Time
}

// DoctorStore persists doctors keyed by doctorid
type DoctorStore interface {
	GetDoctor(ctx context.Context, doctorID string) (*models.Doctor, error)
	// FindDoctors returns doctors ordered by createdAt ascending
	FindDoctors(ctx context.Context, filter DoctorFilter) ([]models.Doctor, error)
	CountDoctors(ctx context.Context, filter DoctorFilter) (int, error)
	InsertDoctor(ctx context.Context, doctor *models.Doctor) error
	// UpdateDoctor applies update in a single atomic write and returns the
	// stored result, or ErrNotFound
	UpdateDoctor(ctx context.Context, doctorID string, update models.DoctorUpdate) (*models.Doctor, error)
	// DeleteDoctor removes the doctor or returns ErrNotFound
	DeleteDoctor(ctx context.Context, doctorID string) error
}

// PatientStore persists patients keyed by their primary id
type PatientStore interface {
	GetPatient(ctx context.Context, id string) (*models.Patient, error)
	// FindPatients returns patients ordered by createdAt descending
	FindPatients(ctx context.Context, filter PatientFilter) ([]models.Patient, error)
	CountPatients(ctx context.Context, filter PatientFilter) (int, error)
	// PatientsByIDs resolves the given ids; missing ids are absent from the map
	PatientsByIDs(ctx context.Context, ids []string) (map[string]models.Patient, error)
	// InsertPatient stores patient, assigning an id when it has none
	InsertPatient(ctx context.Context, patient *models.Patient) error
	DeletePatient(ctx context.Context, id string) error
}

// AppointmentStore persists appointments keyed by their primary id
type AppointmentStore interface {
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	// FindAppointments returns appointments ordered by createdAt descending
	FindAppointments(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error)
	CountAppointments(ctx context.Context, filter AppointmentFilter) (int, error)
	// InsertAppointment stores appointment, assigning an id when it has none
	InsertAppointment(ctx context.Context, appointment *models.Appointment) error
	// UpdateAppointmentStatus writes the new status atomically. It returns
	// ErrNotFound for a missing id and ErrConflict when update.Expected is
	// set and no longer matches.
	UpdateAppointmentStatus(ctx context.Context, id string, update models.AppointmentStatusUpdate) (*models.Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error
}

// Store is the full data-access surface used by the admin service
type Store interface {
	DoctorStore
	PatientStore
	AppointmentStore
}

// Backend is a Store with connection lifecycle and maintenance hooks
type Backend interface {
	Store
	Ping(ctx context.Context) error
	EnsureIndexes(ctx context.Context) error
	Locker() Locker
	Close(ctx context.Context) error
}

// Locker guards maintenance jobs such as seeding against running twice
type Locker interface {
	Lock(ctx context.Context, owner string, ttl time.Duration) error
	Unlock(ctx context.Context) error
	IsLocked(ctx context.Context) (bool, error)
}
