// Package memstore keeps every collection in process memory. It backs the
// "memory" store driver used for local runs and by the test suites.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"stealthcompany.com/medadmin/internal/dal"
	"stealthcompany.com/medadmin/internal/models"
)

// Store is an in-memory dal.Backend
type Store struct {
	mu           sync.RWMutex
	doctors      map[string]models.Doctor
	patients     map[string]models.Patient
	appointments map[string]models.Appointment
	lock         *locker
}

// New creates an empty store
func New() *Store {
	return &Store{
		doctors:      make(map[string]models.Doctor),
		patients:     make(map[string]models.Patient),
		appointments: make(map[string]models.Appointment),
		lock:         &locker{},
	}
}

var _ dal.Backend = (*Store)(nil)

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// EnsureIndexes is a no-op
func (s *Store) EnsureIndexes(ctx context.Context) error { return nil }

// Close is a no-op
func (s *Store) Close(ctx context.Context) error { return nil }

// Locker returns the process-local seed lock
func (s *Store) Locker() dal.Locker { return s.lock }

// GetDoctor returns a copy of the doctor keyed by doctorID
func (s *Store) GetDoctor(ctx context.Context, doctorID string) (*models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.doctors[doctorID]
	if !ok {
		return nil, dal.ErrNotFound
	}
	return &d, nil
}

// FindDoctors returns matching doctors, oldest first
func (s *Store) FindDoctors(ctx context.Context, filter dal.DoctorFilter) ([]models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Doctor, 0, len(s.doctors))
	for _, d := range s.doctors {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].DoctorID < out[j].DoctorID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// CountDoctors counts matching doctors
func (s *Store) CountDoctors(ctx context.Context, filter dal.DoctorFilter) (int, error) {
	doctors, err := s.FindDoctors(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(doctors), nil
}

// InsertDoctor stores doctor, assigning a doctorid when it has none
func (s *Store) InsertDoctor(ctx context.Context, doctor *models.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doctor.DoctorID == "" {
		doctor.DoctorID = uuid.NewString()
	}
	if doctor.CreatedAt.IsZero() {
		doctor.CreatedAt = time.Now().UTC()
	}
	doctor.UpdatedAt = doctor.CreatedAt
	s.doctors[doctor.DoctorID] = *doctor
	return nil
}

// UpdateDoctor applies update under the store lock
func (s *Store) UpdateDoctor(ctx context.Context, doctorID string, update models.DoctorUpdate) (*models.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.doctors[doctorID]
	if !ok {
		return nil, dal.ErrNotFound
	}
	if update.Status != nil {
		d.Status = *update.Status
	}
	if update.LicenseVerified != nil {
		d.LicenseVerified = *update.LicenseVerified
	}
	d.UpdatedAt = time.Now().UTC()
	s.doctors[doctorID] = d
	return &d, nil
}

// DeleteDoctor removes a doctor
func (s *Store) DeleteDoctor(ctx context.Context, doctorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.doctors[doctorID]; !ok {
		return dal.ErrNotFound
	}
	delete(s.doctors, doctorID)
	return nil
}

// GetPatient returns a copy of the patient
func (s *Store) GetPatient(ctx context.Context, id string) (*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patients[id]
	if !ok {
		return nil, dal.ErrNotFound
	}
	return &p, nil
}

// FindPatients returns matching patients, newest first
func (s *Store) FindPatients(ctx context.Context, filter dal.PatientFilter) ([]models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		if filter.Verified != "" && p.Verified != filter.Verified {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// CountPatients counts matching patients
func (s *Store) CountPatients(ctx context.Context, filter dal.PatientFilter) (int, error) {
	patients, err := s.FindPatients(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(patients), nil
}

// PatientsByIDs resolves ids, skipping unknown ones
func (s *Store) PatientsByIDs(ctx context.Context, ids []string) (map[string]models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.Patient, len(ids))
	for _, id := range ids {
		if p, ok := s.patients[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// InsertPatient stores patient, assigning an id when it has none
func (s *Store) InsertPatient(ctx context.Context, patient *models.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if patient.ID == "" {
		patient.ID = uuid.NewString()
	}
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = time.Now().UTC()
	}
	s.patients[patient.ID] = *patient
	return nil
}

// DeletePatient removes a patient
func (s *Store) DeletePatient(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.patients[id]; !ok {
		return dal.ErrNotFound
	}
	delete(s.patients, id)
	return nil
}

// GetAppointment returns a copy of the appointment without the patient expanded
func (s *Store) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, dal.ErrNotFound
	}
	return &a, nil
}

// FindAppointments returns matching appointments, newest first
func (s *Store) FindAppointments(ctx context.Context, filter dal.AppointmentFilter) ([]models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Appointment, 0, len(s.appointments))
	for _, a := range s.appointments {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if !filter.CreatedSince.IsZero() && a.CreatedAt.Before(filter.CreatedSince) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// CountAppointments counts matching appointments
func (s *Store) CountAppointments(ctx context.Context, filter dal.AppointmentFilter) (int, error) {
	appointments, err := s.FindAppointments(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(appointments), nil
}

// InsertAppointment stores appointment, assigning an id when it has none
func (s *Store) InsertAppointment(ctx context.Context, appointment *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if appointment.ID == "" {
		appointment.ID = uuid.NewString()
	}
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = time.Now().UTC()
	}
	stored := *appointment
	stored.Patient = nil
	s.appointments[appointment.ID] = stored
	return nil
}

// UpdateAppointmentStatus sets the status, checking update.Expected when set
func (s *Store) UpdateAppointmentStatus(ctx context.Context, id string, update models.AppointmentStatusUpdate) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, dal.ErrNotFound
	}
	if update.Expected != "" && a.Status != update.Expected {
		return nil, dal.ErrConflict
	}
	a.Status = update.Status
	s.appointments[id] = a
	return &a, nil
}

// DeleteAppointment removes an appointment
func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.appointments[id]; !ok {
		return dal.ErrNotFound
	}
	delete(s.appointments, id)
	return nil
}

type locker struct {
	mu        sync.Mutex
	owner     string
	expiresAt time.Time
}

func (l *locker) Lock(ctx context.Context, owner string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.owner != "" && time.Now().Before(l.expiresAt) {
		return dal.ErrLocked
	}
	l.owner = owner
	l.expiresAt = time.Now().Add(ttl)
	return nil
}

func (l *locker) Unlock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.owner = ""
	return nil
}

func (l *locker) IsLocked(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.owner != "" && time.Now().Before(l.expiresAt), nil
}
