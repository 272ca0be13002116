// Package seed loads demo doctors, patients and appointments into an empty store
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"stealthcompany.com/medadmin/internal/dal"
	"stealthcompany.com/medadmin/internal/metrics"
	"stealthcompany.com/medadmin/internal/models"
)

//go:embed fixtures.json
var fixturesJSON []byte

const progressEvery = 100

// Fixtures is the demo data set. Appointments point at doctors and patients
// by their position in the lists.
type Fixtures struct {
	Doctors      []DoctorFixture      `json:"doctors"`
	Patients     []PatientFixture     `json:"patients"`
	Appointments []AppointmentFixture `json:"appointments"`
}

// DoctorFixture is a demo doctor; Password is hashed before storing
type DoctorFixture struct {
	Name            string              `json:"name"`
	Email           string              `json:"email"`
	Phone           string              `json:"phone"`
	Specialization  string              `json:"specialization"`
	HospitalName    string              `json:"hospitalName"`
	Location        string              `json:"location"`
	LicenseNumber   string              `json:"licenseNumber"`
	Status          models.DoctorStatus `json:"status"`
	LicenseVerified bool                `json:"licenseVerified"`
	Password        string              `json:"password"`
	CreatedDaysAgo  int                 `json:"createdDaysAgo"`
}

// PatientFixture is a demo patient
type PatientFixture struct {
	Name           string                    `json:"name"`
	Email          string                    `json:"email"`
	Username       string                    `json:"username"`
	Phone          string                    `json:"phone"`
	Age            int                       `json:"age"`
	Gender         string                    `json:"gender"`
	Address        string                    `json:"address"`
	Verified       models.VerificationMethod `json:"verified"`
	CreatedDaysAgo int                       `json:"createdDaysAgo"`
}

// AppointmentFixture is a demo appointment; Patient and Doctor are list positions
type AppointmentFixture struct {
	Patient        int                      `json:"patient"`
	Doctor         int                      `json:"doctor"`
	Date           string                   `json:"date"`
	TimeSlot       string                   `json:"timeSlot"`
	Reason         string                   `json:"reason"`
	Status         models.AppointmentStatus `json:"status"`
	CreatedDaysAgo int                      `json:"createdDaysAgo"`
}

// DefaultFixtures returns the embedded demo data set
func DefaultFixtures() (*Fixtures, error) {
	var f Fixtures
	if err := json.Unmarshal(fixturesJSON, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	return &f, nil
}

// Options tunes a Seeder. Zero values pick sensible defaults.
type Options struct {
	Owner    string
	LockTTL  time.Duration
	HashCost int
	Now      func() time.Time
}

// Result summarizes one seeding run
type Result struct {
	Skipped      bool
	Doctors      int
	Patients     int
	Appointments int
	Failed       int
}

// Seeder writes fixtures into a store while holding its seed lock
type Seeder struct {
	store  dal.Store
	locker dal.Locker
	opts   Options
}

// NewSeeder creates a seeder for backend
func NewSeeder(backend dal.Backend, opts Options) *Seeder {
	if opts.Owner == "" {
		opts.Owner = "medadmin-seed"
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Seeder{store: backend, locker: backend.Locker(), opts: opts}
}

// Run seeds fixtures unless the store already holds doctors. A held lock
// returns dal.ErrLocked.
func (s *Seeder) Run(ctx context.Context, fixtures *Fixtures) (*Result, error) {
	log.Info().Str("owner", s.opts.Owner).Msg("Locking database for seeding")
	if err := s.locker.Lock(ctx, s.opts.Owner, s.opts.LockTTL); err != nil {
		return nil, fmt.Errorf("failed to lock database: %w", err)
	}
	defer func() {
		log.Info().Msg("Unlocking database after seeding")
		// the caller's context may already be cancelled
		if err := s.locker.Unlock(context.WithoutCancel(ctx)); err != nil {
			log.Error().Err(err).Msg("Failed to unlock database")
		}
	}()

	existing, err := s.store.CountDoctors(ctx, dal.DoctorFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to count doctors: %w", err)
	}
	if existing > 0 {
		log.Info().Int("doctors", existing).Msg("Store already seeded, skipping")
		return &Result{Skipped: true}, nil
	}

	now := s.opts.Now().UTC()
	result := &Result{}

	doctorIDs := s.seedDoctors(ctx, now, fixtures.Doctors, result)
	patientIDs := s.seedPatients(ctx, now, fixtures.Patients, result)
	s.seedAppointments(ctx, now, fixtures.Appointments, doctorIDs, patientIDs, result)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func daysAgo(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}

func logProgress(collection string, done, total int) {
	if done%progressEvery == 0 {
		log.Info().
			Str("collection", collection).
			Int("processed", done).
			Int("total", total).
			Msg("Progress update")
	}
}

func logCompleted(collection string, total, stored, failed int) {
	log.Info().
		Str("collection", collection).
		Int("total", total).
		Int("stored", stored).
		Int("failed", failed).
		Msg("Completed seeding")
}

// seedDoctors returns the stored doctorid per fixture position, empty for failures
func (s *Seeder) seedDoctors(ctx context.Context, now time.Time, fixtures []DoctorFixture, result *Result) []string {
	const collection = "doctors"
	startTime := time.Now()
	ids := make([]string, len(fixtures))
	failed := 0

	for i, f := range fixtures {
		if ctx.Err() != nil {
			failed += len(fixtures) - i
			break
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(f.Password), s.opts.HashCost)
		if err != nil {
			log.Error().Err(err).Str("email", f.Email).Msg("Failed to hash doctor password")
			failed++
			continue
		}

		doctor := &models.Doctor{
			DoctorID:        uuid.NewString(),
			Name:            f.Name,
			Email:           f.Email,
			Phone:           f.Phone,
			Specialization:  f.Specialization,
			HospitalName:    f.HospitalName,
			Location:        f.Location,
			LicenseNumber:   f.LicenseNumber,
			Status:          f.Status,
			LicenseVerified: f.LicenseVerified,
			PasswordHash:    string(hash),
			CreatedAt:       daysAgo(now, f.CreatedDaysAgo),
		}
		if err := s.store.InsertDoctor(ctx, doctor); err != nil {
			log.Error().Err(err).Str("email", f.Email).Msg("Failed to store doctor")
			failed++
			continue
		}
		ids[i] = doctor.DoctorID
		result.Doctors++
		logProgress(collection, i+1, len(fixtures))
	}

	s.finish(collection, startTime, len(fixtures), result.Doctors, failed, result)
	return ids
}

func (s *Seeder) seedPatients(ctx context.Context, now time.Time, fixtures []PatientFixture, result *Result) []string {
	const collection = "patients"
	startTime := time.Now()
	ids := make([]string, len(fixtures))
	failed := 0

	for i, f := range fixtures {
		if ctx.Err() != nil {
			failed += len(fixtures) - i
			break
		}
		patient := &models.Patient{
			Name:      f.Name,
			Email:     f.Email,
			Username:  f.Username,
			Phone:     f.Phone,
			Age:       f.Age,
			Gender:    f.Gender,
			Address:   f.Address,
			Verified:  f.Verified,
			CreatedAt: daysAgo(now, f.CreatedDaysAgo),
		}
		if err := s.store.InsertPatient(ctx, patient); err != nil {
			log.Error().Err(err).Str("email", f.Email).Msg("Failed to store patient")
			failed++
			continue
		}
		ids[i] = patient.ID
		result.Patients++
		logProgress(collection, i+1, len(fixtures))
	}

	s.finish(collection, startTime, len(fixtures), result.Patients, failed, result)
	return ids
}

var errDanglingReference = errors.New("fixture references a record that was not stored")

func lookup(ids []string, index int) (string, error) {
	if index < 0 || index >= len(ids) || ids[index] == "" {
		return "", fmt.Errorf("%w: index %d", errDanglingReference, index)
	}
	return ids[index], nil
}

func (s *Seeder) seedAppointments(ctx context.Context, now time.Time, fixtures []AppointmentFixture, doctorIDs, patientIDs []string, result *Result) {
	const collection = "appointments"
	startTime := time.Now()
	failed := 0

	for i, f := range fixtures {
		if ctx.Err() != nil {
			failed += len(fixtures) - i
			break
		}
		doctorID, err := lookup(doctorIDs, f.Doctor)
		if err == nil {
			var patientID string
			if patientID, err = lookup(patientIDs, f.Patient); err == nil {
				err = s.store.InsertAppointment(ctx, &models.Appointment{
					PatientID: patientID,
					DoctorID:  doctorID,
					Date:      f.Date,
					TimeSlot:  f.TimeSlot,
					Reason:    f.Reason,
					Status:    f.Status,
					CreatedAt: daysAgo(now, f.CreatedDaysAgo),
				})
			}
		}
		if err != nil {
			log.Error().Err(err).Int("fixture", i).Msg("Failed to store appointment")
			failed++
			continue
		}
		result.Appointments++
		logProgress(collection, i+1, len(fixtures))
	}

	s.finish(collection, startTime, len(fixtures), result.Appointments, failed, result)
}

func (s *Seeder) finish(collection string, startTime time.Time, total, stored, failed int, result *Result) {
	result.Failed += failed
	status := "success"
	if failed > 0 {
		status = "partial"
	}
	metrics.RecordSeedMetrics(collection, startTime, status, stored, failed)
	logCompleted(collection, total, stored, failed)
}
