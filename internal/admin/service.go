// Package admin implements the back-office operations over doctors,
// patients and appointments.
package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/medadmin/internal/dal"
	"stealthcompany.com/medadmin/internal/metrics"
	"stealthcompany.com/medadmin/internal/models"
)

// DefaultRecentWindowDays is how far back the recent appointments list reaches
const DefaultRecentWindowDays = 5

// DefaultNotifyTimeout bounds a single doctor notification
const DefaultNotifyTimeout = 30 * time.Second

// Notifier tells a doctor about the outcome of their registration
type Notifier interface {
	NotifyDoctorApproved(ctx context.Context, doctor models.Doctor) error
	NotifyDoctorRejected(ctx context.Context, doctor models.Doctor) error
}

// Options configures a Service
type Options struct {
	// Strict surfaces not-found on every mutation and validates appointment
	// status changes against the state machine. When false, approve,
	// remove and status updates on missing ids succeed silently and any
	// status string is stored.
	Strict bool
	// RecentWindowDays defaults to DefaultRecentWindowDays
	RecentWindowDays int
	// Now defaults to time.Now
	Now func() time.Time
	// Notifier may be nil
	Notifier Notifier
	// NotifyTimeout defaults to DefaultNotifyTimeout
	NotifyTimeout time.Duration
}

// Service runs admin operations against a store. It is safe for
// concurrent use. Notifications are sent in the background.
type Service struct {
	store         dal.Store
	strict        bool
	recentDays    int
	now           func() time.Time
	notifier      Notifier
	notifyTimeout time.Duration
	pending       sync.WaitGroup
}

// NewService creates a Service over store
func NewService(store dal.Store, opts Options) *Service {
	if opts.RecentWindowDays <= 0 {
		opts.RecentWindowDays = DefaultRecentWindowDays
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = DefaultNotifyTimeout
	}
	return &Service{
		store:         store,
		strict:        opts.Strict,
		recentDays:    opts.RecentWindowDays,
		now:           opts.Now,
		notifier:      opts.Notifier,
		notifyTimeout: opts.NotifyTimeout,
	}
}

// Strict reports whether the service runs in strict mode
func (s *Service) Strict() bool {
	return s.strict
}

// Dashboard returns pending and approved doctors with status counts
func (s *Service) Dashboard(ctx context.Context) (*DashboardView, error) {
	pending, err := s.store.FindDoctors(ctx, dal.DoctorFilter{Status: models.DoctorPending})
	if err != nil {
		return nil, fmt.Errorf("find pending doctors: %w", err)
	}
	approved, err := s.store.FindDoctors(ctx, dal.DoctorFilter{Status: models.DoctorApproved})
	if err != nil {
		return nil, fmt.Errorf("find approved doctors: %w", err)
	}

	view := &DashboardView{
		PendingDoctors:  redactAll(pending),
		ApprovedDoctors: redactAll(approved),
	}
	if view.ApprovedDoctorsCount, err = s.store.CountDoctors(ctx, dal.DoctorFilter{Status: models.DoctorApproved}); err != nil {
		return nil, fmt.Errorf("count approved doctors: %w", err)
	}
	if view.RejectedDoctorsCount, err = s.store.CountDoctors(ctx, dal.DoctorFilter{Status: models.DoctorRejected}); err != nil {
		return nil, fmt.Errorf("count rejected doctors: %w", err)
	}
	if view.TotalDoctorsCount, err = s.store.CountDoctors(ctx, dal.DoctorFilter{}); err != nil {
		return nil, fmt.Errorf("count doctors: %w", err)
	}
	return view, nil
}

// DoctorDetail returns one doctor without the credential hash
func (s *Service) DoctorDetail(ctx context.Context, doctorID string) (*models.Doctor, error) {
	doctor, err := s.store.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, notFound(err, "doctor %s", doctorID)
	}
	redacted := doctor.Redacted()
	return &redacted, nil
}

// ApproveDoctor sets status=approved and licenseVerified=true in one write.
// In permissive mode a missing doctor yields (nil, nil).
func (s *Service) ApproveDoctor(ctx context.Context, doctorID string) (*models.Doctor, error) {
	status := models.DoctorApproved
	verified := true
	doctor, err := s.updateDoctor(ctx, "approve_doctor", doctorID, models.DoctorUpdate{
		Status:          &status,
		LicenseVerified: &verified,
	})
	if err != nil || doctor == nil {
		return doctor, err
	}

	s.notify(ctx, "approval", *doctor, s.notifyApproved)
	redacted := doctor.Redacted()
	return &redacted, nil
}

// RejectDoctor deletes a pending registration after reading it for the
// rejection notice
func (s *Service) RejectDoctor(ctx context.Context, doctorID string) (*models.Doctor, error) {
	doctor, err := s.store.GetDoctor(ctx, doctorID)
	if err != nil {
		err = notFound(err, "doctor %s", doctorID)
		s.record("reject_doctor", err)
		return nil, err
	}

	if err := s.store.DeleteDoctor(ctx, doctorID); err != nil && !errors.Is(err, dal.ErrNotFound) {
		s.record("reject_doctor", err)
		return nil, fmt.Errorf("delete doctor %s: %w", doctorID, err)
	}
	s.record("reject_doctor", nil)

	s.notify(ctx, "rejection", *doctor, s.notifyRejected)
	redacted := doctor.Redacted()
	return &redacted, nil
}

// ManageDoctors returns every doctor with per-status counts
func (s *Service) ManageDoctors(ctx context.Context) (*ManageDoctorsView, error) {
	doctors, err := s.store.FindDoctors(ctx, dal.DoctorFilter{})
	if err != nil {
		return nil, fmt.Errorf("find doctors: %w", err)
	}

	view := &ManageDoctorsView{Doctors: redactAll(doctors)}
	if view.TotalDoctorsCount, err = s.store.CountDoctors(ctx, dal.DoctorFilter{}); err != nil {
		return nil, fmt.Errorf("count doctors: %w", err)
	}
	if view.ApprovedDoctorsCount, err = s.store.CountDoctors(ctx, dal.DoctorFilter{Status: models.DoctorApproved}); err != nil {
		return nil, fmt.Errorf("count approved doctors: %w", err)
	}
	if view.PendingDoctorsCount, err = s.store.CountDoctors(ctx, dal.DoctorFilter{Status: models.DoctorPending}); err != nil {
		return nil, fmt.Errorf("count pending doctors: %w", err)
	}
	if view.RejectedDoctorsCount, err = s.store.CountDoctors(ctx, dal.DoctorFilter{Status: models.DoctorRejected}); err != nil {
		return nil, fmt.Errorf("count rejected doctors: %w", err)
	}
	return view, nil
}

// RemoveDoctor marks a doctor rejected and keeps the record.
// In permissive mode a missing doctor yields (nil, nil).
func (s *Service) RemoveDoctor(ctx context.Context, doctorID string) (*models.Doctor, error) {
	status := models.DoctorRejected
	doctor, err := s.updateDoctor(ctx, "remove_doctor", doctorID, models.DoctorUpdate{Status: &status})
	if err != nil || doctor == nil {
		return doctor, err
	}
	redacted := doctor.Redacted()
	return &redacted, nil
}

// DeleteDoctor removes a doctor permanently. Deleting a missing doctor succeeds.
func (s *Service) DeleteDoctor(ctx context.Context, doctorID string) error {
	err := ignoreNotFound(s.store.DeleteDoctor(ctx, doctorID))
	s.record("delete_doctor", err)
	if err != nil {
		return fmt.Errorf("delete doctor %s: %w", doctorID, err)
	}
	return nil
}

// Patients returns every patient, newest first, with verification counts
func (s *Service) Patients(ctx context.Context) (*PatientRecordsView, error) {
	patients, err := s.store.FindPatients(ctx, dal.PatientFilter{})
	if err != nil {
		return nil, fmt.Errorf("find patients: %w", err)
	}
	if patients == nil {
		patients = []models.Patient{}
	}

	view := &PatientRecordsView{Patients: patients}
	if view.TotalPatientsCount, err = s.store.CountPatients(ctx, dal.PatientFilter{}); err != nil {
		return nil, fmt.Errorf("count patients: %w", err)
	}
	if view.GoogleVerifiedCount, err = s.store.CountPatients(ctx, dal.PatientFilter{Verified: models.VerifiedGoogle}); err != nil {
		return nil, fmt.Errorf("count google patients: %w", err)
	}
	if view.NormalVerifiedCount, err = s.store.CountPatients(ctx, dal.PatientFilter{Verified: models.VerifiedNormal}); err != nil {
		return nil, fmt.Errorf("count normal patients: %w", err)
	}
	return view, nil
}

// PatientDetail returns one patient
func (s *Service) PatientDetail(ctx context.Context, id string) (*models.Patient, error) {
	patient, err := s.store.GetPatient(ctx, id)
	if err != nil {
		return nil, notFound(err, "patient %s", id)
	}
	return patient, nil
}

// DeletePatient removes a patient permanently. Deleting a missing patient succeeds.
func (s *Service) DeletePatient(ctx context.Context, id string) error {
	err := ignoreNotFound(s.store.DeletePatient(ctx, id))
	s.record("delete_patient", err)
	if err != nil {
		return fmt.Errorf("delete patient %s: %w", id, err)
	}
	return nil
}

// RecentCutoff is the earliest createdAt included in the recent list for a
// request arriving at now
func (s *Service) RecentCutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -s.recentDays)
}

// Appointments returns all appointments and those created within the
// recent window, both newest first with the patient expanded
func (s *Service) Appointments(ctx context.Context) (*AppointmentsView, error) {
	cutoff := s.RecentCutoff(s.now())

	all, err := s.store.FindAppointments(ctx, dal.AppointmentFilter{})
	if err != nil {
		return nil, fmt.Errorf("find appointments: %w", err)
	}
	recent, err := s.store.FindAppointments(ctx, dal.AppointmentFilter{CreatedSince: cutoff})
	if err != nil {
		return nil, fmt.Errorf("find recent appointments: %w", err)
	}

	if all, err = s.expandPatients(ctx, all, models.ProjectListing); err != nil {
		return nil, err
	}
	if recent, err = s.expandPatients(ctx, recent, models.ProjectListing); err != nil {
		return nil, err
	}

	view := &AppointmentsView{
		Appointments:            all,
		RecentAppointments:      recent,
		RecentAppointmentsCount: len(recent),
	}
	if view.TotalAppointmentsCount, err = s.store.CountAppointments(ctx, dal.AppointmentFilter{}); err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}
	if view.PendingAppointmentsCount, err = s.store.CountAppointments(ctx, dal.AppointmentFilter{Status: models.AppointmentPending}); err != nil {
		return nil, fmt.Errorf("count pending appointments: %w", err)
	}
	if view.ConfirmedAppointmentsCount, err = s.store.CountAppointments(ctx, dal.AppointmentFilter{Status: models.AppointmentConfirmed}); err != nil {
		return nil, fmt.Errorf("count confirmed appointments: %w", err)
	}
	return view, nil
}

// AppointmentDetail returns an appointment with the full patient projection
// and a summary of its doctor, looked up by doctorid
func (s *Service) AppointmentDetail(ctx context.Context, id string) (*AppointmentDetail, error) {
	appointment, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, notFound(err, "appointment %s", id)
	}

	expanded, err := s.expandPatients(ctx, []models.Appointment{*appointment}, models.ProjectDetail)
	if err != nil {
		return nil, err
	}
	detail := &AppointmentDetail{Appointment: expanded[0]}

	doctor, err := s.store.GetDoctor(ctx, appointment.DoctorID)
	switch {
	case err == nil:
		summary := doctor.Summary()
		detail.Doctor = &summary
	case errors.Is(err, dal.ErrNotFound):
		log.Warn().Str("appointmentId", id).Str("doctorid", appointment.DoctorID).Msg("Appointment references a missing doctor")
	default:
		return nil, fmt.Errorf("find doctor %s: %w", appointment.DoctorID, err)
	}
	return detail, nil
}

// DeleteAppointment removes an appointment permanently. Deleting a missing
// appointment succeeds.
func (s *Service) DeleteAppointment(ctx context.Context, id string) error {
	err := ignoreNotFound(s.store.DeleteAppointment(ctx, id))
	s.record("delete_appointment", err)
	if err != nil {
		return fmt.Errorf("delete appointment %s: %w", id, err)
	}
	return nil
}

// UpdateAppointmentStatus stores a new status and returns the appointment
// with the patient's name and email expanded.
//
// In strict mode the status must be known and reachable from the stored
// one; the write is conditional on the stored status so a concurrent change
// yields ErrConflict. In permissive mode any non-empty string is stored, an
// empty one leaves the record untouched, and a missing appointment yields
// (nil, nil).
func (s *Service) UpdateAppointmentStatus(ctx context.Context, id, status string) (*models.Appointment, error) {
	updated, err := s.writeAppointmentStatus(ctx, id, status)
	s.record("update_appointment_status", err)
	if err != nil || updated == nil {
		return nil, err
	}

	expanded, err := s.expandPatients(ctx, []models.Appointment{*updated}, models.ProjectContact)
	if err != nil {
		return nil, err
	}
	return &expanded[0], nil
}

func (s *Service) writeAppointmentStatus(ctx context.Context, id, raw string) (*models.Appointment, error) {
	if !s.strict && raw == "" {
		// nothing to write; answer with the stored record
		current, err := s.store.GetAppointment(ctx, id)
		if errors.Is(err, dal.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("find appointment %s: %w", id, err)
		}
		return current, nil
	}
	if !s.strict {
		updated, err := s.store.UpdateAppointmentStatus(ctx, id, models.AppointmentStatusUpdate{
			Status: models.AppointmentStatus(raw),
		})
		if errors.Is(err, dal.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("update appointment %s: %w", id, err)
		}
		return updated, nil
	}

	next, err := models.ParseAppointmentStatus(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}

	current, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, notFound(err, "appointment %s", id)
	}
	if !current.Status.CanTransitionTo(next) {
		return nil, &TransitionError{From: current.Status, To: next}
	}

	updated, err := s.store.UpdateAppointmentStatus(ctx, id, models.AppointmentStatusUpdate{
		Status:   next,
		Expected: current.Status,
	})
	switch {
	case errors.Is(err, dal.ErrConflict):
		return nil, fmt.Errorf("update appointment %s: %w", id, ErrConflict)
	case errors.Is(err, dal.ErrNotFound):
		return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("update appointment %s: %w", id, err)
	}
	return updated, nil
}

func (s *Service) updateDoctor(ctx context.Context, action, doctorID string, update models.DoctorUpdate) (*models.Doctor, error) {
	doctor, err := s.store.UpdateDoctor(ctx, doctorID, update)
	if errors.Is(err, dal.ErrNotFound) && !s.strict {
		log.Info().Str("doctorid", doctorID).Str("action", action).Msg("No doctor matched, nothing to update")
		s.record(action, nil)
		return nil, nil
	}
	if err != nil {
		err = notFound(err, "doctor %s", doctorID)
		s.record(action, err)
		return nil, err
	}
	s.record(action, nil)
	return doctor, nil
}

// expandPatients resolves the patient reference of each appointment with a
// single batched lookup. Unresolvable references stay nil.
func (s *Service) expandPatients(ctx context.Context, appointments []models.Appointment, proj models.PatientProjection) ([]models.Appointment, error) {
	if len(appointments) == 0 {
		return []models.Appointment{}, nil
	}

	seen := make(map[string]struct{}, len(appointments))
	ids := make([]string, 0, len(appointments))
	for _, a := range appointments {
		if a.PatientID == "" {
			continue
		}
		if _, ok := seen[a.PatientID]; ok {
			continue
		}
		seen[a.PatientID] = struct{}{}
		ids = append(ids, a.PatientID)
	}

	patients, err := s.store.PatientsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("expand patients: %w", err)
	}

	out := make([]models.Appointment, len(appointments))
	for i, a := range appointments {
		a.Patient = nil
		if p, ok := patients[a.PatientID]; ok {
			summary := p.Project(proj)
			a.Patient = &summary
		}
		out[i] = a
	}
	return out, nil
}

func (s *Service) notifyApproved(ctx context.Context, doctor models.Doctor) error {
	return s.notifier.NotifyDoctorApproved(ctx, doctor)
}

func (s *Service) notifyRejected(ctx context.Context, doctor models.Doctor) error {
	return s.notifier.NotifyDoctorRejected(ctx, doctor)
}

// notify sends a doctor notification in the background, detached from the
// request and bounded by notifyTimeout. Failures are logged only.
func (s *Service) notify(ctx context.Context, kind string, doctor models.Doctor, send func(context.Context, models.Doctor) error) {
	if s.notifier == nil {
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
		defer cancel()

		if err := send(sendCtx, doctor); err != nil {
			log.Error().Err(err).Str("doctorid", doctor.DoctorID).Str("notification", kind).Msg("Failed to notify doctor")
			return
		}
		log.Info().Str("doctorid", doctor.DoctorID).Str("notification", kind).Msg("Doctor notified")
	}()
}

// WaitNotifications blocks until background notifications finish or ctx is done
func (s *Service) WaitNotifications(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) record(action string, err error) {
	metrics.RecordAdminAction(action, resultOf(err))
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, ErrNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidTransition):
		return metrics.ResultInvalid
	case errors.Is(err, ErrConflict):
		return metrics.ResultConflict
	default:
		return metrics.ResultError
	}
}

// notFound maps a store miss onto ErrNotFound and wraps anything else
func notFound(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, dal.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("find %s: %w", what, err)
}

func ignoreNotFound(err error) error {
	if errors.Is(err, dal.ErrNotFound) {
		return nil
	}
	return err
}

func redactAll(doctors []models.Doctor) []models.Doctor {
	out := make([]models.Doctor, len(doctors))
	for i, d := range doctors {
		out[i] = d.Redacted()
	}
	return out
}
