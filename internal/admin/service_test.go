package admin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"stealthcompany.com/medadmin/internal/dal"
	"stealthcompany.com/medadmin/internal/dal/dalmock"
	"stealthcompany.com/medadmin/internal/memstore"
	"stealthcompany.com/medadmin/internal/models"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu       sync.Mutex
	approved []string
	rejected []string
	err      error
}

func (n *recordingNotifier) NotifyDoctorApproved(_ context.Context, d models.Doctor) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approved = append(n.approved, d.Email)
	return n.err
}

func (n *recordingNotifier) NotifyDoctorRejected(_ context.Context, d models.Doctor) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejected = append(n.rejected, d.Email)
	return n.err
}

// blockingNotifier holds every notification until release is closed or
// the send context ends
type blockingNotifier struct {
	release chan struct{}
	result  chan error
}

func (n *blockingNotifier) wait(ctx context.Context) error {
	select {
	case <-n.release:
		n.result <- nil
		return nil
	case <-ctx.Done():
		n.result <- ctx.Err()
		return ctx.Err()
	}
}

func (n *blockingNotifier) NotifyDoctorApproved(ctx context.Context, _ models.Doctor) error {
	return n.wait(ctx)
}

func (n *blockingNotifier) NotifyDoctorRejected(ctx context.Context, _ models.Doctor) error {
	return n.wait(ctx)
}

func waitNotified(t *testing.T, svc *Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, svc.WaitNotifications(ctx))
}

func setupTestService(t *testing.T, strict bool) (*Service, *memstore.Store, *recordingNotifier) {
	t.Helper()
	store := memstore.New()
	notifier := &recordingNotifier{}
	svc := NewService(store, Options{
		Strict:   strict,
		Now:      func() time.Time { return testNow },
		Notifier: notifier,
	})
	return svc, store, notifier
}

func insertDoctor(t *testing.T, store *memstore.Store, id string, status models.DoctorStatus) {
	t.Helper()
	require.NoError(t, store.InsertDoctor(context.Background(), &models.Doctor{
		DoctorID:       id,
		Name:           "Dr " + id,
		Email:          id + "@clinic.test",
		Specialization: "Cardiology",
		HospitalName:   "City Hospital",
		Location:       "Pune",
		Status:         status,
		PasswordHash:   "$2a$10$hash",
		CreatedAt:      testNow.Add(-time.Hour),
	}))
}

func insertPatient(t *testing.T, store *memstore.Store, name string, verified models.VerificationMethod, created time.Time) string {
	t.Helper()
	p := &models.Patient{
		Name:      name,
		Email:     name + "@mail.test",
		Username:  name,
		Phone:     "555-0100",
		Age:       41,
		Gender:    "female",
		Address:   "12 Main St",
		Verified:  verified,
		CreatedAt: created,
	}
	require.NoError(t, store.InsertPatient(context.Background(), p))
	return p.ID
}

func insertAppointment(t *testing.T, store *memstore.Store, patientID, doctorID string, status models.AppointmentStatus, created time.Time) string {
	t.Helper()
	a := &models.Appointment{
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      "2026-03-12",
		TimeSlot:  "10:00-10:30",
		Status:    status,
		CreatedAt: created,
	}
	require.NoError(t, store.InsertAppointment(context.Background(), a))
	return a.ID
}

func TestApproveDoctor_SetsStatusAndLicenseTogether(t *testing.T) {
	svc, store, notifier := setupTestService(t, true)
	ctx := context.Background()
	insertDoctor(t, store, "doc-1", models.DoctorPending)

	approved, err := svc.ApproveDoctor(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.DoctorApproved, approved.Status)
	assert.True(t, approved.LicenseVerified)

	detail, err := svc.DoctorDetail(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.DoctorApproved, detail.Status)
	assert.True(t, detail.LicenseVerified)
	assert.Empty(t, detail.PasswordHash)

	waitNotified(t, svc)
	assert.Equal(t, []string{"doc-1@clinic.test"}, notifier.approved)
}

func TestApproveDoctor_Missing(t *testing.T) {
	t.Run("strict", func(t *testing.T) {
		svc, _, notifier := setupTestService(t, true)
		_, err := svc.ApproveDoctor(context.Background(), "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Empty(t, notifier.approved)
	})

	t.Run("permissive", func(t *testing.T) {
		svc, store, notifier := setupTestService(t, false)
		doctor, err := svc.ApproveDoctor(context.Background(), "ghost")
		assert.NoError(t, err)
		assert.Nil(t, doctor)
		assert.Empty(t, notifier.approved)

		n, err := store.CountDoctors(context.Background(), dal.DoctorFilter{})
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestApproveDoctor_NotificationFailureIsNotFatal(t *testing.T) {
	svc, store, notifier := setupTestService(t, true)
	notifier.err = errors.New("smtp down")
	insertDoctor(t, store, "doc-1", models.DoctorPending)

	doctor, err := svc.ApproveDoctor(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.DoctorApproved, doctor.Status)
	waitNotified(t, svc)
	assert.Equal(t, []string{"doc-1@clinic.test"}, notifier.approved)
}

func TestApproveDoctor_DoesNotWaitForNotification(t *testing.T) {
	store := memstore.New()
	insertDoctor(t, store, "doc-1", models.DoctorPending)
	notifier := &blockingNotifier{release: make(chan struct{}), result: make(chan error, 1)}
	svc := NewService(store, Options{Strict: true, Now: func() time.Time { return testNow }, Notifier: notifier})

	doctor, err := svc.ApproveDoctor(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.DoctorApproved, doctor.Status)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.WaitNotifications(ctx), context.DeadlineExceeded)

	close(notifier.release)
	waitNotified(t, svc)
	assert.NoError(t, <-notifier.result)
}

func TestRejectDoctor_NotificationIsBoundedAndDetached(t *testing.T) {
	store := memstore.New()
	insertDoctor(t, store, "doc-1", models.DoctorPending)
	notifier := &blockingNotifier{release: make(chan struct{}), result: make(chan error, 1)}
	svc := NewService(store, Options{
		Strict:        true,
		Now:           func() time.Time { return testNow },
		Notifier:      notifier,
		NotifyTimeout: 50 * time.Millisecond,
	})

	// the request context ends as soon as the handler returns
	reqCtx, cancelReq := context.WithCancel(context.Background())
	_, err := svc.RejectDoctor(reqCtx, "doc-1")
	require.NoError(t, err)
	cancelReq()

	waitNotified(t, svc)
	assert.ErrorIs(t, <-notifier.result, context.DeadlineExceeded)
}

func TestRejectDoctor_RemovesRecord(t *testing.T) {
	svc, store, notifier := setupTestService(t, true)
	ctx := context.Background()
	insertDoctor(t, store, "doc-1", models.DoctorPending)

	rejected, err := svc.RejectDoctor(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1@clinic.test", rejected.Email)
	assert.Empty(t, rejected.PasswordHash)
	waitNotified(t, svc)
	assert.Equal(t, []string{"doc-1@clinic.test"}, notifier.rejected)

	_, err = svc.DoctorDetail(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRejectDoctor_MissingIsNotFoundInBothModes(t *testing.T) {
	for _, strict := range []bool{true, false} {
		svc, _, notifier := setupTestService(t, strict)
		_, err := svc.RejectDoctor(context.Background(), "ghost")
		assert.ErrorIs(t, err, ErrNotFound, "strict=%v", strict)
		assert.Empty(t, notifier.rejected)
	}
}

func TestRemoveDoctor_KeepsRecord(t *testing.T) {
	svc, store, _ := setupTestService(t, true)
	ctx := context.Background()
	insertDoctor(t, store, "doc-1", models.DoctorApproved)

	_, err := svc.RemoveDoctor(ctx, "doc-1")
	require.NoError(t, err)

	detail, err := svc.DoctorDetail(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, models.DoctorRejected, detail.Status)

	_, err = svc.RemoveDoctor(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveDoctor_PermissiveMissingSucceeds(t *testing.T) {
	svc, _, _ := setupTestService(t, false)

	doctor, err := svc.RemoveDoctor(context.Background(), "ghost")
	assert.NoError(t, err)
	assert.Nil(t, doctor)
}

func TestDeleteDoctor_Idempotent(t *testing.T) {
	svc, store, _ := setupTestService(t, true)
	ctx := context.Background()
	insertDoctor(t, store, "doc-1", models.DoctorApproved)

	require.NoError(t, svc.DeleteDoctor(ctx, "doc-1"))
	require.NoError(t, svc.DeleteDoctor(ctx, "doc-1"))

	_, err := svc.DoctorDetail(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDashboard_Counts(t *testing.T) {
	svc, store, _ := setupTestService(t, true)
	insertDoctor(t, store, "p1", models.DoctorPending)
	insertDoctor(t, store, "p2", models.DoctorPending)
	insertDoctor(t, store, "a1", models.DoctorApproved)
	insertDoctor(t, store, "r1", models.DoctorRejected)

	view, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Len(t, view.PendingDoctors, 2)
	assert.Len(t, view.ApprovedDoctors, 1)
	assert.Equal(t, 1, view.ApprovedDoctorsCount)
	assert.Equal(t, 1, view.RejectedDoctorsCount)
	assert.Equal(t, 4, view.TotalDoctorsCount)
	assert.GreaterOrEqual(t, view.TotalDoctorsCount, view.ApprovedDoctorsCount+view.RejectedDoctorsCount)
	for _, d := range append(view.PendingDoctors, view.ApprovedDoctors...) {
		assert.Empty(t, d.PasswordHash)
	}
}

func TestDashboard_EmptyStoreHasEmptyLists(t *testing.T) {
	svc, _, _ := setupTestService(t, true)

	view, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, view.PendingDoctors)
	assert.NotNil(t, view.ApprovedDoctors)
	assert.Zero(t, view.TotalDoctorsCount)
}

func TestManageDoctors_Counts(t *testing.T) {
	svc, store, _ := setupTestService(t, true)
	insertDoctor(t, store, "p1", models.DoctorPending)
	insertDoctor(t, store, "a1", models.DoctorApproved)
	insertDoctor(t, store, "a2", models.DoctorApproved)
	insertDoctor(t, store, "r1", models.DoctorRejected)

	view, err := svc.ManageDoctors(context.Background())
	require.NoError(t, err)

	assert.Len(t, view.Doctors, 4)
	assert.Equal(t, 4, view.TotalDoctorsCount)
	assert.Equal(t, 2, view.ApprovedDoctorsCount)
	assert.Equal(t, 1, view.PendingDoctorsCount)
	assert.Equal(t, 1, view.RejectedDoctorsCount)
}

func TestPatients_NewestFirstWithCounts(t *testing.T) {
	svc, store, _ := setupTestService(t, true)
	insertPatient(t, store, "old", models.VerifiedNormal, testNow.Add(-48*time.Hour))
	insertPatient(t, store, "new", models.VerifiedGoogle, testNow.Add(-time.Hour))
	insertPatient(t, store, "mid", models.VerifiedGoogle, testNow.Add(-24*time.Hour))

	view, err := svc.Patients(context.Background())
	require.NoError(t, err)

	require.Len(t, view.Patients, 3)
	assert.Equal(t, "new", view.Patients[0].Name)
	assert.Equal(t, "mid", view.Patients[1].Name)
	assert.Equal(t, "old", view.Patients[2].Name)
	assert.Equal(t, 3, view.TotalPatientsCount)
	assert.Equal(t, 2, view.GoogleVerifiedCount)
	assert.Equal(t, 1, view.NormalVerifiedCount)
}

func TestPatientDetail(t *testing.T) {
	svc, store, _ := setupTestService(t, true)
	ctx := context.Background()
	id := insertPatient(t, store, "ana", models.VerifiedNormal, testNow)

	patient, err := svc.PatientDetail(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ana", patient.Name)

	_, err = svc.PatientDetail(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePatient_Idempotent(t *testing.T) {
	svc, store, _ := setupTestService(t, true)
	ctx := context.Background()
	id := insertPatient(t, store, "ana", models.VerifiedNormal, testNow)

	require.NoError(t, svc.DeletePatient(ctx, id))
	require.NoError(t, svc.DeletePatient(ctx, id))

	_, err := svc.PatientDetail(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppointments_RecentWindow(t *testing.T) {
	svc, store, _ := setupTestService(t, true)
	pid := insertPatient(t, store, "ana", models.VerifiedNormal, testNow.AddDate(0, -1, 0))

	old := insertAppointment(t, store, pid, "doc-1", models.AppointmentPending, testNow.AddDate(0, 0, -10))
	boundary := insertAppointment(t, store, pid, "doc-1", models.AppointmentConfirmed, testNow.AddDate(0, 0, -5))
	fresh := insertAppointment(t, store, pid, "doc-1", models.AppointmentPending, testNow.Add(-time.Hour))

	view, err := svc.Appointments(context.Background())
	require.NoError(t, err)

	ids := func(list []models.Appointment) []string {
		out := make([]string, 0, len(list))
		for _, a := range list {
			out = append(out, a.ID)
		}
		return out
	}
	assert.Equal(t, []string{fresh, boundary, old}, ids(view.Appointments))
	assert.Equal(t, []string{fresh, boundary}, ids(view.RecentAppointments))

	assert.Equal(t, 3, view.TotalAppointmentsCount)
	assert.Equal(t, 2, view.PendingAppointmentsCount)
	assert.Equal(t, 1, view.ConfirmedAppointmentsCount)
	assert.Equal(t, len(view.RecentAppointments), view.RecentAppointmentsCount)
	assert.LessOrEqual(t, view.RecentAppointmentsCount, view.TotalAppointmentsCount)

	cutoff := svc.RecentCutoff(testNow)
	for _, a := range view.RecentAppointments {
		assert.False(t, a.CreatedAt.Before(cutoff))
	}
}

func TestAppointments_PatientListingProjection(t *testing.T) {
	svc, store, _ := setupTestService(t, true)
	pid := insertPatient(t, store, "ana", models.VerifiedNormal, testNow)
	insertAppointment(t, store, pid, "doc-1", models.AppointmentPending, testNow)
	insertAppointment(t, store, "deleted-patient", "doc-1", models.AppointmentPending, testNow.Add(-time.Minute))

	view, err := svc.Appointments(context.Background())
	require.NoError(t, err)
	require.Len(t, view.Appointments, 2)

	patient := view.Appointments[0].Patient
	require.NotNil(t, patient)
	assert.Equal(t, "ana", patient.Name)
	assert.Equal(t, "ana@mail.test", patient.Email)
	assert.Equal(t, "ana", patient.Username)
	assert.Empty(t, patient.Phone)

	assert.Nil(t, view.Appointments[1].Patient)
}

func TestAppointmentDetail(t *testing.T) {
	svc, store, _ := setupTestService(t, true)
	ctx := context.Background()
	insertDoctor(t, store, "doc-1", models.DoctorApproved)
	pid := insertPatient(t, store, "ana", models.VerifiedNormal, testNow)
	withDoctor := insertAppointment(t, store, pid, "doc-1", models.AppointmentPending, testNow)
	orphan := insertAppointment(t, store, pid, "gone", models.AppointmentPending, testNow)

	detail, err := svc.AppointmentDetail(ctx, withDoctor)
	require.NoError(t, err)
	require.NotNil(t, detail.Doctor)
	assert.Equal(t, "Dr doc-1", detail.Doctor.Name)
	assert.Equal(t, "Cardiology", detail.Doctor.Specialization)
	require.NotNil(t, detail.Appointment.Patient)
	assert.Equal(t, "555-0100", detail.Appointment.Patient.Phone)
	assert.Equal(t, 41, detail.Appointment.Patient.Age)
	assert.Equal(t, "12 Main St", detail.Appointment.Patient.Address)

	detail, err = svc.AppointmentDetail(ctx, orphan)
	require.NoError(t, err)
	assert.Nil(t, detail.Doctor)

	_, err = svc.AppointmentDetail(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAppointment_Idempotent(t *testing.T) {
	svc, store, _ := setupTestService(t, true)
	ctx := context.Background()
	id := insertAppointment(t, store, "p", "d", models.AppointmentPending, testNow)

	require.NoError(t, svc.DeleteAppointment(ctx, id))
	require.NoError(t, svc.DeleteAppointment(ctx, id))
}

func TestUpdateAppointmentStatus_Strict(t *testing.T) {
	svc, store, _ := setupTestService(t, true)
	ctx := context.Background()
	pid := insertPatient(t, store, "ana", models.VerifiedNormal, testNow)
	id := insertAppointment(t, store, pid, "doc-1", models.AppointmentPending, testNow)

	updated, err := svc.UpdateAppointmentStatus(ctx, id, "confirmed")
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentConfirmed, updated.Status)
	require.NotNil(t, updated.Patient)
	assert.Equal(t, "ana", updated.Patient.Name)
	assert.Equal(t, "ana@mail.test", updated.Patient.Email)
	assert.Empty(t, updated.Patient.Username)

	// same-state writes are allowed
	_, err = svc.UpdateAppointmentStatus(ctx, id, "confirmed")
	require.NoError(t, err)

	_, err = svc.UpdateAppointmentStatus(ctx, id, "rescheduled")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateAppointmentStatus(ctx, id, "pending")
	var transitionErr *TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, models.AppointmentConfirmed, transitionErr.From)
	assert.Equal(t, models.AppointmentPending, transitionErr.To)

	_, err = svc.UpdateAppointmentStatus(ctx, id, "completed")
	require.NoError(t, err)

	_, err = svc.UpdateAppointmentStatus(ctx, id, "cancelled")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.UpdateAppointmentStatus(ctx, "missing", "confirmed")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAppointmentStatus_PermissiveAcceptsAnyString(t *testing.T) {
	svc, store, _ := setupTestService(t, false)
	ctx := context.Background()
	id := insertAppointment(t, store, "p", "doc-1", models.AppointmentCompleted, testNow)

	updated, err := svc.UpdateAppointmentStatus(ctx, id, "rescheduled")
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatus("rescheduled"), updated.Status)

	stored, err := store.GetAppointment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatus("rescheduled"), stored.Status)

	updated, err = svc.UpdateAppointmentStatus(ctx, "missing", "confirmed")
	assert.NoError(t, err)
	assert.Nil(t, updated)
}

func TestUpdateAppointmentStatus_PermissiveEmptyStatusIsNoOp(t *testing.T) {
	svc, store, _ := setupTestService(t, false)
	ctx := context.Background()
	patientID := insertPatient(t, store, "ann", models.VerifiedNormal, testNow)
	id := insertAppointment(t, store, patientID, "doc-1", models.AppointmentConfirmed, testNow)

	updated, err := svc.UpdateAppointmentStatus(ctx, id, "")
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentConfirmed, updated.Status)
	require.NotNil(t, updated.Patient)
	assert.Equal(t, "ann", updated.Patient.Name)
	assert.Empty(t, updated.Patient.Phone)

	stored, err := store.GetAppointment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentConfirmed, stored.Status)

	updated, err = svc.UpdateAppointmentStatus(ctx, "missing", "")
	assert.NoError(t, err)
	assert.Nil(t, updated)
}

func TestUpdateAppointmentStatus_StrictEmptyStatusIsInvalid(t *testing.T) {
	svc, store, _ := setupTestService(t, true)
	id := insertAppointment(t, store, "p", "doc-1", models.AppointmentPending, testNow)

	_, err := svc.UpdateAppointmentStatus(context.Background(), id, "")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateAppointmentStatus_ConcurrentChangeIsConflict(t *testing.T) {
	store := &dalmock.MockStore{}
	svc := NewService(store, Options{Strict: true, Now: func() time.Time { return testNow }})
	ctx := context.Background()

	store.On("GetAppointment", ctx, "a1").Return(&models.Appointment{ID: "a1", Status: models.AppointmentPending}, nil)
	store.On("UpdateAppointmentStatus", ctx, "a1", models.AppointmentStatusUpdate{
		Status:   models.AppointmentConfirmed,
		Expected: models.AppointmentPending,
	}).Return(nil, dal.ErrConflict)

	_, err := svc.UpdateAppointmentStatus(ctx, "a1", "confirmed")
	assert.ErrorIs(t, err, ErrConflict)
	store.AssertExpectations(t)
}

func TestStoreFailuresPropagate(t *testing.T) {
	boom := errors.New("connection reset")
	store := &dalmock.MockStore{}
	svc := NewService(store, Options{Strict: true})
	ctx := context.Background()

	store.On("FindDoctors", ctx, mock.Anything).Return(nil, boom)
	store.On("GetDoctor", ctx, "d1").Return(nil, boom)
	store.On("DeletePatient", ctx, "p1").Return(boom)
	store.On("FindAppointments", ctx, mock.Anything).Return(nil, boom)

	_, err := svc.Dashboard(ctx)
	assert.ErrorIs(t, err, boom)

	_, err = svc.DoctorDetail(ctx, "d1")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)

	err = svc.DeletePatient(ctx, "p1")
	assert.ErrorIs(t, err, boom)

	_, err = svc.Appointments(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestRecentCutoffUsesCalendarDays(t *testing.T) {
	svc := NewService(memstore.New(), Options{RecentWindowDays: 5})

	assert.Equal(t, testNow.AddDate(0, 0, -5), svc.RecentCutoff(testNow))
}
