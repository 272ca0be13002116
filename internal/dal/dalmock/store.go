// Package dalmock provides a testify mock of dal.Store for failure-path tests
package dalmock

import (
	"context"

	"github.com/stretchr/testify/mock"
	"stealthcompany.com/medadmin/internal/dal"
	"stealthcompany.com/medadmin/internal/models"
)

// MockStore is a mock implementation of dal.Store
type MockStore struct {
	mock.Mock
}

var _ dal.Store = (*MockStore)(nil)

func (m *MockStore) GetDoctor(ctx context.Context, doctorID string) (*models.Doctor, error) {
	args := m.Called(ctx, doctorID)
	doctor, _ := args.Get(0).(*models.Doctor)
	return doctor, args.Error(1)
}

func (m *MockStore) FindDoctors(ctx context.Context, filter dal.DoctorFilter) ([]models.Doctor, error) {
	args := m.Called(ctx, filter)
	doctors, _ := args.Get(0).([]models.Doctor)
	return doctors, args.Error(1)
}

func (m *MockStore) CountDoctors(ctx context.Context, filter dal.DoctorFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) InsertDoctor(ctx context.Context, doctor *models.Doctor) error {
	args := m.Called(ctx, doctor)
	return args.Error(0)
}

func (m *MockStore) UpdateDoctor(ctx context.Context, doctorID string, update models.DoctorUpdate) (*models.Doctor, error) {
	args := m.Called(ctx, doctorID, update)
	doctor, _ := args.Get(0).(*models.Doctor)
	return doctor, args.Error(1)
}

func (m *MockStore) DeleteDoctor(ctx context.Context, doctorID string) error {
	args := m.Called(ctx, doctorID)
	return args.Error(0)
}

func (m *MockStore) GetPatient(ctx context.Context, id string) (*models.Patient, error) {
	args := m.Called(ctx, id)
	patient, _ := args.Get(0).(*models.Patient)
	return patient, args.Error(1)
}

func (m *MockStore) FindPatients(ctx context.Context, filter dal.PatientFilter) ([]models.Patient, error) {
	args := m.Called(ctx, filter)
	patients, _ := args.Get(0).([]models.Patient)
	return patients, args.Error(1)
}

func (m *MockStore) CountPatients(ctx context.Context, filter dal.PatientFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) PatientsByIDs(ctx context.Context, ids []string) (map[string]models.Patient, error) {
	args := m.Called(ctx, ids)
	patients, _ := args.Get(0).(map[string]models.Patient)
	return patients, args.Error(1)
}

func (m *MockStore) InsertPatient(ctx context.Context, patient *models.Patient) error {
	args := m.Called(ctx, patient)
	return args.Error(0)
}

func (m *MockStore) DeletePatient(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	appointment, _ := args.Get(0).(*models.Appointment)
	return appointment, args.Error(1)
}

func (m *MockStore) FindAppointments(ctx context.Context, filter dal.AppointmentFilter) ([]models.Appointment, error) {
	args := m.Called(ctx, filter)
	appointments, _ := args.Get(0).([]models.Appointment)
	return appointments, args.Error(1)
}

func (m *MockStore) CountAppointments(ctx context.Context, filter dal.AppointmentFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) InsertAppointment(ctx context.Context, appointment *models.Appointment) error {
	args := m.Called(ctx, appointment)
	return args.Error(0)
}

func (m *MockStore) UpdateAppointmentStatus(ctx context.Context, id string, update models.AppointmentStatusUpdate) (*models.Appointment, error) {
	args := m.Called(ctx, id, update)
	appointment, _ := args.Get(0).(*models.Appointment)
	return appointment, args.Error(1)
}

func (m *MockStore) DeleteAppointment(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
