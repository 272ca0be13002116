package mongostore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"stealthcompany.com/medadmin/internal/dal"
	"stealthcompany.com/medadmin/internal/models"
)

func TestObjectID(t *testing.T) {
	oid := primitive.NewObjectID()

	got, err := objectID(oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, oid, got)

	for _, bad := range []string{"", "not-an-id", "123"} {
		_, err := objectID(bad)
		assert.ErrorIs(t, err, dal.ErrNotFound, bad)
	}
}

func TestAppointmentQuery(t *testing.T) {
	since := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, bson.M{}, appointmentQuery(dal.AppointmentFilter{}))
	assert.Equal(t,
		bson.M{"status": models.AppointmentPending, "createdAt": bson.M{"$gte": since}},
		appointmentQuery(dal.AppointmentFilter{Status: models.AppointmentPending, CreatedSince: since}),
	)
}

func TestDoctorAndPatientQuery(t *testing.T) {
	assert.Equal(t, bson.M{}, doctorQuery(dal.DoctorFilter{}))
	assert.Equal(t, bson.M{"status": models.DoctorPending}, doctorQuery(dal.DoctorFilter{Status: models.DoctorPending}))
	assert.Equal(t, bson.M{"verified": models.VerifiedGoogle}, patientQuery(dal.PatientFilter{Verified: models.VerifiedGoogle}))
}

func TestDocumentRoundTrip(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	doctor := &models.Doctor{DoctorID: "d-1", Name: "Dr. A", Status: models.DoctorApproved, PasswordHash: "h", CreatedAt: created, UpdatedAt: created}
	assert.Equal(t, *doctor, newDoctorDocument(doctor).model())

	id := primitive.NewObjectID()
	patient := &models.Patient{Name: "P", Verified: models.VerifiedNormal, CreatedAt: created}
	got := newPatientDocument(patient, id).model()
	assert.Equal(t, id.Hex(), got.ID)
	assert.Equal(t, "P", got.Name)

	patientID := primitive.NewObjectID()
	appt := appointmentDocument{ID: id, PatientID: patientID, DoctorID: "d-1", Status: models.AppointmentPending}.model()
	assert.Equal(t, patientID.Hex(), appt.PatientID)
	assert.Nil(t, appt.Patient)
}
