package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"stealthcompany.com/medadmin/internal/dal"
	"stealthcompany.com/medadmin/internal/models"
)

type doctorDocument struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty"`
	DoctorID        string              `bson:"doctorid"`
	Name            string              `bson:"name"`
	Email           string              `bson:"email"`
	Phone           string              `bson:"phone,omitempty"`
	Specialization  string              `bson:"specialization"`
	HospitalName    string              `bson:"hospitalName"`
	Location        string              `bson:"location"`
	LicenseNumber   string              `bson:"licenseNumber,omitempty"`
	Status          models.DoctorStatus `bson:"status"`
	LicenseVerified bool                `bson:"licenseVerified"`
	PasswordHash    string              `bson:"passwordHash,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt"`
}

func newDoctorDocument(d *models.Doctor) doctorDocument {
	return doctorDocument{
		DoctorID:        d.DoctorID,
		Name:            d.Name,
		Email:           d.Email,
		Phone:           d.Phone,
		Specialization:  d.Specialization,
		HospitalName:    d.HospitalName,
		Location:        d.Location,
		LicenseNumber:   d.LicenseNumber,
		Status:          d.Status,
		LicenseVerified: d.LicenseVerified,
		PasswordHash:    d.PasswordHash,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func (d doctorDocument) model() models.Doctor {
	return models.Doctor{
		DoctorID:        d.DoctorID,
		Name:            d.Name,
		Email:           d.Email,
		Phone:           d.Phone,
		Specialization:  d.Specialization,
		HospitalName:    d.HospitalName,
		Location:        d.Location,
		LicenseNumber:   d.LicenseNumber,
		Status:          d.Status,
		LicenseVerified: d.LicenseVerified,
		PasswordHash:    d.PasswordHash,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type patientDocument struct {
	ID        primitive.ObjectID        `bson:"_id,omitempty"`
	Name      string                    `bson:"name"`
	Email     string                    `bson:"email"`
	Username  string                    `bson:"username"`
	Phone     string                    `bson:"phone,omitempty"`
	Age       int                       `bson:"age,omitempty"`
	Gender    string                    `bson:"gender,omitempty"`
	Address   string                    `bson:"address,omitempty"`
	Verified  models.VerificationMethod `bson:"verified"`
	CreatedAt time.Time                 `bson:"createdAt"`
}

func newPatientDocument(p *models.Patient, id primitive.ObjectID) patientDocument {
	return patientDocument{
		ID:        id,
		Name:      p.Name,
		Email:     p.Email,
		Username:  p.Username,
		Phone:     p.Phone,
		Age:       p.Age,
		Gender:    p.Gender,
		Address:   p.Address,
		Verified:  p.Verified,
		CreatedAt: p.CreatedAt,
	}
}

func (d patientDocument) model() models.Patient {
	return models.Patient{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Email:     d.Email,
		Username:  d.Username,
		Phone:     d.Phone,
		Age:       d.Age,
		Gender:    d.Gender,
		Address:   d.Address,
		Verified:  d.Verified,
		CreatedAt: d.CreatedAt,
	}
}

type appointmentDocument struct {
	ID        primitive.ObjectID       `bson:"_id,omitempty"`
	PatientID primitive.ObjectID       `bson:"patientId"`
	DoctorID  string                   `bson:"doctorid"`
	Date      string                   `bson:"date,omitempty"`
	TimeSlot  string                   `bson:"timeSlot,omitempty"`
	Reason    string                   `bson:"reason,omitempty"`
	Status    models.AppointmentStatus `bson:"status"`
	CreatedAt time.Time                `bson:"createdAt"`
}

func (d appointmentDocument) model() models.Appointment {
	return models.Appointment{
		ID:        d.ID.Hex(),
		PatientID: d.PatientID.Hex(),
		DoctorID:  d.DoctorID,
		Date:      d.Date,
		TimeSlot:  d.TimeSlot,
		Reason:    d.Reason,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
	}
}

// objectID parses a hex id. A malformed id can never match a stored
// document, so it is reported as not found.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, dal.ErrNotFound
	}
	return oid, nil
}
