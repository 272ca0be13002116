package couchbase

import (
	"context"
	"fmt"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/google/uuid"
	"stealthcompany.com/medadmin/internal/dal"
	"stealthcompany.com/medadmin/internal/models"
)

// appointmentDocument is the stored shape of an appointment. The patient
// reference is kept as a bare id.
type appointmentDocument struct {
	ID        string                   `json:"id"`
	PatientID string                   `json:"patientId"`
	DoctorID  string                   `json:"doctorid"`
	Date      string                   `json:"date,omitempty"`
	TimeSlot  string                   `json:"timeSlot,omitempty"`
	Reason    string                   `json:"reason,omitempty"`
	Status    models.AppointmentStatus `json:"status"`
	CreatedAt time.Time                `json:"createdAt"`
}

func (d appointmentDocument) model() models.Appointment {
	return models.Appointment{
		ID:        d.ID,
		PatientID: d.PatientID,
		DoctorID:  d.DoctorID,
		Date:      d.Date,
		TimeSlot:  d.TimeSlot,
		Reason:    d.Reason,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
	}
}

const appointmentsWhere = "WHERE ($status = \"\" OR a.status = $status) AND ($since IS NULL OR STR_TO_MILLIS(a.createdAt) >= $since)"

func appointmentParams(filter dal.AppointmentFilter) map[string]interface{} {
	params := map[string]interface{}{
		"status": string(filter.Status),
		"since":  nil,
	}
	if !filter.CreatedSince.IsZero() {
		params["since"] = filter.CreatedSince.UnixMilli()
	}
	return params
}

func (c *Client) getAppointmentDocument(ctx context.Context, id string) (*appointmentDocument, gocb.Cas, error) {
	var doc appointmentDocument
	cas, err := c.docManager.GetDocument(ctx, AppointmentsCollection, id, &doc)
	if err != nil {
		return nil, 0, err
	}
	doc.ID = id
	return &doc, cas, nil
}

// GetAppointment retrieves an appointment by id
func (c *Client) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	doc, _, err := c.getAppointmentDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	appointment := doc.model()
	return &appointment, nil
}

// FindAppointments lists appointments matching filter, newest first
func (c *Client) FindAppointments(ctx context.Context, filter dal.AppointmentFilter) ([]models.Appointment, error) {
	statement := fmt.Sprintf(
		"SELECT a.*, META(a).id AS id FROM `%s` AS a %s ORDER BY STR_TO_MILLIS(a.createdAt) DESC, META(a).id",
		AppointmentsCollection, appointmentsWhere)

	rows, err := c.docManager.Query(ctx, statement, appointmentParams(filter))
	if err != nil {
		return nil, err
	}
	docs, err := collectRows[appointmentDocument](rows)
	if err != nil {
		return nil, err
	}

	out := make([]models.Appointment, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.model())
	}
	return out, nil
}

// CountAppointments counts appointments matching filter
func (c *Client) CountAppointments(ctx context.Context, filter dal.AppointmentFilter) (int, error) {
	statement := fmt.Sprintf("SELECT RAW COUNT(*) FROM `%s` AS a %s", AppointmentsCollection, appointmentsWhere)
	return c.docManager.Count(ctx, statement, appointmentParams(filter))
}

// InsertAppointment stores a new appointment, generating an id when missing
func (c *Client) InsertAppointment(ctx context.Context, appointment *models.Appointment) error {
	if appointment.ID == "" {
		appointment.ID = uuid.NewString()
	}
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = time.Now().UTC()
	}

	doc := appointmentDocument{
		ID:        appointment.ID,
		PatientID: appointment.PatientID,
		DoctorID:  appointment.DoctorID,
		Date:      appointment.Date,
		TimeSlot:  appointment.TimeSlot,
		Reason:    appointment.Reason,
		Status:    appointment.Status,
		CreatedAt: appointment.CreatedAt,
	}
	return c.docManager.InsertDocument(ctx, AppointmentsCollection, appointment.ID, doc)
}

// UpdateAppointmentStatus sets the status. With update.Expected set the
// write is guarded by the CAS of the document that was compared.
func (c *Client) UpdateAppointmentStatus(ctx context.Context, id string, update models.AppointmentStatusUpdate) (*models.Appointment, error) {
	var cas gocb.Cas
	if update.Expected != "" {
		doc, current, err := c.getAppointmentDocument(ctx, id)
		if err != nil {
			return nil, err
		}
		if doc.Status != update.Expected {
			return nil, dal.ErrConflict
		}
		cas = current
	}

	fields := map[string]interface{}{"status": update.Status}
	if err := c.docManager.MutateFields(ctx, AppointmentsCollection, id, fields, cas); err != nil {
		return nil, err
	}
	return c.GetAppointment(ctx, id)
}

// DeleteAppointment removes an appointment document
func (c *Client) DeleteAppointment(ctx context.Context, id string) error {
	return c.docManager.DeleteDocument(ctx, AppointmentsCollection, id)
}
