package couchbase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/medadmin/internal/dal"
	"stealthcompany.com/medadmin/internal/models"
)

const doctorsWhere = "WHERE ($status = \"\" OR d.status = $status)"

func doctorParams(filter dal.DoctorFilter) map[string]interface{} {
	return map[string]interface{}{"status": string(filter.Status)}
}

// GetDoctor retrieves a doctor by doctorid
func (c *Client) GetDoctor(ctx context.Context, doctorID string) (*models.Doctor, error) {
	var doctor models.Doctor
	if _, err := c.docManager.GetDocument(ctx, DoctorsCollection, doctorID, &doctor); err != nil {
		return nil, err
	}
	return &doctor, nil
}

// FindDoctors lists doctors matching filter, oldest registration first
func (c *Client) FindDoctors(ctx context.Context, filter dal.DoctorFilter) ([]models.Doctor, error) {
	statement := fmt.Sprintf(
		"SELECT d.* FROM `%s` AS d %s ORDER BY STR_TO_MILLIS(d.createdAt), d.doctorid",
		DoctorsCollection, doctorsWhere)

	rows, err := c.docManager.Query(ctx, statement, doctorParams(filter))
	if err != nil {
		return nil, err
	}
	return collectRows[models.Doctor](rows)
}

// CountDoctors counts doctors matching filter
func (c *Client) CountDoctors(ctx context.Context, filter dal.DoctorFilter) (int, error) {
	statement := fmt.Sprintf("SELECT RAW COUNT(*) FROM `%s` AS d %s", DoctorsCollection, doctorsWhere)
	return c.docManager.Count(ctx, statement, doctorParams(filter))
}

// InsertDoctor stores a new doctor document keyed by doctorid
func (c *Client) InsertDoctor(ctx context.Context, doctor *models.Doctor) error {
	if doctor.DoctorID == "" {
		return errors.New("doctorid is required")
	}
	if doctor.CreatedAt.IsZero() {
		doctor.CreatedAt = time.Now().UTC()
	}
	doctor.UpdatedAt = doctor.CreatedAt
	return c.docManager.InsertDocument(ctx, DoctorsCollection, doctor.DoctorID, doctor)
}

// UpdateDoctor writes the requested fields in one sub-document mutation
func (c *Client) UpdateDoctor(ctx context.Context, doctorID string, update models.DoctorUpdate) (*models.Doctor, error) {
	fields := map[string]interface{}{
		"updatedAt": time.Now().UTC(),
	}
	if update.Status != nil {
		fields["status"] = *update.Status
	}
	if update.LicenseVerified != nil {
		fields["licenseVerified"] = *update.LicenseVerified
	}

	if err := c.docManager.MutateFields(ctx, DoctorsCollection, doctorID, fields, 0); err != nil {
		return nil, err
	}

	log.Debug().
		Str("doctorid", doctorID).
		Interface("fields", fields).
		Msg("Doctor updated")
	return c.GetDoctor(ctx, doctorID)
}

// DeleteDoctor removes a doctor document
func (c *Client) DeleteDoctor(ctx context.Context, doctorID string) error {
	return c.docManager.DeleteDocument(ctx, DoctorsCollection, doctorID)
}
