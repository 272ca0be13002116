package couchbase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"stealthcompany.com/medadmin/internal/dal"
	"stealthcompany.com/medadmin/internal/models"
)

const patientsWhere = "WHERE ($verified = \"\" OR p.verified = $verified)"

func patientParams(filter dal.PatientFilter) map[string]interface{} {
	return map[string]interface{}{"verified": string(filter.Verified)}
}

// GetPatient retrieves a patient by id
func (c *Client) GetPatient(ctx context.Context, id string) (*models.Patient, error) {
	var patient models.Patient
	if _, err := c.docManager.GetDocument(ctx, PatientsCollection, id, &patient); err != nil {
		return nil, err
	}
	patient.ID = id
	return &patient, nil
}

// FindPatients lists patients matching filter, newest first
func (c *Client) FindPatients(ctx context.Context, filter dal.PatientFilter) ([]models.Patient, error) {
	statement := fmt.Sprintf(
		"SELECT p.*, META(p).id AS id FROM `%s` AS p %s ORDER BY STR_TO_MILLIS(p.createdAt) DESC, META(p).id",
		PatientsCollection, patientsWhere)

	rows, err := c.docManager.Query(ctx, statement, patientParams(filter))
	if err != nil {
		return nil, err
	}
	return collectRows[models.Patient](rows)
}

// CountPatients counts patients matching filter
func (c *Client) CountPatients(ctx context.Context, filter dal.PatientFilter) (int, error) {
	statement := fmt.Sprintf("SELECT RAW COUNT(*) FROM `%s` AS p %s", PatientsCollection, patientsWhere)
	return c.docManager.Count(ctx, statement, patientParams(filter))
}

// PatientsByIDs resolves a batch of patient references with one USE KEYS lookup
func (c *Client) PatientsByIDs(ctx context.Context, ids []string) (map[string]models.Patient, error) {
	out := make(map[string]models.Patient, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	statement := fmt.Sprintf("SELECT p.*, META(p).id AS id FROM `%s` AS p USE KEYS $ids", PatientsCollection)
	rows, err := c.docManager.Query(ctx, statement, map[string]interface{}{"ids": ids})
	if err != nil {
		return nil, err
	}
	patients, err := collectRows[models.Patient](rows)
	if err != nil {
		return nil, err
	}
	for _, p := range patients {
		out[p.ID] = p
	}
	return out, nil
}

// InsertPatient stores a new patient, generating an id when missing
func (c *Client) InsertPatient(ctx context.Context, patient *models.Patient) error {
	if patient.ID == "" {
		patient.ID = uuid.NewString()
	}
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = time.Now().UTC()
	}
	return c.docManager.InsertDocument(ctx, PatientsCollection, patient.ID, patient)
}

// DeletePatient removes a patient document
func (c *Client) DeletePatient(ctx context.Context, id string) error {
	return c.docManager.DeleteDocument(ctx, PatientsCollection, id)
}
