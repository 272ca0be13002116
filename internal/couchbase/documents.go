package couchbase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/medadmin/internal/dal"
)

// Collection names inside the configured scope
const (
	DoctorsCollection      = "doctors"
	PatientsCollection     = "patients"
	AppointmentsCollection = "appointments"
)

// DocumentManager handles key-value and query access to one scope
type DocumentManager struct {
	scope *gocb.Scope
}

// NewDocumentManager creates a new document manager
func NewDocumentManager(scope *gocb.Scope) *DocumentManager {
	return &DocumentManager{scope: scope}
}

func (dm *DocumentManager) collection(name string) *gocb.Collection {
	return dm.scope.Collection(name)
}

// translateError maps SDK errors onto the dal sentinels
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gocb.ErrDocumentNotFound):
		return dal.ErrNotFound
	case errors.Is(err, gocb.ErrCasMismatch):
		return dal.ErrConflict
	default:
		return err
	}
}

// GetDocument decodes the document into result and returns its CAS
func (dm *DocumentManager) GetDocument(ctx context.Context, collection, docID string, result interface{}) (gocb.Cas, error) {
	start := time.Now()
	doc, err := dm.collection(collection).Get(docID, &gocb.GetOptions{Context: ctx})
	if err != nil {
		err = translateError(err)
		if !errors.Is(err, dal.ErrNotFound) {
			log.Error().Err(err).Str("collection", collection).Str("doc_id", docID).Msg("Failed to get document")
		}
		return 0, fmt.Errorf("get %s/%s: %w", collection, docID, err)
	}

	if err := doc.Content(result); err != nil {
		return 0, fmt.Errorf("decode %s/%s: %w", collection, docID, err)
	}

	log.Debug().
		Str("collection", collection).
		Str("doc_id", docID).
		Dur("duration", time.Since(start)).
		Msg("Retrieved document")
	return doc.Cas(), nil
}

// InsertDocument stores a new document and fails if the key exists
func (dm *DocumentManager) InsertDocument(ctx context.Context, collection, docID string, data interface{}) error {
	_, err := dm.collection(collection).Insert(docID, data, &gocb.InsertOptions{Context: ctx})
	if err != nil {
		return fmt.Errorf("insert %s/%s: %w", collection, docID, err)
	}
	return nil
}

// MutateFields updates top-level fields of a document in one atomic
// sub-document operation. A non-zero cas makes the write conditional.
func (dm *DocumentManager) MutateFields(ctx context.Context, collection, docID string, fields map[string]interface{}, cas gocb.Cas) error {
	specs := make([]gocb.MutateInSpec, 0, len(fields))
	for path, value := range fields {
		specs = append(specs, gocb.UpsertSpec(path, value, nil))
	}

	start := time.Now()
	_, err := dm.collection(collection).MutateIn(docID, specs, &gocb.MutateInOptions{
		Context: ctx,
		Cas:     cas,
	})
	if err != nil {
		return fmt.Errorf("mutate %s/%s: %w", collection, docID, translateError(err))
	}

	log.Debug().
		Str("collection", collection).
		Str("doc_id", docID).
		Int("fields", len(fields)).
		Dur("duration", time.Since(start)).
		Msg("Mutated document")
	return nil
}

// DeleteDocument removes a document
func (dm *DocumentManager) DeleteDocument(ctx context.Context, collection, docID string) error {
	_, err := dm.collection(collection).Remove(docID, &gocb.RemoveOptions{Context: ctx})
	if err != nil {
		return fmt.Errorf("remove %s/%s: %w", collection, docID, translateError(err))
	}
	return nil
}

// Query runs a N1QL statement scoped to the admin collections with
// request_plus consistency so reads observe preceding writes
func (dm *DocumentManager) Query(ctx context.Context, statement string, params map[string]interface{}) (*gocb.QueryResult, error) {
	start := time.Now()
	rows, err := dm.scope.Query(statement, &gocb.QueryOptions{
		Context:         ctx,
		NamedParameters: params,
		ScanConsistency: gocb.QueryScanConsistencyRequestPlus,
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("query", statement).
			Msg("Query failed")
		return nil, fmt.Errorf("query failed: %w", err)
	}

	log.Debug().
		Str("query", statement).
		Dur("duration", time.Since(start)).
		Msg("Query executed")
	return rows, nil
}

// Count runs a SELECT RAW COUNT(*) statement
func (dm *DocumentManager) Count(ctx context.Context, statement string, params map[string]interface{}) (int, error) {
	rows, err := dm.Query(ctx, statement, params)
	if err != nil {
		return 0, err
	}

	var count int
	if err := rows.One(&count); err != nil {
		return 0, fmt.Errorf("read count: %w", err)
	}
	return count, nil
}

// collectRows decodes every row of a query result
func collectRows[T any](rows *gocb.QueryResult) ([]T, error) {
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var row T
		if err := rows.Row(&row); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
