package couchbase

import (
	"context"
	"fmt"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog/log"
)

// EnsureIndexes creates the admin collections and the indexes behind the
// page queries. Every statement is idempotent.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	cluster := c.connManager.GetCluster()

	for _, name := range []string{DoctorsCollection, PatientsCollection, AppointmentsCollection} {
		statement := fmt.Sprintf("CREATE COLLECTION %s IF NOT EXISTS", c.connManager.keyspace(name))
		if err := runStatement(ctx, cluster, statement); err != nil {
			return err
		}
	}

	statements := []string{
		fmt.Sprintf("CREATE PRIMARY INDEX IF NOT EXISTS ON %s", c.connManager.keyspace(DoctorsCollection)),
		fmt.Sprintf("CREATE INDEX idx_doctors_status IF NOT EXISTS ON %s(status, STR_TO_MILLIS(createdAt))", c.connManager.keyspace(DoctorsCollection)),
		fmt.Sprintf("CREATE PRIMARY INDEX IF NOT EXISTS ON %s", c.connManager.keyspace(PatientsCollection)),
		fmt.Sprintf("CREATE INDEX idx_patients_created IF NOT EXISTS ON %s(STR_TO_MILLIS(createdAt) DESC, verified)", c.connManager.keyspace(PatientsCollection)),
		fmt.Sprintf("CREATE PRIMARY INDEX IF NOT EXISTS ON %s", c.connManager.keyspace(AppointmentsCollection)),
		fmt.Sprintf("CREATE INDEX idx_appointments_created IF NOT EXISTS ON %s(STR_TO_MILLIS(createdAt) DESC, status)", c.connManager.keyspace(AppointmentsCollection)),
	}
	for _, statement := range statements {
		if err := runStatement(ctx, cluster, statement); err != nil {
			return err
		}
	}

	log.Info().Int("statements", len(statements)).Msg("Couchbase indexes ensured")
	return nil
}

func runStatement(ctx context.Context, cluster *gocb.Cluster, statement string) error {
	rows, err := cluster.Query(statement, &gocb.QueryOptions{Context: ctx})
	if err != nil {
		return fmt.Errorf("%s: %w", statement, err)
	}
	return rows.Close()
}
