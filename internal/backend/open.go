// Package backend opens the dal.Backend selected by STORE_DRIVER
package backend

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/medadmin/internal/config"
	"stealthcompany.com/medadmin/internal/couchbase"
	"stealthcompany.com/medadmin/internal/dal"
	"stealthcompany.com/medadmin/internal/memstore"
	"stealthcompany.com/medadmin/internal/mongostore"
)

// Open connects to the configured store
func Open(ctx context.Context, cfg *config.Config) (dal.Backend, error) {
	log.Info().Str("driver", cfg.StoreDriver).Msg("Opening store")

	switch cfg.StoreDriver {
	case config.DriverCouchbase:
		client, err := couchbase.NewClient(couchbase.ConnectionConfig{
			URL:      cfg.CouchbaseURL,
			Username: cfg.CouchbaseUsername,
			Password: cfg.CouchbasePassword,
			Bucket:   cfg.CouchbaseBucket,
			Scope:    cfg.CouchbaseScope,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.DriverMongo:
		store, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverMemory:
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
