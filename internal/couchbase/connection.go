package couchbase

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog/log"
)

// ConnectionManager handles Couchbase cluster and bucket connections
type ConnectionManager struct {
	cluster    *gocb.Cluster
	bucket     *gocb.Bucket
	bucketName string
	scopeName  string
}

// ConnectionConfig holds what is needed to reach the cluster
type ConnectionConfig struct {
	URL          string
	Username     string
	Password     string
	Bucket       string
	Scope        string
	ReadyTimeout time.Duration
}

// normalizeConnectionString turns http:// style addresses into couchbase:// ones
func normalizeConnectionString(url string) string {
	switch {
	case strings.HasPrefix(url, "couchbase://"), strings.HasPrefix(url, "couchbases://"):
		return url
	case strings.HasPrefix(url, "http://"):
		return "couchbase://" + strings.TrimPrefix(url, "http://")
	case strings.HasPrefix(url, "https://"):
		return "couchbases://" + strings.TrimPrefix(url, "https://")
	default:
		return "couchbase://" + url
	}
}

// NewConnectionManager connects to the cluster and waits for the bucket
func NewConnectionManager(cfg ConnectionConfig) (*ConnectionManager, error) {
	connectionString := normalizeConnectionString(cfg.URL)
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 30 * time.Second
	}
	if cfg.Scope == "" {
		cfg.Scope = "_default"
	}

	log.Info().
		Str("url", connectionString).
		Str("bucket", cfg.Bucket).
		Str("scope", cfg.Scope).
		Msg("Creating Couchbase connection")

	cluster, err := gocb.Connect(connectionString, gocb.ClusterOptions{
		Authenticator: gocb.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect cluster: %w", err)
	}

	bucket := cluster.Bucket(cfg.Bucket)
	err = bucket.WaitUntilReady(cfg.ReadyTimeout, &gocb.WaitUntilReadyOptions{
		ServiceTypes: []gocb.ServiceType{gocb.ServiceTypeKeyValue, gocb.ServiceTypeQuery},
	})
	if err != nil {
		_ = cluster.Close(nil)
		return nil, fmt.Errorf("bucket %q not ready: %w", cfg.Bucket, err)
	}

	log.Info().Msg("Couchbase connection created successfully")
	return &ConnectionManager{
		cluster:    cluster,
		bucket:     bucket,
		bucketName: cfg.Bucket,
		scopeName:  cfg.Scope,
	}, nil
}

// Close closes the Couchbase connection
func (cm *ConnectionManager) Close() error {
	return cm.cluster.Close(nil)
}

// GetBucket returns the bucket instance
func (cm *ConnectionManager) GetBucket() *gocb.Bucket {
	return cm.bucket
}

// GetCluster returns the cluster instance
func (cm *ConnectionManager) GetCluster() *gocb.Cluster {
	return cm.cluster
}

// GetScope returns the scope holding the admin collections
func (cm *ConnectionManager) GetScope() *gocb.Scope {
	return cm.bucket.Scope(cm.scopeName)
}

// keyspace returns the fully qualified name of a collection
func (cm *ConnectionManager) keyspace(collection string) string {
	return fmt.Sprintf("`%s`.`%s`.`%s`", cm.bucketName, cm.scopeName, collection)
}
