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

const lockKey = "_system/seed_lock"

// lockDocument is stored under lockKey while a maintenance job runs
type lockDocument struct {
	Locked    bool      `json:"locked"`
	LockedAt  time.Time `json:"lockedAt"`
	LockedBy  string    `json:"lockedBy"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// DatabaseLocker holds a lock document with an expiry so that a crashed
// job cannot keep the store locked forever
type DatabaseLocker struct {
	collection *gocb.Collection
}

// NewDatabaseLocker creates a new database locker
func NewDatabaseLocker(collection *gocb.Collection) *DatabaseLocker {
	return &DatabaseLocker{collection: collection}
}

// Lock inserts the lock document; it fails with dal.ErrLocked when another
// owner holds it
func (l *DatabaseLocker) Lock(ctx context.Context, owner string, ttl time.Duration) error {
	now := time.Now().UTC()
	doc := lockDocument{
		Locked:    true,
		LockedAt:  now,
		LockedBy:  owner,
		ExpiresAt: now.Add(ttl),
	}

	_, err := l.collection.Insert(lockKey, doc, &gocb.InsertOptions{
		Context: ctx,
		Expiry:  ttl,
	})
	if errors.Is(err, gocb.ErrDocumentExists) {
		return dal.ErrLocked
	}
	if err != nil {
		return fmt.Errorf("failed to create lock document: %w", err)
	}

	log.Info().Str("owner", owner).Dur("ttl", ttl).Msg("Database locked successfully")
	return nil
}

// Unlock removes the lock document; unlocking an unlocked store is a no-op
func (l *DatabaseLocker) Unlock(ctx context.Context) error {
	_, err := l.collection.Remove(lockKey, &gocb.RemoveOptions{Context: ctx})
	if err != nil && !errors.Is(err, gocb.ErrDocumentNotFound) {
		return fmt.Errorf("failed to remove lock document: %w", err)
	}

	log.Info().Msg("Database unlocked successfully")
	return nil
}

// IsLocked reports whether an unexpired lock document exists
func (l *DatabaseLocker) IsLocked(ctx context.Context) (bool, error) {
	result, err := l.collection.Get(lockKey, &gocb.GetOptions{Context: ctx})
	if errors.Is(err, gocb.ErrDocumentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read lock document: %w", err)
	}

	var doc lockDocument
	if err := result.Content(&doc); err != nil {
		return false, fmt.Errorf("failed to parse lock document: %w", err)
	}
	return doc.Locked && time.Now().UTC().Before(doc.ExpiresAt), nil
}
