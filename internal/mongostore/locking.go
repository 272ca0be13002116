package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"stealthcompany.com/medadmin/internal/dal"
)

const seedLockID = "seed"

// Locker stores the seed lock as a document with a TTL-indexed expiry
type Locker struct {
	collection *mongo.Collection
}

type lockDocument struct {
	ID        string    `bson:"_id"`
	LockedAt  time.Time `bson:"lockedAt"`
	LockedBy  string    `bson:"lockedBy"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// Lock inserts the lock document, clearing an expired one first
func (l *Locker) Lock(ctx context.Context, owner string, ttl time.Duration) error {
	now := time.Now().UTC()

	// the TTL monitor runs once a minute, so expired locks may linger
	if _, err := l.collection.DeleteOne(ctx, bson.M{"_id": seedLockID, "expiresAt": bson.M{"$lte": now}}); err != nil {
		return fmt.Errorf("clear expired lock: %w", err)
	}

	_, err := l.collection.InsertOne(ctx, lockDocument{
		ID:        seedLockID,
		LockedAt:  now,
		LockedBy:  owner,
		ExpiresAt: now.Add(ttl),
	})
	if mongo.IsDuplicateKeyError(err) {
		return dal.ErrLocked
	}
	if err != nil {
		return fmt.Errorf("failed to create lock document: %w", err)
	}

	log.Info().Str("owner", owner).Dur("ttl", ttl).Msg("Database locked successfully")
	return nil
}

// Unlock removes the lock document
func (l *Locker) Unlock(ctx context.Context) error {
	if _, err := l.collection.DeleteOne(ctx, bson.M{"_id": seedLockID}); err != nil {
		return fmt.Errorf("failed to remove lock document: %w", err)
	}
	log.Info().Msg("Database unlocked successfully")
	return nil
}

// IsLocked reports whether an unexpired lock document exists
func (l *Locker) IsLocked(ctx context.Context) (bool, error) {
	n, err := l.collection.CountDocuments(ctx, bson.M{
		"_id":       seedLockID,
		"expiresAt": bson.M{"$gt": time.Now().UTC()},
	})
	if err != nil {
		return false, fmt.Errorf("failed to read lock document: %w", err)
	}
	return n > 0, nil
}
