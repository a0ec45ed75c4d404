package databases

// go generate: mockery --name SchedulerLockDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const schedulerLockName = "schedulerLocks"

// SchedulerLockDatabase provides a coarse distributed lock so cron jobs run on
// a single instance when the API is scaled horizontally.
type SchedulerLockDatabase interface {
	TryAcquireLock(ctx context.Context, name string, instanceID string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name string, instanceID string) error
}

type schedulerLockDatabase struct {
	db DatabaseHelper
}

// NewSchedulerLockDatabase initializes a new instance of schedulerLock database with the provided db connection
func NewSchedulerLockDatabase(db DatabaseHelper) SchedulerLockDatabase {
	return &schedulerLockDatabase{
		db: db,
	}
}

// TryAcquireLock attempts to take the named lock for instanceID. A lock is
// free when no document exists, when it has expired, or when the same
// instance already holds it (re-entrant refresh).
func (c *schedulerLockDatabase) TryAcquireLock(ctx context.Context, name string, instanceID string, ttl time.Duration) (bool, error) {
	now := time.Now()
	filter := bson.M{
		"_id": name,
		"$or": []bson.M{
			{"expiresAt": bson.M{"$lt": now}},
			{"holder": instanceID},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"holder":     instanceID,
			"acquiredAt": now,
			"expiresAt":  now.Add(ttl),
		},
	}
	_, err := c.db.Collection(schedulerLockName).UpdateOne(ctx, filter, update, upsertTrue())
	if err != nil {
		// A live lock held by another instance makes the upsert collide on _id.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *schedulerLockDatabase) ReleaseLock(ctx context.Context, name string, instanceID string) error {
	return c.db.Collection(schedulerLockName).DeleteOne(ctx, bson.M{"_id": name, "holder": instanceID})
}
