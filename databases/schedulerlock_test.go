package databases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/estatekit/estate-access-api/databases"
	"github.com/estatekit/estate-access-api/databases/mocks"
)

func TestSchedulerLockDatabase_TryAcquireLock(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	collectionHelper.(*mocks.CollectionHelper).
		On("UpdateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{UpsertedCount: 1}, nil)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "schedulerLocks").Return(collectionHelper)

	lockDba := databases.NewSchedulerLockDatabase(dbHelper)

	acquired, err := lockDba.TryAcquireLock(context.Background(), "expiry_reconciliation_job", "instance-1", 10*time.Minute)

	assert.NoError(t, err)
	assert.True(t, acquired)
}

func TestSchedulerLockDatabase_TryAcquireLockHeldElsewhere(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	// A live lock held by another instance surfaces as a duplicate key error
	// on the upsert.
	dupErr := mongo.WriteException{
		WriteErrors: mongo.WriteErrors{{Code: 11000}},
	}

	collectionHelper.(*mocks.CollectionHelper).
		On("UpdateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, dupErr)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "schedulerLocks").Return(collectionHelper)

	lockDba := databases.NewSchedulerLockDatabase(dbHelper)

	acquired, err := lockDba.TryAcquireLock(context.Background(), "expiry_reconciliation_job", "instance-2", 10*time.Minute)

	assert.NoError(t, err)
	assert.False(t, acquired)
}

func TestSchedulerLockDatabase_TryAcquireLockError(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	collectionHelper.(*mocks.CollectionHelper).
		On("UpdateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("mocked-error"))

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "schedulerLocks").Return(collectionHelper)

	lockDba := databases.NewSchedulerLockDatabase(dbHelper)

	acquired, err := lockDba.TryAcquireLock(context.Background(), "pending_pruning_job", "instance-1", 10*time.Minute)

	assert.EqualError(t, err, "mocked-error")
	assert.False(t, acquired)
}

func TestSchedulerLockDatabase_ReleaseLock(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	collectionHelper.(*mocks.CollectionHelper).
		On("DeleteOne", mock.Anything, mock.Anything).
		Return(nil)

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "schedulerLocks").Return(collectionHelper)

	lockDba := databases.NewSchedulerLockDatabase(dbHelper)

	err := lockDba.ReleaseLock(context.Background(), "pending_pruning_job", "instance-1")

	assert.NoError(t, err)
}
