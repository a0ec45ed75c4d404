package databases

// go generate: mockery --name PendingVerificationDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/estatekit/estate-access-api/models"
)

const pendingVerificationName = "pendingVerifications"

// PendingVerificationDatabase contains the methods to use with the pendingVerification database
type PendingVerificationDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.PendingVerification, error)
	InsertOne(ctx context.Context, pending models.PendingVerification, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error
}

type pendingVerificationDatabase struct {
	db DatabaseHelper
}

// NewPendingVerificationDatabase initializes a new instance of pendingVerification database with the provided db connection
func NewPendingVerificationDatabase(db DatabaseHelper) PendingVerificationDatabase {
	return &pendingVerificationDatabase{
		db: db,
	}
}

func (c *pendingVerificationDatabase) FindOne(ctx context.Context, filter interface{}) (*models.PendingVerification, error) {
	pending := &models.PendingVerification{}
	err := c.db.Collection(pendingVerificationName).FindOne(ctx, filter).Decode(&pending)
	if err != nil {
		return nil, err
	}
	return pending, nil
}

func (c *pendingVerificationDatabase) InsertOne(ctx context.Context, pending models.PendingVerification, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return c.db.Collection(pendingVerificationName).InsertOne(ctx, pending, opts...)
}

func (c *pendingVerificationDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	return c.db.Collection(pendingVerificationName).DeleteOne(ctx, filter, opts...)
}

func (c *pendingVerificationDatabase) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	return c.db.Collection(pendingVerificationName).DeleteMany(ctx, filter, opts...)
}
