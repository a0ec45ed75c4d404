package databases

// go generate: mockery --name AccessLogDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/estatekit/estate-access-api/models"
)

const accessLogName = "accessLogs"

// AccessLogDatabase contains the methods to use with the accessLog database.
// The collection is append-only: there is deliberately no update method, and
// deletion exists only for the estate cascade teardown.
type AccessLogDatabase interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.AccessLog, error)
	FindPaginated(ctx context.Context, filter interface{}, limit, page int) ([]models.AccessLog, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	InsertOne(ctx context.Context, accessLog models.AccessLog, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error
}

type accessLogDatabase struct {
	db DatabaseHelper
}

// NewAccessLogDatabase initializes a new instance of accessLog database with the provided db connection
func NewAccessLogDatabase(db DatabaseHelper) AccessLogDatabase {
	return &accessLogDatabase{
		db: db,
	}
}

func (c *accessLogDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.AccessLog, error) {
	var accessLogs []models.AccessLog
	cur, err := c.db.Collection(accessLogName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cur.Decode(&accessLogs)
	if err != nil {
		return nil, err
	}
	return accessLogs, nil
}

// FindPaginated returns one page of log entries, newest first. Pages are
// 1-indexed.
func (c *accessLogDatabase) FindPaginated(ctx context.Context, filter interface{}, limit, page int) ([]models.AccessLog, error) {
	opts := newMongoPaginate(limit, page).getPaginatedOpts()
	opts.SetSort(bson.M{"verifiedAt": -1})
	return c.Find(ctx, filter, opts)
}

func (c *accessLogDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	count, err := c.db.Collection(accessLogName).CountDocuments(ctx, filter, opts...)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (c *accessLogDatabase) InsertOne(ctx context.Context, accessLog models.AccessLog, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return c.db.Collection(accessLogName).InsertOne(ctx, accessLog, opts...)
}

func (c *accessLogDatabase) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	return c.db.Collection(accessLogName).DeleteMany(ctx, filter, opts...)
}
