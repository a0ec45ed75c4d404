package databases

// go generate: mockery --name AccessCodeDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/estatekit/estate-access-api/models"
)

const accessCodeName = "accessCodes"

// AccessCodeDatabase contains the methods to use with the accessCode database
type AccessCodeDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.AccessCode, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.AccessCode, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	InsertOne(ctx context.Context, accessCode models.AccessCode, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error
	UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (int64, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}) (*models.AccessCode, error)
}

type accessCodeDatabase struct {
	db DatabaseHelper
}

// NewAccessCodeDatabase initializes a new instance of accessCode database with the provided db connection
func NewAccessCodeDatabase(db DatabaseHelper) AccessCodeDatabase {
	return &accessCodeDatabase{
		db: db,
	}
}

func (c *accessCodeDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.AccessCode, error) {
	accessCode := &models.AccessCode{}
	err := c.db.Collection(accessCodeName).FindOne(ctx, filter, opts...).Decode(&accessCode)
	if err != nil {
		return nil, err
	}
	return accessCode, nil
}

func (c *accessCodeDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.AccessCode, error) {
	var accessCodes []models.AccessCode
	cur, err := c.db.Collection(accessCodeName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cur.Decode(&accessCodes)
	if err != nil {
		return nil, err
	}
	return accessCodes, nil
}

func (c *accessCodeDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	count, err := c.db.Collection(accessCodeName).CountDocuments(ctx, filter, opts...)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (c *accessCodeDatabase) InsertOne(ctx context.Context, accessCode models.AccessCode, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return c.db.Collection(accessCodeName).InsertOne(ctx, accessCode, opts...)
}

func (c *accessCodeDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error {
	_, err := c.db.Collection(accessCodeName).UpdateOne(ctx, filter, update, opts...)
	return err
}

func (c *accessCodeDatabase) UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (int64, error) {
	res, err := c.db.Collection(accessCodeName).UpdateMany(ctx, filter, update, opts...)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (c *accessCodeDatabase) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	return c.db.Collection(accessCodeName).DeleteMany(ctx, filter, opts...)
}

// FindOneAndUpdate applies update to the single document matching filter and
// returns the post-update document. Returns mongo.ErrNoDocuments when nothing
// matches, which the verification path relies on as its compare-and-swap
// failure signal.
func (c *accessCodeDatabase) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}) (*models.AccessCode, error) {
	accessCode := &models.AccessCode{}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := c.db.Collection(accessCodeName).FindOneAndUpdate(ctx, filter, update, opts).Decode(&accessCode)
	if err != nil {
		return nil, err
	}
	return accessCode, nil
}
