package databases

// go generate: mockery --name EstateDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/estatekit/estate-access-api/models"
)

const estateName = "estates"

// EstateDatabase contains the methods to use with the estate database
type EstateDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Estate, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Estate, error)
	InsertOne(ctx context.Context, estate models.Estate, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error
	EnsureSettings(ctx context.Context, estateID string, defaults models.EstateSettings) (*models.Estate, error)
}

type estateDatabase struct {
	db DatabaseHelper
}

// NewEstateDatabase initializes a new instance of estate database with the provided db connection
func NewEstateDatabase(db DatabaseHelper) EstateDatabase {
	return &estateDatabase{
		db: db,
	}
}

func (c *estateDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Estate, error) {
	estate := &models.Estate{}
	err := c.db.Collection(estateName).FindOne(ctx, filter).Decode(&estate)
	if err != nil {
		return nil, err
	}
	return estate, nil
}

func (c *estateDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Estate, error) {
	var estates []models.Estate
	cur, err := c.db.Collection(estateName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cur.Decode(&estates)
	if err != nil {
		return nil, err
	}
	return estates, nil
}

func (c *estateDatabase) InsertOne(ctx context.Context, estate models.Estate, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return c.db.Collection(estateName).InsertOne(ctx, estate, opts...)
}

func (c *estateDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) error {
	_, err := c.db.Collection(estateName).UpdateOne(ctx, filter, update, opts...)
	return err
}

func (c *estateDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) error {
	return c.db.Collection(estateName).DeleteOne(ctx, filter, opts...)
}

// EnsureSettings returns the estate with its settings block, seeding the
// defaults on first touch. The upsert keeps the get-or-create idempotent
// under concurrent callers.
func (c *estateDatabase) EnsureSettings(ctx context.Context, estateID string, defaults models.EstateSettings) (*models.Estate, error) {
	eID, err := primitive.ObjectIDFromHex(estateID)
	if err != nil {
		return nil, err
	}

	estate := &models.Estate{}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	update := bson.M{
		"$setOnInsert": bson.M{"settings": defaults},
	}
	err = c.db.Collection(estateName).FindOneAndUpdate(ctx, bson.M{"_id": eID}, update, opts).Decode(&estate)
	if err != nil {
		return nil, err
	}
	return estate, nil
}
