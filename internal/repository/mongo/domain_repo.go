package mongo

import (
	"context"

	"domex/api/internal/domain"
	"domex/api/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const domainCollectionName = "domains"

// mongoDomainRepository implements repository.DomainRepository
type mongoDomainRepository struct {
	collection *mongo.Collection
}

// NewMongoDomainRepository creates a new domain listing repository backed by MongoDB.
func NewMongoDomainRepository(db *mongo.Database) repository.DomainRepository {
	return &mongoDomainRepository{
		collection: db.Collection(domainCollectionName),
	}
}

// List returns one page of listings ordered by name.
func (r *mongoDomainRepository) List(ctx context.Context, limit, skip int64) ([]domain.DomainListing, error) {
	listings := []domain.DomainListing{}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(limit).
		SetSkip(skip)

	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, translateError(err)
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &listings); err != nil {
		return nil, translateError(err)
	}
	return listings, nil
}

// EnsureDomainIndexes creates necessary indexes for the domains collection.
func EnsureDomainIndexes(ctx context.Context, collection *mongo.Collection, logger *zap.Logger) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Warn("failed to create indexes", zap.String("collection", collection.Name()), zap.Error(err))
	}
}
