package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"domex/api/internal/domain"
	"domex/api/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const fileCollectionName = "files"

// mongoFileRepository implements repository.FileRepository
type mongoFileRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoFileRepository creates a new file metadata repository backed by MongoDB.
func NewMongoFileRepository(db *mongo.Database) repository.FileRepository {
	return &mongoFileRepository{
		collection: db.Collection(fileCollectionName),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts a new record. The id, createdAt and isActive fields are always
// assigned here, whatever the caller put in them.
func (r *mongoFileRepository) Create(ctx context.Context, file *domain.FileRecord) (primitive.ObjectID, error) {
	if file.OwnerKey == "" || file.DisplayName == "" || file.FetchURL == "" {
		return primitive.NilObjectID, fmt.Errorf("%w: ownerKey, displayName and fetchUrl are required", repository.ErrInvalidInput)
	}

	now := r.now()
	file.ID = primitive.NewObjectID()
	file.CreatedAt = now
	file.IsActive = true
	file.DeletedAt = nil
	file.UpdatedAt = nil
	if file.UploadedAt.IsZero() {
		file.UploadedAt = now
	}

	result, err := r.collection.InsertOne(ctx, file)
	if err != nil {
		return primitive.NilObjectID, translateError(err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetActiveByID retrieves an active record by its ID.
func (r *mongoFileRepository) GetActiveByID(ctx context.Context, id primitive.ObjectID) (*domain.FileRecord, error) {
	var file domain.FileRecord
	filter := activeByID(id)

	if err := r.collection.FindOne(ctx, filter).Decode(&file); err != nil {
		return nil, translateError(err)
	}
	return &file, nil
}

// ListActiveByOwner returns the owner's active records, newest upload first.
func (r *mongoFileRepository) ListActiveByOwner(ctx context.Context, ownerKey string) ([]domain.FileRecord, error) {
	files := []domain.FileRecord{}
	filter := bson.M{"ownerKey": ownerKey, "isActive": true}
	findOptions := options.Find().SetSort(bson.D{{Key: "uploadedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, translateError(err)
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &files); err != nil {
		return nil, translateError(err)
	}
	return files, nil
}

// Update applies the fields present in update to an active record and returns it.
func (r *mongoFileRepository) Update(ctx context.Context, id primitive.ObjectID, update domain.FileUpdate) (*domain.FileRecord, error) {
	if update.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", repository.ErrInvalidInput)
	}

	findOptions := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var file domain.FileRecord
	err := r.collection.FindOneAndUpdate(ctx, activeByID(id), buildUpdate(update, r.now()), findOptions).Decode(&file)
	if err != nil {
		return nil, translateError(err)
	}
	return &file, nil
}

// SoftDelete marks an active record inactive. A second call on the same id
// finds nothing to match and reports ErrNotFound.
func (r *mongoFileRepository) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	update := bson.M{
		"$set": bson.M{
			"isActive":  false,
			"deletedAt": r.now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, activeByID(id), update)
	if err != nil {
		return translateError(err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Stats aggregates count, total size and distinct MIME types over active records.
func (r *mongoFileRepository) Stats(ctx context.Context) (*domain.FileStats, error) {
	cursor, err := r.collection.Aggregate(ctx, statsPipeline())
	if err != nil {
		return nil, translateError(err)
	}
	defer cursor.Close(ctx)

	var rows []domain.FileStats
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, translateError(err)
	}

	stats := &domain.FileStats{FileTypes: []string{}}
	if len(rows) > 0 {
		stats.TotalFiles = rows[0].TotalFiles
		stats.TotalSize = rows[0].TotalSize
		if rows[0].FileTypes != nil {
			stats.FileTypes = rows[0].FileTypes
		}
	}
	sort.Strings(stats.FileTypes)
	return stats, nil
}

func activeByID(id primitive.ObjectID) bson.M {
	return bson.M{"_id": id, "isActive": true}
}

func buildUpdate(update domain.FileUpdate, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if update.DisplayName != nil {
		set["displayName"] = *update.DisplayName
	}
	if update.Tags != nil {
		tags := *update.Tags
		if tags == nil {
			tags = []string{}
		}
		set["tags"] = tags
	}
	if update.IsPublic != nil {
		set["isPublic"] = *update.IsPublic
	}
	return bson.M{"$set": set}
}

func statsPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"isActive": true}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalFiles", Value: bson.M{"$sum": 1}},
			{Key: "totalSize", Value: bson.M{"$sum": "$sizeBytes"}},
			{Key: "fileTypes", Value: bson.M{"$addToSet": "$mimeType"}},
		}}},
	}
}

// EnsureFileIndexes creates necessary indexes for the files collection.
func EnsureFileIndexes(ctx context.Context, collection *mongo.Collection, logger *zap.Logger) {
	indexes := []mongo.IndexModel{
		{
			// Stored names never collide within an owner namespace.
			Keys:    bson.D{{Key: "ownerKey", Value: 1}, {Key: "storedName", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// List-by-owner
			Keys: bson.D{{Key: "ownerKey", Value: 1}, {Key: "isActive", Value: 1}, {Key: "uploadedAt", Value: -1}},
		},
		{
			// Stats
			Keys: bson.D{{Key: "isActive", Value: 1}},
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		logger.Warn("failed to create indexes", zap.String("collection", collection.Name()), zap.Error(err))
	}
}
