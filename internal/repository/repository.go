package repository

import (
	"context"

	"domex/api/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate key")
	ErrUnavailable  = RepositoryError("store unavailable")
	ErrInvalidInput = RepositoryError("invalid input")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// FileRepository persists FileRecords. Every read filters on isActive=true;
// records are never physically removed.
type FileRepository interface {
	Create(ctx context.Context, file *domain.FileRecord) (primitive.ObjectID, error)
	GetActiveByID(ctx context.Context, id primitive.ObjectID) (*domain.FileRecord, error)
	ListActiveByOwner(ctx context.Context, ownerKey string) ([]domain.FileRecord, error)
	Update(ctx context.Context, id primitive.ObjectID, update domain.FileUpdate) (*domain.FileRecord, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
	Stats(ctx context.Context) (*domain.FileStats, error)
}

// DomainRepository reads auction listings.
type DomainRepository interface {
	List(ctx context.Context, limit, skip int64) ([]domain.DomainListing, error)
}
