package storage

import (
	"context"
	"io"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// BlobStore defines the interface for object storage operations.
type BlobStore interface {
	// PutObject streams body to objectKey. The store reads body in parts; callers
	// that need progress wrap body in a counting reader.
	PutObject(ctx context.Context, objectKey, contentType string, body io.Reader, size int64) error

	// FetchURL returns a durable URL from which the object can be downloaded.
	FetchURL(ctx context.Context, objectKey string) (string, error)

	// GeneratePresignedUploadURL creates a temporary URL that allows PUT requests
	// for uploading an object directly to the storage provider.
	GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error)
}
