package domain

import (
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileRecord stores metadata about a file uploaded for an owner (typically a domain
// listing). The bytes themselves live in the blob store at StoragePath.
type FileRecord struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerKey     string             `bson:"ownerKey" json:"ownerKey"`
	DisplayName  string             `bson:"displayName" json:"displayName"`
	OriginalName string             `bson:"originalName,omitempty" json:"originalName,omitempty"`
	StoredName   string             `bson:"storedName" json:"storedName"` // unique per ownerKey
	SizeBytes    int64              `bson:"sizeBytes" json:"sizeBytes"`
	MimeType     string             `bson:"mimeType" json:"mimeType"`
	StoragePath  string             `bson:"storagePath" json:"storagePath"`
	FetchURL     string             `bson:"fetchUrl" json:"fetchUrl"`
	UploadedAt   time.Time          `bson:"uploadedAt" json:"uploadedAt"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	Tags         []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	IsPublic     *bool              `bson:"isPublic,omitempty" json:"isPublic,omitempty"`
	DeletedAt    *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	UpdatedAt    *time.Time         `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// FileUpdate is a partial update; nil fields are left untouched.
type FileUpdate struct {
	DisplayName *string
	Tags        *[]string
	IsPublic    *bool
}

// IsEmpty reports whether the update carries no field at all.
func (u FileUpdate) IsEmpty() bool {
	return u.DisplayName == nil && u.Tags == nil && u.IsPublic == nil
}

// FileStats aggregates all active file records.
type FileStats struct {
	TotalFiles int64    `bson:"totalFiles" json:"totalFiles"`
	TotalSize  int64    `bson:"totalSize" json:"totalSize"`
	FileTypes  []string `bson:"fileTypes" json:"fileTypes"`
}

// UploadCandidate is a file offered for upload. It is never persisted.
type UploadCandidate struct {
	Content          io.Reader
	DeclaredName     string
	DeclaredMimeType string
	SizeBytes        int64
	OwnerKey         string
}
