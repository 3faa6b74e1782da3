package service

import (
	"context"
	"strings"
	"time"

	"domex/api/internal/config"
	"domex/api/internal/domain"
	"domex/api/internal/repository"
	"domex/api/internal/storage"
	"domex/api/internal/upload"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CreateFileInput is the metadata submitted after a blob transfer.
type CreateFileInput struct {
	OwnerKey     string
	DisplayName  string
	OriginalName string
	StoredName   string
	SizeBytes    int64
	MimeType     string
	StoragePath  string
	FetchURL     string
	UploadedAt   *time.Time
	Tags         []string
	IsPublic     *bool
}

// UploadURLRequest asks for a presigned direct-upload URL.
type UploadURLRequest struct {
	OwnerKey  string
	FileName  string
	MimeType  string
	SizeBytes int64
}

// UploadURL is where a browser client PUTs the bytes, and where they will end up.
type UploadURL struct {
	UploadURL   string    `json:"uploadUrl"`
	StoredName  string    `json:"storedName"`
	StoragePath string    `json:"storagePath"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// FileService is the metadata registry.
type FileService interface {
	CreateFile(ctx context.Context, input CreateFileInput) (primitive.ObjectID, error)
	ListOwnerFiles(ctx context.Context, ownerKey string) ([]domain.FileRecord, error)
	GetFile(ctx context.Context, id string) (*domain.FileRecord, error)
	UpdateFile(ctx context.Context, id string, update domain.FileUpdate) (*domain.FileRecord, error)
	DeleteFile(ctx context.Context, id string) error
	Stats(ctx context.Context) (*domain.FileStats, error)
	RequestUploadURL(ctx context.Context, req UploadURLRequest) (*UploadURL, error)
}

// fileService implements the FileService interface.
type fileService struct {
	fileRepo repository.FileRepository
	store    storage.BlobStore
	upload   config.UploadConfig
	urlTTL   time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewFileService creates a new file service. store may be nil, in which case
// RequestUploadURL reports ErrStoreUnavailable.
func NewFileService(fileRepo repository.FileRepository, store storage.BlobStore, uploadCfg config.UploadConfig, urlTTL time.Duration, logger *zap.Logger) FileService {
	if urlTTL <= 0 {
		urlTTL = storage.DefaultPresignedURLExpiry
	}
	return &fileService{
		fileRepo: fileRepo,
		store:    store,
		upload:   uploadCfg,
		urlTTL:   urlTTL,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateFile checks required fields and persists the record. The id, createdAt
// and isActive fields are assigned by the repository. A missing storedName is
// derived from the owner key and display name, since (ownerKey, storedName) is unique.
func (s *fileService) CreateFile(ctx context.Context, input CreateFileInput) (primitive.ObjectID, error) {
	if strings.TrimSpace(input.OwnerKey) == "" || strings.TrimSpace(input.DisplayName) == "" || strings.TrimSpace(input.FetchURL) == "" {
		return primitive.NilObjectID, validationError("Missing required fields: ownerKey, displayName, fetchUrl")
	}
	if input.SizeBytes < 0 {
		return primitive.NilObjectID, validationError("sizeBytes cannot be negative")
	}
	if err := upload.ValidateOwnerKey(input.OwnerKey); err != nil {
		return primitive.NilObjectID, validationError(err.Error())
	}
	storedName := strings.TrimSpace(input.StoredName)
	if storedName == "" {
		storedName = upload.NewStoredName(input.OwnerKey, input.DisplayName)
	}

	record := &domain.FileRecord{
		OwnerKey:     input.OwnerKey,
		DisplayName:  input.DisplayName,
		OriginalName: input.OriginalName,
		StoredName:   storedName,
		SizeBytes:    input.SizeBytes,
		MimeType:     input.MimeType,
		StoragePath:  input.StoragePath,
		FetchURL:     input.FetchURL,
		Tags:         input.Tags,
		IsPublic:     input.IsPublic,
	}
	if input.UploadedAt != nil {
		record.UploadedAt = input.UploadedAt.UTC()
	}

	id, err := s.fileRepo.Create(ctx, record)
	if err != nil {
		return primitive.NilObjectID, mapRepoError(err)
	}
	s.logger.Info("file registered",
		zap.String("id", id.Hex()),
		zap.String("owner", record.OwnerKey),
		zap.String("path", record.StoragePath),
		zap.Int64("size", record.SizeBytes))
	return id, nil
}

func (s *fileService) ListOwnerFiles(ctx context.Context, ownerKey string) ([]domain.FileRecord, error) {
	if strings.TrimSpace(ownerKey) == "" {
		return nil, validationError("ownerKey is required")
	}
	files, err := s.fileRepo.ListActiveByOwner(ctx, ownerKey)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return files, nil
}

func (s *fileService) GetFile(ctx context.Context, id string) (*domain.FileRecord, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	file, err := s.fileRepo.GetActiveByID(ctx, oid)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return file, nil
}

// UpdateFile applies whichever of displayName, tags and isPublic are set.
func (s *fileService) UpdateFile(ctx context.Context, id string, update domain.FileUpdate) (*domain.FileRecord, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return nil, validationError("No updatable fields supplied (displayName, tags, isPublic)")
	}
	if update.DisplayName != nil && strings.TrimSpace(*update.DisplayName) == "" {
		return nil, validationError("displayName cannot be empty")
	}
	file, err := s.fileRepo.Update(ctx, oid, update)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return file, nil
}

// DeleteFile soft-deletes. The blob itself is left in place.
func (s *fileService) DeleteFile(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	if err := s.fileRepo.SoftDelete(ctx, oid); err != nil {
		return mapRepoError(err)
	}
	s.logger.Info("file soft-deleted", zap.String("id", id))
	return nil
}

func (s *fileService) Stats(ctx context.Context) (*domain.FileStats, error) {
	stats, err := s.fileRepo.Stats(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return stats, nil
}

// RequestUploadURL validates the declared file like the orchestrator would and
// hands back a presigned PUT for the derived storage path.
func (s *fileService) RequestUploadURL(ctx context.Context, req UploadURLRequest) (*UploadURL, error) {
	if strings.TrimSpace(req.OwnerKey) == "" || strings.TrimSpace(req.FileName) == "" {
		return nil, validationError("ownerKey and fileName are required")
	}
	candidate := domain.UploadCandidate{
		DeclaredName:     req.FileName,
		DeclaredMimeType: req.MimeType,
		SizeBytes:        req.SizeBytes,
		OwnerKey:         req.OwnerKey,
	}
	if err := upload.Validate(candidate, s.upload.AllowedTypes, s.upload.MaxSizeBytes); err != nil {
		return nil, validationError(err.Error())
	}
	if s.store == nil {
		return nil, ErrStoreUnavailable
	}

	storedName, storagePath := upload.Names(s.upload.OwnerCollection, req.OwnerKey, req.FileName)
	url, err := s.store.GeneratePresignedUploadURL(ctx, storagePath, req.MimeType, s.urlTTL)
	if err != nil {
		s.logger.Error("failed to presign upload", zap.String("path", storagePath), zap.Error(err))
		return nil, err
	}
	return &UploadURL{
		UploadURL:   url,
		StoredName:  storedName,
		StoragePath: storagePath,
		ExpiresAt:   s.now().Add(s.urlTTL),
	}, nil
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, validationError("Invalid file ID format")
	}
	return oid, nil
}
