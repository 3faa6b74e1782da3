// Package memory holds in-memory repositories used by tests and local tooling.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"domex/api/internal/domain"
	"domex/api/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileRepository implements repository.FileRepository using in-memory storage.
type FileRepository struct {
	mu    sync.RWMutex
	files map[primitive.ObjectID]*domain.FileRecord
	now   func() time.Time
}

// NewFileRepository creates an empty in-memory file repository.
func NewFileRepository() *FileRepository {
	return &FileRepository{
		files: make(map[primitive.ObjectID]*domain.FileRecord),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

var _ repository.FileRepository = (*FileRepository)(nil)

func (r *FileRepository) Create(ctx context.Context, file *domain.FileRecord) (primitive.ObjectID, error) {
	if file.OwnerKey == "" || file.DisplayName == "" || file.FetchURL == "" {
		return primitive.NilObjectID, fmt.Errorf("%w: ownerKey, displayName and fetchUrl are required", repository.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.files {
		if existing.OwnerKey == file.OwnerKey && existing.StoredName == file.StoredName {
			return primitive.NilObjectID, fmt.Errorf("%w: storedName %q", repository.ErrDuplicate, file.StoredName)
		}
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

	stored := cloneRecord(file)
	r.files[file.ID] = stored
	return file.ID, nil
}

func (r *FileRepository) GetActiveByID(ctx context.Context, id primitive.ObjectID) (*domain.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	file, ok := r.files[id]
	if !ok || !file.IsActive {
		return nil, repository.ErrNotFound
	}
	return cloneRecord(file), nil
}

func (r *FileRepository) ListActiveByOwner(ctx context.Context, ownerKey string) ([]domain.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	files := []domain.FileRecord{}
	for _, file := range r.files {
		if file.OwnerKey == ownerKey && file.IsActive {
			files = append(files, *cloneRecord(file))
		}
	}
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].UploadedAt.After(files[j].UploadedAt)
	})
	return files, nil
}

func (r *FileRepository) Update(ctx context.Context, id primitive.ObjectID, update domain.FileUpdate) (*domain.FileRecord, error) {
	if update.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", repository.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[id]
	if !ok || !file.IsActive {
		return nil, repository.ErrNotFound
	}
	if update.DisplayName != nil {
		file.DisplayName = *update.DisplayName
	}
	if update.Tags != nil {
		file.Tags = append([]string{}, (*update.Tags)...)
	}
	if update.IsPublic != nil {
		public := *update.IsPublic
		file.IsPublic = &public
	}
	now := r.now()
	file.UpdatedAt = &now
	return cloneRecord(file), nil
}

func (r *FileRepository) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[id]
	if !ok || !file.IsActive {
		return repository.ErrNotFound
	}
	now := r.now()
	file.IsActive = false
	file.DeletedAt = &now
	return nil
}

func (r *FileRepository) Stats(ctx context.Context) (*domain.FileStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &domain.FileStats{FileTypes: []string{}}
	seen := make(map[string]struct{})
	for _, file := range r.files {
		if !file.IsActive {
			continue
		}
		stats.TotalFiles++
		stats.TotalSize += file.SizeBytes
		if _, ok := seen[file.MimeType]; !ok {
			seen[file.MimeType] = struct{}{}
			stats.FileTypes = append(stats.FileTypes, file.MimeType)
		}
	}
	sort.Strings(stats.FileTypes)
	return stats, nil
}

func cloneRecord(file *domain.FileRecord) *domain.FileRecord {
	c := *file
	if file.Tags != nil {
		c.Tags = append([]string{}, file.Tags...)
	}
	return &c
}
