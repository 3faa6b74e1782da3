package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryObject is an object held by MemoryStorage.
type MemoryObject struct {
	Data        []byte
	ContentType string
}

// MemoryStorage is an in-memory BlobStore. It reads bodies in fixed-size parts
// like the S3 manager does, so progress reporting behaves the same in tests.
type MemoryStorage struct {
	mu       sync.RWMutex
	objects  map[string]MemoryObject
	partSize int
	baseURL  string
	// FailPut, when set, is returned by PutObject after the first part is read.
	FailPut error
	puts    int
}

// NewMemoryStorage creates an empty in-memory blob store.
func NewMemoryStorage(partSize int) *MemoryStorage {
	if partSize <= 0 {
		partSize = 5 * 1024 * 1024
	}
	return &MemoryStorage{
		objects:  make(map[string]MemoryObject),
		partSize: partSize,
		baseURL:  "https://blobs.local",
	}
}

var _ BlobStore = (*MemoryStorage)(nil)

func (m *MemoryStorage) PutObject(ctx context.Context, objectKey, contentType string, body io.Reader, size int64) error {
	m.mu.Lock()
	m.puts++
	failErr := m.FailPut
	m.mu.Unlock()

	var buf bytes.Buffer
	part := make([]byte, m.partSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := io.ReadFull(body, part)
		buf.Write(part[:n])
		if failErr != nil {
			return failErr
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectKey] = MemoryObject{Data: buf.Bytes(), ContentType: contentType}
	return nil
}

func (m *MemoryStorage) FetchURL(ctx context.Context, objectKey string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[objectKey]; !ok {
		return "", fmt.Errorf("object %s not found", objectKey)
	}
	return m.baseURL + "/" + escapeKey(objectKey), nil
}

func (m *MemoryStorage) GeneratePresignedUploadURL(ctx context.Context, objectKey string, contentType string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}
	return fmt.Sprintf("%s/%s?upload=1&expires=%d", m.baseURL, escapeKey(objectKey), int(expires.Seconds())), nil
}

// Object returns a stored object.
func (m *MemoryStorage) Object(objectKey string) (MemoryObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[objectKey]
	return obj, ok
}

// PutCalls reports how many times PutObject was invoked.
func (m *MemoryStorage) PutCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}
