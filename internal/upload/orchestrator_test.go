package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"domex/api/internal/domain"
	"domex/api/internal/registryclient"
	"domex/api/internal/repository/memory"
	"domex/api/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repoRegistrar registers straight into an in-memory repository.
type repoRegistrar struct {
	repo *memory.FileRepository
}

func (r repoRegistrar) CreateFile(ctx context.Context, p registryclient.FilePayload) (*registryclient.CreateResult, error) {
	id, err := r.repo.Create(ctx, &domain.FileRecord{
		OwnerKey:     p.OwnerKey,
		DisplayName:  p.DisplayName,
		OriginalName: p.OriginalName,
		StoredName:   p.StoredName,
		SizeBytes:    p.SizeBytes,
		MimeType:     p.MimeType,
		StoragePath:  p.StoragePath,
		FetchURL:     p.FetchURL,
		UploadedAt:   p.UploadedAt,
	})
	if err != nil {
		return nil, err
	}
	return &registryclient.CreateResult{ID: id.Hex(), Success: true}, nil
}

type failingRegistrar struct{ err error }

func (f failingRegistrar) CreateFile(context.Context, registryclient.FilePayload) (*registryclient.CreateResult, error) {
	return nil, f.err
}

func drain(task *Task) []float64 {
	var got []float64
	for p := range task.Progress() {
		got = append(got, p)
	}
	return got
}

func TestUpload_Success(t *testing.T) {
	store := storage.NewMemoryStorage(256 * 1024)
	repo := memory.NewFileRepository()

	completed := make(chan *Result, 1)
	orch := NewOrchestrator(store, repoRegistrar{repo},
		WithAllowedTypes([]string{"image/*"}),
		WithMaxSize(5*1024*1024),
		WithCompletion(func(r *Result) { completed <- r }))

	data := bytes.Repeat([]byte{0x89}, 2*1024*1024)
	task, err := orch.Upload(context.Background(), domain.UploadCandidate{
		Content:          bytes.NewReader(data),
		DeclaredName:     "logo.png",
		DeclaredMimeType: "image/png",
		SizeBytes:        int64(len(data)),
		OwnerKey:         "d1",
	})
	require.NoError(t, err)

	progress := drain(task)
	result, err := task.Wait()
	require.NoError(t, err)

	require.NotEmpty(t, progress)
	assert.Equal(t, 100.0, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1], "progress must not decrease")
	}
	assert.Equal(t, StateSucceeded, task.State())
	assert.Zero(t, task.Percent())

	select {
	case got := <-completed:
		assert.Equal(t, result, got)
	case <-time.After(5 * time.Second):
		t.Fatal("completion callback not called")
	}
	assert.NotEmpty(t, result.Registration.ID)
	assert.Regexp(t, `^d1_\d+_logo\.png$`, result.Payload.StoredName)
	assert.Equal(t, "domains/d1/"+result.Payload.StoredName, result.Payload.StoragePath)
	assert.Equal(t, "https://blobs.local/"+result.Payload.StoragePath, result.Payload.FetchURL)

	obj, ok := store.Object(result.Payload.StoragePath)
	require.True(t, ok)
	assert.Len(t, obj.Data, len(data))

	files, err := repo.ListActiveByOwner(context.Background(), "d1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, result.Registration.ID, files[0].ID.Hex())
	assert.Equal(t, int64(len(data)), files[0].SizeBytes)
}

func TestUpload_RejectedBeforeTransfer(t *testing.T) {
	store := storage.NewMemoryStorage(0)
	orch := NewOrchestrator(store, failingRegistrar{errors.New("must not be called")})

	task, err := orch.Upload(context.Background(), domain.UploadCandidate{
		Content:          bytes.NewReader(nil),
		DeclaredName:     "brochure.pdf",
		DeclaredMimeType: "application/pdf",
		SizeBytes:        12 * 1024 * 1024,
		OwnerKey:         "d1",
	})
	assert.Nil(t, task)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "exceeds the maximum of 10 MB")
	assert.Zero(t, store.PutCalls())

	_, err = orch.Upload(context.Background(), domain.UploadCandidate{
		Content:          bytes.NewReader(nil),
		DeclaredName:     "logo.png",
		DeclaredMimeType: "image/png",
		SizeBytes:        1,
	})
	require.ErrorAs(t, err, &vErr)
	assert.Zero(t, store.PutCalls())
}

func TestUpload_RejectsOwnerKeyOutsideCollection(t *testing.T) {
	store := storage.NewMemoryStorage(0)
	orch := NewOrchestrator(store, failingRegistrar{errors.New("must not be called")})

	for _, owner := range []string{"../../other", "d1/../d2", `d1\x`} {
		task, err := orch.Upload(context.Background(), domain.UploadCandidate{
			Content:          bytes.NewReader([]byte("x")),
			DeclaredName:     "logo.png",
			DeclaredMimeType: "image/png",
			SizeBytes:        1,
			OwnerKey:         owner,
		})
		assert.Nil(t, task, owner)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, owner)
		assert.Equal(t, "Owner key contains invalid characters", vErr.Reason)
	}
	assert.Zero(t, store.PutCalls())
}

func TestUpload_TaskStartsTransferring(t *testing.T) {
	store := storage.NewMemoryStorage(4)
	orch := NewOrchestrator(store, repoRegistrar{memory.NewFileRepository()})

	pr, pw := io.Pipe()
	task, err := orch.Upload(context.Background(), domain.UploadCandidate{
		Content:          pr,
		DeclaredName:     "a.png",
		DeclaredMimeType: "image/png",
		SizeBytes:        4,
		OwnerKey:         "d1",
	})
	require.NoError(t, err)
	assert.Equal(t, StateTransferring, task.State())

	_, err = pw.Write([]byte("0123"))
	require.NoError(t, err)
	require.NoError(t, pw.Close())
	_, err = task.Wait()
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, task.State())
}

func TestUpload_CompletionCanWaitOnTask(t *testing.T) {
	store := storage.NewMemoryStorage(0)
	tasks := make(chan *Task, 1)
	waited := make(chan error, 1)
	orch := NewOrchestrator(store, repoRegistrar{memory.NewFileRepository()},
		WithCompletion(func(*Result) {
			_, err := (<-tasks).Wait()
			waited <- err
		}))

	task, err := orch.Upload(context.Background(), domain.UploadCandidate{
		Content:          bytes.NewReader([]byte("x")),
		DeclaredName:     "logo.png",
		DeclaredMimeType: "image/png",
		SizeBytes:        1,
		OwnerKey:         "d1",
	})
	require.NoError(t, err)
	tasks <- task

	select {
	case err := <-waited:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Wait inside the completion callback blocked")
	}
}

func TestUpload_TransferFailure(t *testing.T) {
	store := storage.NewMemoryStorage(4)
	store.FailPut = errors.New("connection reset")
	repo := memory.NewFileRepository()
	orch := NewOrchestrator(store, repoRegistrar{repo})

	task, err := orch.Upload(context.Background(), domain.UploadCandidate{
		Content:          bytes.NewReader([]byte("0123456789")),
		DeclaredName:     "logo.png",
		DeclaredMimeType: "image/png",
		SizeBytes:        10,
		OwnerKey:         "d1",
	})
	require.NoError(t, err)
	drain(task)

	_, err = task.Wait()
	var tErr *TransferError
	require.ErrorAs(t, err, &tErr)
	assert.EqualError(t, err, "Upload failed: connection reset")
	assert.Equal(t, StateFailed, task.State())

	files, err := repo.ListActiveByOwner(context.Background(), "d1")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestUpload_RegistrationFailureLeavesBlob(t *testing.T) {
	store := storage.NewMemoryStorage(0)
	orch := NewOrchestrator(store, failingRegistrar{errors.New("registry down")})

	task, err := orch.Upload(context.Background(), domain.UploadCandidate{
		Content:          bytes.NewReader([]byte("%PDF-1.7")),
		DeclaredName:     "deed.pdf",
		DeclaredMimeType: "application/pdf",
		SizeBytes:        8,
		OwnerKey:         "d2",
	})
	require.NoError(t, err)
	drain(task)

	_, err = task.Wait()
	var rErr *RegistrationError
	require.ErrorAs(t, err, &rErr)
	assert.EqualError(t, err, "Failed to save file information: registry down")

	_, ok := store.Object(rErr.StoragePath)
	assert.True(t, ok, "blob is not cleaned up")
}

func TestUpload_OnePerOwner(t *testing.T) {
	store := storage.NewMemoryStorage(4)
	orch := NewOrchestrator(store, repoRegistrar{memory.NewFileRepository()})

	pr, pw := io.Pipe()
	first, err := orch.Upload(context.Background(), domain.UploadCandidate{
		Content:          pr,
		DeclaredName:     "a.png",
		DeclaredMimeType: "image/png",
		SizeBytes:        8,
		OwnerKey:         "d1",
	})
	require.NoError(t, err)

	_, err = orch.Upload(context.Background(), domain.UploadCandidate{
		Content:          bytes.NewReader([]byte("x")),
		DeclaredName:     "b.png",
		DeclaredMimeType: "image/png",
		SizeBytes:        1,
		OwnerKey:         "d1",
	})
	assert.ErrorIs(t, err, ErrUploadInProgress)

	other, err := orch.Upload(context.Background(), domain.UploadCandidate{
		Content:          bytes.NewReader([]byte("x")),
		DeclaredName:     "c.png",
		DeclaredMimeType: "image/png",
		SizeBytes:        1,
		OwnerKey:         "d2",
	})
	require.NoError(t, err)
	_, err = other.Wait()
	require.NoError(t, err)

	_, err = pw.Write([]byte("01234567"))
	require.NoError(t, err)
	require.NoError(t, pw.Close())
	_, err = first.Wait()
	require.NoError(t, err)

	// Released once finished.
	again, err := orch.Upload(context.Background(), domain.UploadCandidate{
		Content:          bytes.NewReader([]byte("x")),
		DeclaredName:     "b.png",
		DeclaredMimeType: "image/png",
		SizeBytes:        1,
		OwnerKey:         "d1",
	})
	require.NoError(t, err)
	_, err = again.Wait()
	assert.NoError(t, err)
}

func TestUpload_Cancel(t *testing.T) {
	store := storage.NewMemoryStorage(4)
	orch := NewOrchestrator(store, repoRegistrar{memory.NewFileRepository()})

	pr, pw := io.Pipe()
	task, err := orch.Upload(context.Background(), domain.UploadCandidate{
		Content:          pr,
		DeclaredName:     "a.png",
		DeclaredMimeType: "image/png",
		SizeBytes:        8,
		OwnerKey:         "d1",
	})
	require.NoError(t, err)

	task.Cancel()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = pw.Write([]byte("0123"))
	}()

	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("task did not finish after cancel")
	}
	_ = pw.Close()
	wg.Wait()

	_, err = task.Wait()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, task.State())
}

func TestUploadFirst_IgnoresExtraFiles(t *testing.T) {
	store := storage.NewMemoryStorage(0)
	orch := NewOrchestrator(store, repoRegistrar{memory.NewFileRepository()})

	task, err := orch.UploadFirst(context.Background(), []domain.UploadCandidate{
		{Content: bytes.NewReader([]byte("a")), DeclaredName: "first.png", DeclaredMimeType: "image/png", SizeBytes: 1, OwnerKey: "d1"},
		{Content: bytes.NewReader([]byte("b")), DeclaredName: "second.png", DeclaredMimeType: "image/png", SizeBytes: 1, OwnerKey: "d1"},
	})
	require.NoError(t, err)
	result, err := task.Wait()
	require.NoError(t, err)
	assert.Equal(t, "first.png", result.Payload.DisplayName)
	assert.Equal(t, 1, store.PutCalls())

	_, err = orch.UploadFirst(context.Background(), nil)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestTask_ReportCoalescesAndClamps(t *testing.T) {
	task := newTask(func() {})
	task.report(-5)
	task.report(40)
	task.report(30)
	task.report(150)
	task.closeProgress()

	assert.Equal(t, []float64{100}, drain(task))
	assert.Equal(t, 100.0, task.Percent())
}
