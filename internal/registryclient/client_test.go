package registryclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"domex/api/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(config.RegistryConfig{BaseURL: srv.URL + "/", Timeout: 5 * time.Second, RetryMax: 2}, zap.NewNop())
	c.reads.RetryWaitMin = time.Millisecond
	c.reads.RetryWaitMax = time.Millisecond
	return c
}

func TestCreateFile(t *testing.T) {
	var got FilePayload
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/files", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"id":"65f0c0ffee0000000000abcd"}`))
	}))

	res, err := c.CreateFile(context.Background(), FilePayload{
		OwnerKey:    "d1",
		DisplayName: "logo.png",
		StoredName:  "d1_1_logo.png",
		SizeBytes:   42,
		MimeType:    "image/png",
		StoragePath: "domains/d1/d1_1_logo.png",
		FetchURL:    "https://cdn/x",
		UploadedAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "65f0c0ffee0000000000abcd", res.ID)
	assert.Equal(t, "d1", got.OwnerKey)
	assert.Equal(t, int64(42), got.SizeBytes)
}

func TestCreateFile_NotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"success":false,"error":"metadata store unavailable"}`))
	}))

	_, err := c.CreateFile(context.Background(), FilePayload{OwnerKey: "d1"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "metadata store unavailable", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateFile_Unacknowledged(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	_, err := c.CreateFile(context.Background(), FilePayload{OwnerKey: "d1"})
	assert.Error(t, err)
}

func TestListOwnerFiles_RetriesReads(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/owners/my%20domain/files", r.URL.EscapedPath())
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"files":[{"id":"65f0c0ffee0000000000abcd","ownerKey":"my domain","displayName":"a.png"}]}`))
	}))

	files, err := c.ListOwnerFiles(context.Background(), "my domain")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.png", files[0].DisplayName)
	assert.Equal(t, int32(2), calls.Load())
}

func TestListOwnerFiles_EmptyIsNotNil(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	files, err := c.ListOwnerFiles(context.Background(), "d1")
	require.NoError(t, err)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestDeleteFile_NotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":"File not found"}`))
	}))
	err := c.DeleteFile(context.Background(), "65f0c0ffee0000000000abcd")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUpdateFile_SendsOnlySetFields(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var raw map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, map[string]interface{}{"displayName": "new.png"}, raw)
		_, _ = w.Write([]byte(`{"success":true,"file":{"displayName":"new.png"}}`))
	}))
	name := "new.png"
	file, err := c.UpdateFile(context.Background(), "65f0c0ffee0000000000abcd", UpdatePayload{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "new.png", file.DisplayName)
}

func TestStats(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/files/stats", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"stats":{"totalFiles":2,"totalSize":300,"fileTypes":["application/pdf","image/png"]}}`))
	}))
	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalFiles)
	assert.Equal(t, int64(300), stats.TotalSize)
	assert.Equal(t, []string{"application/pdf", "image/png"}, stats.FileTypes)
}
