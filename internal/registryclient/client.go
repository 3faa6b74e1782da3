// Package registryclient talks to the file metadata registry over HTTP.
package registryclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"domex/api/internal/config"
	"domex/api/internal/domain"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// ErrNotFound is returned when the registry answers 404.
var ErrNotFound = errors.New("file not found")

// APIError is a non-success answer from the registry.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("API error: %d %s", e.StatusCode, e.Message)
}

// FilePayload is the metadata submitted on create.
type FilePayload struct {
	OwnerKey     string    `json:"ownerKey"`
	DisplayName  string    `json:"displayName"`
	OriginalName string    `json:"originalName,omitempty"`
	StoredName   string    `json:"storedName"`
	SizeBytes    int64     `json:"sizeBytes"`
	MimeType     string    `json:"mimeType"`
	StoragePath  string    `json:"storagePath"`
	FetchURL     string    `json:"fetchUrl"`
	UploadedAt   time.Time `json:"uploadedAt"`
	Tags         []string  `json:"tags,omitempty"`
	IsPublic     *bool     `json:"isPublic,omitempty"`
}

// CreateResult is the registry's acknowledgement of a create.
type CreateResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
}

// UpdatePayload carries the optional editable fields.
type UpdatePayload struct {
	DisplayName *string   `json:"displayName,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	IsPublic    *bool     `json:"isPublic,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

type fileBody struct {
	File domain.FileRecord `json:"file"`
}

type filesBody struct {
	Files []domain.FileRecord `json:"files"`
}

type statsBody struct {
	Stats domain.FileStats `json:"stats"`
}

// Client is a registry client. Only idempotent reads are retried; create,
// update and delete are single attempts.
type Client struct {
	baseURL string
	reads   *retryablehttp.Client
	writes  *retryablehttp.Client
}

// New creates a client for the registry at cfg.BaseURL.
func New(cfg config.RegistryConfig, logger *zap.Logger) *Client {
	log := leveledLogger{logger.Named("registryclient")}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		reads:   newHTTPClient(cfg.Timeout, cfg.RetryMax, log),
		writes:  newHTTPClient(cfg.Timeout, 0, log),
	}
}

func newHTTPClient(timeout time.Duration, retryMax int, log leveledLogger) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = retryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	if timeout > 0 {
		rc.HTTPClient.Timeout = timeout
	}
	rc.Logger = log
	// Hand the last response back instead of retryablehttp's "giving up" error.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return rc
}

// CreateFile registers the metadata of a transferred blob.
func (c *Client) CreateFile(ctx context.Context, payload FilePayload) (*CreateResult, error) {
	var result CreateResult
	if err := c.do(ctx, http.MethodPost, "/api/files", payload, &result); err != nil {
		return nil, err
	}
	if !result.Success || result.ID == "" {
		return nil, errors.New("registry did not acknowledge the file")
	}
	return &result, nil
}

// ListOwnerFiles returns the owner's active files, newest first.
func (c *Client) ListOwnerFiles(ctx context.Context, ownerKey string) ([]domain.FileRecord, error) {
	var body filesBody
	if err := c.do(ctx, http.MethodGet, "/api/owners/"+url.PathEscape(ownerKey)+"/files", nil, &body); err != nil {
		return nil, err
	}
	if body.Files == nil {
		body.Files = []domain.FileRecord{}
	}
	return body.Files, nil
}

// GetFile fetches one active file.
func (c *Client) GetFile(ctx context.Context, id string) (*domain.FileRecord, error) {
	var body fileBody
	if err := c.do(ctx, http.MethodGet, "/api/files/"+url.PathEscape(id), nil, &body); err != nil {
		return nil, err
	}
	return &body.File, nil
}

// UpdateFile edits display name, tags or visibility.
func (c *Client) UpdateFile(ctx context.Context, id string, payload UpdatePayload) (*domain.FileRecord, error) {
	var body fileBody
	if err := c.do(ctx, http.MethodPut, "/api/files/"+url.PathEscape(id), payload, &body); err != nil {
		return nil, err
	}
	return &body.File, nil
}

// DeleteFile soft-deletes a file. Deleting twice reports ErrNotFound.
func (c *Client) DeleteFile(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/files/"+url.PathEscape(id), nil, nil)
}

// Stats returns the registry-wide aggregate.
func (c *Client) Stats(ctx context.Context) (*domain.FileStats, error) {
	var body statsBody
	if err := c.do(ctx, http.MethodGet, "/api/files/stats", nil, &body); err != nil {
		return nil, err
	}
	return &body.Stats, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := c.writes
	if method == http.MethodGet {
		httpClient = c.reads
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, eb.Error)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: eb.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct {
	l *zap.Logger
}

func (z leveledLogger) Error(msg string, kv ...interface{}) { z.l.Sugar().Errorw(msg, kv...) }
func (z leveledLogger) Info(msg string, kv ...interface{})  { z.l.Sugar().Infow(msg, kv...) }
func (z leveledLogger) Debug(msg string, kv ...interface{}) { z.l.Sugar().Debugw(msg, kv...) }
func (z leveledLogger) Warn(msg string, kv ...interface{})  { z.l.Sugar().Warnw(msg, kv...) }
