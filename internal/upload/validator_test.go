package upload

import (
	"strings"
	"testing"

	"domex/api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(mime string, size int64) domain.UploadCandidate {
	return domain.UploadCandidate{
		Content:          strings.NewReader(""),
		DeclaredName:     "file",
		DeclaredMimeType: mime,
		SizeBytes:        size,
		OwnerKey:         "d1",
	}
}

func TestValidate(t *testing.T) {
	const max = 10 * 1024 * 1024
	allowed := []string{"image/*", "application/pdf"}

	tests := []struct {
		name    string
		mime    string
		size    int64
		allowed []string
		wantErr string
	}{
		{name: "wildcard family", mime: "image/png", size: 2 * 1024 * 1024, allowed: allowed},
		{name: "exact type", mime: "application/pdf", size: 1, allowed: allowed},
		{name: "exactly max", mime: "image/jpeg", size: max, allowed: allowed},
		{name: "zero bytes", mime: "image/gif", size: 0, allowed: allowed},
		{name: "one over max", mime: "image/jpeg", size: max + 1, allowed: allowed,
			wantErr: "File size 10 MB exceeds the maximum of 10 MB"},
		{name: "pdf not in image-only list", mime: "application/pdf", size: 1, allowed: []string{"image/*"},
			wantErr: "File type application/pdf is not allowed. Allowed types: image/*"},
		{name: "empty list rejects everything", mime: "image/png", size: 1, allowed: nil,
			wantErr: "File type image/png is not allowed. Allowed types: "},
		{name: "family prefix needs slash", mime: "imagex/png", size: 1, allowed: []string{"image/*"},
			wantErr: "is not allowed"},
		{name: "negative size", mime: "image/png", size: -1, allowed: allowed,
			wantErr: "cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(candidate(tt.mime, tt.size), tt.allowed, max)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Reason, tt.wantErr)
		})
	}
}

func TestValidate_TypeCheckedBeforeSize(t *testing.T) {
	err := Validate(candidate("video/mp4", 12*1024*1024), []string{"image/*"}, 10*1024*1024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "File type video/mp4")
}

func TestValidateOwnerKey(t *testing.T) {
	tests := []struct {
		owner   string
		wantErr string
	}{
		{owner: "d1"},
		{owner: "example.com"},
		{owner: "64b7f0c2a1"},
		{owner: "", wantErr: "Owner key is required"},
		{owner: "   ", wantErr: "Owner key is required"},
		{owner: ".", wantErr: "invalid characters"},
		{owner: "../../other", wantErr: "invalid characters"},
		{owner: "d1/../d2", wantErr: "invalid characters"},
		{owner: "a/b", wantErr: "invalid characters"},
		{owner: `a\b`, wantErr: "invalid characters"},
	}

	for _, tt := range tests {
		t.Run(tt.owner, func(t *testing.T) {
			err := ValidateOwnerKey(tt.owner)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Reason, tt.wantErr)
		})
	}
}

func TestValidate_OwnerKeyCheckedFirst(t *testing.T) {
	c := candidate("video/mp4", 1)
	c.OwnerKey = "../d2"
	err := Validate(c, []string{"image/*"}, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Owner key contains invalid characters")
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 Bytes", FormatSize(0))
	assert.Equal(t, "512 Bytes", FormatSize(512))
	assert.Equal(t, "1 KB", FormatSize(1024))
	assert.Equal(t, "1.5 KB", FormatSize(1536))
	assert.Equal(t, "1 MB", FormatSize(1048576))
	assert.Equal(t, "12 MB", FormatSize(12*1024*1024))
	assert.Equal(t, "1.33 GB", FormatSize(1428076625))
}
