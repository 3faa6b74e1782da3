package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"domex/api/internal/domain"
	"domex/api/internal/registryclient"
	"domex/api/internal/storage"
	"domex/api/internal/upload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestBuildCandidate_DetectsType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logo.png")
	require.NoError(t, os.WriteFile(path, append(pngHeader, make([]byte, 64)...), 0o600))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	c, err := buildCandidate(f, path, "d1", "")
	require.NoError(t, err)
	assert.Equal(t, "image/png", c.DeclaredMimeType)
	assert.Equal(t, "logo.png", c.DeclaredName)
	assert.Equal(t, int64(len(pngHeader)+64), c.SizeBytes)

	// Rewound after sniffing.
	head := make([]byte, 4)
	_, err = f.Read(head)
	require.NoError(t, err)
	assert.Equal(t, pngHeader[:4], head)
}

func TestOpenFirst_IgnoresRemainingPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logo.png")
	require.NoError(t, os.WriteFile(path, append(pngHeader, make([]byte, 16)...), 0o600))
	missing := filepath.Join(dir, "does-not-exist.png")

	var out bytes.Buffer
	c, f, err := openFirst(&out, []string{path, missing}, "d1", "", "Brand logo.png")
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "Brand logo.png", c.DeclaredName)
	assert.Equal(t, "image/png", c.DeclaredMimeType)
	assert.Equal(t, "d1", c.OwnerKey)
	assert.Contains(t, out.String(), "ignoring: "+missing)
}

func TestOpenFirst_MissingFirstPath(t *testing.T) {
	_, f, err := openFirst(&bytes.Buffer{}, []string{filepath.Join(t.TempDir(), "nope.png")}, "d1", "", "")
	assert.Error(t, err)
	assert.Nil(t, f)
}

func TestDetectMimeType_StripsParameters(t *testing.T) {
	mt, err := detectMimeType(strings.NewReader("just some words\n"))
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mt)
}

type okRegistrar struct{}

func (okRegistrar) CreateFile(context.Context, registryclient.FilePayload) (*registryclient.CreateResult, error) {
	return &registryclient.CreateResult{ID: "65f0c0ffee0000000000abcd", Success: true}, nil
}

func TestRunUpload_PrintsProgress(t *testing.T) {
	store := storage.NewMemoryStorage(16)
	orch := upload.NewOrchestrator(store, okRegistrar{})

	var out bytes.Buffer
	var got *upload.Result
	err := runUpload(context.Background(), &out, orch, []domain.UploadCandidate{{
		Content:          bytes.NewReader(make([]byte, 64)),
		DeclaredName:     "logo.png",
		DeclaredMimeType: "image/png",
		SizeBytes:        64,
		OwnerKey:         "d1",
	}}, func(r *upload.Result) error { got = r; return nil })
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "65f0c0ffee0000000000abcd", got.Registration.ID)
	assert.Contains(t, out.String(), "100%")
}

func TestRunUpload_Rejected(t *testing.T) {
	store := storage.NewMemoryStorage(0)
	orch := upload.NewOrchestrator(store, okRegistrar{}, upload.WithAllowedTypes([]string{"image/*"}))

	err := runUpload(context.Background(), &bytes.Buffer{}, orch, []domain.UploadCandidate{{
		Content:          strings.NewReader("%PDF"),
		DeclaredName:     "deed.pdf",
		DeclaredMimeType: "application/pdf",
		SizeBytes:        4,
		OwnerKey:         "d1",
	}}, func(*upload.Result) error { return nil })
	assert.EqualError(t, err, "File type application/pdf is not allowed. Allowed types: image/*")
	assert.Zero(t, store.PutCalls())
}

func TestUpdatePayload_OnlyChangedFlags(t *testing.T) {
	cmd := newUpdateCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--tags", "hero, brand,,"}))
	p := updatePayload(cmd, "", "hero, brand,,", false)
	assert.Nil(t, p.DisplayName)
	assert.Nil(t, p.IsPublic)
	require.NotNil(t, p.Tags)
	assert.Equal(t, []string{"hero", "brand"}, *p.Tags)

	cmd = newUpdateCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--public"}))
	p = updatePayload(cmd, "", "", true)
	require.NotNil(t, p.IsPublic)
	assert.True(t, *p.IsPublic)
	assert.Nil(t, p.Tags)

}
