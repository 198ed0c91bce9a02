package assets

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sagar-1m/Event-Engage/internal/models"
	"github.com/sagar-1m/Event-Engage/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()
	return NewDiskStore(t.TempDir(), "/media", 5)
}

func TestDiskStore_UploadWritesAllVariants(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	res, err := store.Upload(ctx, testutil.MakePNG(1600, 900), "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.PublicID, "events/"))
	assert.Contains(t, res.URL, "/original.jpg")
	assert.Contains(t, res.MediumURL, "/medium.jpg")
	assert.Contains(t, res.ThumbnailURL, "/thumbnail.jpg")

	assetDir := filepath.Join(store.RootDir(), filepath.FromSlash(res.PublicID))
	for _, name := range []string{"original.jpg", "original.webp", "medium.jpg", "medium.webp", "thumbnail.jpg", "thumbnail.webp"} {
		_, statErr := os.Stat(filepath.Join(assetDir, name))
		assert.NoError(t, statErr, "missing variant %s", name)
	}

	// Variants are crop-filled to exact dimensions.
	f, err := os.Open(filepath.Join(assetDir, "thumbnail.jpg"))
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 300, cfg.Height)
}

func TestDiskStore_UploadRejectsBadInput(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cases := []struct {
		name        string
		content     []byte
		contentType string
	}{
		{"empty body", nil, "image/png"},
		{"not an image", []byte("plain text body, definitely not pixels"), "image/png"},
		{"oversized", bytes.Repeat([]byte{0xFF}, 6*1024*1024), "image/jpeg"},
		{"type mismatch", testutil.MakePNG(100, 100), "image/jpeg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Upload(ctx, tc.content, tc.contentType)
			require.Error(t, err)
			var appErr *models.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, models.CodeValidation, appErr.Code)
		})
	}
}

func TestDiskStore_DeleteRemovesAsset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	res, err := store.Upload(ctx, testutil.MakeJPEG(800, 600), "image/jpeg")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, res.PublicID))

	_, statErr := os.Stat(filepath.Join(store.RootDir(), filepath.FromSlash(res.PublicID)))
	assert.True(t, os.IsNotExist(statErr))

	// Deleting again is not an error.
	assert.NoError(t, store.Delete(ctx, res.PublicID))
}

func TestDiskStore_DeleteRejectsTraversal(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Delete(context.Background(), "events/../../etc"))
	assert.Error(t, store.Delete(context.Background(), "somewhere/else"))
}

func TestPublicIDFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"store url", "/media/events/abc-123/original.jpg", "events/abc-123"},
		{"absolute store url", "https://api.example.com/media/events/abc-123/medium.jpg", "events/abc-123"},
		{"legacy flat url", "https://cdn.example.com/v1/events/cover42.png", "events/cover42"},
		{"bare filename fallback", "https://cdn.example.com/uploads/banner.jpg", "events/banner"},
		{"empty", "", ""},
		{"no reference", "https://cdn.example.com/", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PublicIDFromURL(tt.url))
		})
	}
}
