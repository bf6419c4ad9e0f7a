package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/recipeapp/apiserver/config"
	"github.com/stretchr/testify/require"
)

func TestValidateKey(t *testing.T) {
	valid := []string{"uploads/recipe/abc.jpg", "a.png"}
	for _, key := range valid {
		require.NoError(t, ValidateKey(key), key)
	}

	invalid := []string{"", "/etc/passwd", "../secret", "uploads/../../x", "uploads//x", "uploads/./x", `uploads\x`}
	for _, key := range invalid {
		require.ErrorIs(t, ValidateKey(key), ErrInvalidKey, key)
	}
}

func TestStorageURL(t *testing.T) {
	s := NewStorage(nil, "https://cdn.example.com/media")
	require.Equal(t, "https://cdn.example.com/media/uploads/recipe/a.jpg", s.URL("uploads/recipe/a.jpg"))
	require.Empty(t, s.URL(""))

	s = NewStorage(nil, "")
	require.Equal(t, "/media/a.jpg", s.URL("a.jpg"))
}

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "media")

	s, err := New(ctx, config.StorageConfig{Backend: "local", MediaRoot: root, MediaURL: "/media/"})
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	require.True(t, info.IsDir())

	payload := []byte("image-bytes")
	require.NoError(t, s.Put(ctx, "uploads/recipe/x.png", bytes.NewReader(payload), int64(len(payload)), "image/png"))

	rc, err := s.Get(ctx, "uploads/recipe/x.png")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	require.Equal(t, payload, got)

	require.NoError(t, s.Delete(ctx, "uploads/recipe/x.png"))
	_, err = s.Get(ctx, "uploads/recipe/x.png")
	require.ErrorIs(t, err, ErrObjectNotFound)

	// deleting twice is fine
	require.NoError(t, s.Delete(ctx, "uploads/recipe/x.png"))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, config.StorageConfig{Backend: "local", MediaRoot: t.TempDir()})
	require.NoError(t, err)

	err = s.Put(ctx, "../escape.txt", bytes.NewReader(nil), 0, "")
	require.True(t, errors.Is(err, ErrInvalidKey))
}

func TestNewUnsupportedBackend(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Backend: "ftp"})
	require.ErrorContains(t, err, "unsupported storage backend")
}
