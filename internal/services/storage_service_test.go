package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageServicePut(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewStorageService(dir, "/assets/")
	require.NoError(t, err)

	key := BuildObjectKey("images", "image/png")
	url, err := svc.Put(context.Background(), key, pngBytes, "image/png")
	require.NoError(t, err)

	assert.Equal(t, "/assets/"+key, url)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(key)) + ".part")
	assert.True(t, os.IsNotExist(err))
}

func TestStorageServiceDelete(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewStorageService(dir, "/assets")
	require.NoError(t, err)
	ctx := context.Background()

	key := BuildObjectKey("images", "image/png")
	_, err = svc.Put(ctx, key, pngBytes, "image/png")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, key))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(key)))
	assert.True(t, os.IsNotExist(err))

	// already gone
	assert.NoError(t, svc.Delete(ctx, key))
	assert.Error(t, svc.Delete(ctx, "../outside.png"))
}

func TestStorageServiceRejectsEscapingKey(t *testing.T) {
	svc, err := NewStorageService(t.TempDir(), "/assets")
	require.NoError(t, err)

	_, err = svc.Put(context.Background(), "../outside.png", pngBytes, "image/png")
	assert.Error(t, err)
}

func TestBuildObjectKey(t *testing.T) {
	a := BuildObjectKey("images", "image/jpeg")
	b := BuildObjectKey("images", "image/jpeg")

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "images/"))
	assert.True(t, strings.HasSuffix(a, ".jpg"))
	assert.True(t, strings.HasSuffix(BuildObjectKey("images", "image/webp"), ".webp"))
	assert.False(t, strings.Contains(BuildObjectKey("images", "application/octet-stream"), "."))
}
