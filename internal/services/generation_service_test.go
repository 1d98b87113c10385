package services

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGenerateBatchCreatesImages(t *testing.T) {
	f := newGenerationFixture(t, 100, 3)
	ctx := context.Background()

	created, err := f.generation.GenerateBatch(ctx)
	require.NoError(t, err)
	require.Len(t, created, 3)

	for _, img := range created {
		assert.True(t, strings.HasPrefix(img.ImageURL, "/assets/images/"), img.ImageURL)
		assert.True(t, strings.HasSuffix(img.ImageURL, ".png"), img.ImageURL)
		assert.Equal(t, "test/model", img.Model)
		assert.True(t, img.IsPending())
		assert.NotEmpty(t, img.Prompt)
	}
	assert.Equal(t, 3, f.blobs.count())

	pending, err := f.images.GetPendingImages(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestGenerateBatchRemovesBlobWhenRecordFails(t *testing.T) {
	f := newGenerationFixture(t, 100, 2)
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_insert", func(tx *gorm.DB) {
		_ = tx.AddError(errors.New("insert failed"))
	}))

	_, err := f.generation.GenerateBatch(context.Background())

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Len(t, batchErr.Failures, 2)
	assert.Contains(t, batchErr.Details()[0], "insert failed")
	assert.Equal(t, 2, int(f.generator.calls.Load()))
	assert.Equal(t, 0, f.blobs.count())
}

func TestGenerateBatchPartialFailure(t *testing.T) {
	f := newGenerationFixture(t, 100, 3)
	var n atomic.Int32
	f.generator.fn = func(prompt string) (string, error) {
		if n.Add(1) == 2 {
			return "", errors.New("upstream exploded")
		}
		return f.imageURL, nil
	}

	created, err := f.generation.GenerateBatch(context.Background())
	require.NoError(t, err)
	assert.Len(t, created, 2)

	total, err := f.images.GetTotalImageCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestGenerateBatchAllFail(t *testing.T) {
	f := newGenerationFixture(t, 100, 3)
	f.generator.fn = func(prompt string) (string, error) {
		return "", errors.New("quota exceeded")
	}

	created, err := f.generation.GenerateBatch(context.Background())
	assert.Nil(t, created)

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	require.Len(t, batchErr.Details(), 3)
	for _, d := range batchErr.Details() {
		assert.Contains(t, d, "quota exceeded")
	}

	var genErr *GenerationError
	require.ErrorAs(t, batchErr.Failures[0], &genErr)
	assert.NotEmpty(t, genErr.Prompt)
}

func TestGenerateBatchCapReached(t *testing.T) {
	f := newGenerationFixture(t, 2, 3)
	seedImages(t, f.images, 2)

	created, err := f.generation.GenerateBatch(context.Background())
	assert.Nil(t, created)
	assert.ErrorIs(t, err, ErrCapReached)
	assert.Equal(t, int32(0), f.generator.calls.Load())

	total, err := f.images.GetTotalImageCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestGenerateBatchShrinksToRemainingCapacity(t *testing.T) {
	f := newGenerationFixture(t, 4, 3)
	seedImages(t, f.images, 3)

	created, err := f.generation.GenerateBatch(context.Background())
	require.NoError(t, err)
	assert.Len(t, created, 1)
	assert.Equal(t, int32(1), f.generator.calls.Load())

	count, limit, canGenerate, err := f.generation.Capacity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
	assert.Equal(t, int64(4), limit)
	assert.False(t, canGenerate)
}

func TestGenerateBatchRejectsConcurrentBatch(t *testing.T) {
	f := newGenerationFixture(t, 100, 1)
	unlock, err := f.generation.lock.TryLock(context.Background())
	require.NoError(t, err)

	_, err = f.generation.GenerateBatch(context.Background())
	assert.ErrorIs(t, err, ErrGenerationInProgress)

	unlock()
	created, err := f.generation.GenerateBatch(context.Background())
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

func TestGenerateImageDownloadFailure(t *testing.T) {
	f := newGenerationFixture(t, 100, 1)
	f.generator.fn = func(string) (string, error) { return f.serverURL + "/missing.png", nil }

	_, err := f.generation.GenerateImage(context.Background(), "p")

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "p", genErr.Prompt)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, 0, f.blobs.count())
}

func TestGenerateImageRejectsNonImage(t *testing.T) {
	f := newGenerationFixture(t, 100, 1)
	f.generator.fn = func(string) (string, error) { return f.serverURL + "/text", nil }

	_, err := f.generation.GenerateImage(context.Background(), "p")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected image")
}

func TestGenerateImageEmptyURL(t *testing.T) {
	f := newGenerationFixture(t, 100, 1)
	f.generator.fn = func(string) (string, error) { return "", nil }

	_, err := f.generation.GenerateImage(context.Background(), "p")

	assert.ErrorIs(t, err, ErrNoImageInResponse)
}

func TestGenerateImageStoreFailure(t *testing.T) {
	f := newGenerationFixture(t, 100, 1)
	f.blobs.err = errors.New("bucket gone")

	_, err := f.generation.GenerateImage(context.Background(), "p")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store image")
}

func TestGenerateImageFromDataURI(t *testing.T) {
	f := newGenerationFixture(t, 100, 1)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	f.generator.fn = func(string) (string, error) { return uri, nil }

	url, err := f.generation.GenerateImage(context.Background(), "p")

	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, ".png"))
	assert.Equal(t, 1, f.blobs.count())
}
