package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefillSkipsWhenEnoughPending(t *testing.T) {
	f := newGenerationFixture(t, 100, 3)
	seedImages(t, f.images, 3)
	prefill := NewPrefillService(f.images, f.generation, 3)

	created, err := prefill.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Equal(t, int32(0), f.generator.calls.Load())
}

func TestPrefillGeneratesWhenLow(t *testing.T) {
	f := newGenerationFixture(t, 100, 3)
	seedImages(t, f.images, 1)
	prefill := NewPrefillService(f.images, f.generation, 3)

	created, err := prefill.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, created)
}

func TestPrefillSkipsAtCap(t *testing.T) {
	f := newGenerationFixture(t, 1, 3)
	seedImages(t, f.images, 1)
	img, err := f.images.GetPendingImages(context.Background())
	require.NoError(t, err)
	_, err = f.images.SwipeImage(context.Background(), img[0].ID, false)
	require.NoError(t, err)

	created, err := NewPrefillService(f.images, f.generation, 3).RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestPrefillStartRejectsBadSchedule(t *testing.T) {
	f := newGenerationFixture(t, 100, 3)
	prefill := NewPrefillService(f.images, f.generation, 3)

	assert.Error(t, prefill.Start(context.Background(), "not a schedule"))
}
