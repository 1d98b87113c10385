package services

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/artswipe/backend/internal/config"
	"github.com/artswipe/backend/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.Migrate(db))
	return db
}

// newImageServer serves a PNG at /ok.png and 404 elsewhere
func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngBytes)
		case "/text":
			_, _ = w.Write([]byte("not an image at all"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fakeGenerator struct {
	fn    func(prompt string) (string, error)
	calls atomic.Int32
}

func (g *fakeGenerator) GenerateImage(ctx context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	if g.fn == nil {
		return "", errors.New("no generator configured")
	}
	return g.fn(prompt)
}

func (g *fakeGenerator) Model() string { return "test/model" }

type memoryBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{objects: map[string][]byte{}}
}

func (m *memoryBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}
	m.objects[key] = data
	return "/assets/" + key, nil
}

func (m *memoryBlobStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, key)
	return nil
}

func (m *memoryBlobStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type generationFixture struct {
	db         *gorm.DB
	images     *ImageService
	generator  *fakeGenerator
	blobs      *memoryBlobStore
	generation *GenerationService
	imageURL   string
	serverURL  string
}

func newGenerationFixture(t *testing.T, maxImages int64, batchSize int) *generationFixture {
	t.Helper()

	db := newTestDB(t)
	srv := newImageServer(t)
	images := NewImageService(db, nil)
	gen := &fakeGenerator{fn: func(string) (string, error) { return srv.URL + "/ok.png", nil }}
	blobs := newMemoryBlobStore()

	cfg := &config.Config{MaxImages: maxImages, BatchSize: batchSize}
	generation := NewGenerationService(cfg, images, NewPromptService(rand.New(rand.NewSource(1))), gen, blobs, nil)

	return &generationFixture{
		db:         db,
		images:     images,
		generator:  gen,
		blobs:      blobs,
		generation: generation,
		imageURL:   srv.URL + "/ok.png",
		serverURL:  srv.URL,
	}
}

func seedImages(t *testing.T, images *ImageService, n int) []*models.Image {
	t.Helper()

	out := make([]*models.Image, 0, n)
	for i := 0; i < n; i++ {
		img, err := images.CreateImage(context.Background(), "/assets/seed.png", "seed prompt", "test/model")
		require.NoError(t, err)
		out = append(out, img)
	}
	return out
}
