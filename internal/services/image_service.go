package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/artswipe/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrImageNotFound = errors.New("image not found")

// ImageService is the persistent image store
type ImageService struct {
	db    *gorm.DB
	cache StatsCache

	clockMu  sync.Mutex
	lastTime time.Time
}

func NewImageService(db *gorm.DB, cache StatsCache) *ImageService {
	if cache == nil {
		cache = noopStatsCache{}
	}
	return &ImageService{db: db, cache: cache}
}

// GetDB exposes the underlying handle for health checks
func (s *ImageService) GetDB() *gorm.DB { return s.db }

// now returns a UTC timestamp strictly after the previous one at microsecond precision,
// so created_at keeps insertion order even on databases that truncate to microseconds.
func (s *ImageService) now() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()

	t := time.Now().UTC().Truncate(time.Microsecond)
	if !t.After(s.lastTime) {
		t = s.lastTime.Add(time.Microsecond)
	}
	s.lastTime = t
	return t
}

// CreateImage records a freshly generated image as pending
func (s *ImageService) CreateImage(ctx context.Context, imageURL, prompt, model string) (*models.Image, error) {
	image := &models.Image{
		ImageURL:  imageURL,
		Prompt:    prompt,
		Model:     model,
		CreatedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(image).Error; err != nil {
		return nil, fmt.Errorf("failed to create image record: %w", err)
	}
	return image, nil
}

// GetPendingImages returns unswiped images, oldest first
func (s *ImageService) GetPendingImages(ctx context.Context) ([]models.Image, error) {
	images := []models.Image{}
	err := s.db.WithContext(ctx).
		Where("liked IS NULL").
		Order("created_at ASC").Order("id ASC").
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load pending images: %w", err)
	}
	return images, nil
}

// GetLikedImages returns liked images, newest first
func (s *ImageService) GetLikedImages(ctx context.Context) ([]models.Image, error) {
	images := []models.Image{}
	err := s.db.WithContext(ctx).
		Where("liked = ?", true).
		Order("created_at DESC").Order("id DESC").
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load liked images: %w", err)
	}
	return images, nil
}

// GetImageByID returns a single image by ID
func (s *ImageService) GetImageByID(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	var image models.Image
	if err := s.db.WithContext(ctx).First(&image, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	return &image, nil
}

// SwipeImage records a like or dislike. The first swipe wins: once an image has a
// decision, later swipes leave it untouched and return the stored image.
func (s *ImageService) SwipeImage(ctx context.Context, id uuid.UUID, liked bool) (*models.Image, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Image{}).
		Where("id = ? AND liked IS NULL", id).
		Update("liked", liked)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to record swipe: %w", res.Error)
	}

	if res.RowsAffected > 0 {
		s.cache.InvalidateStats(ctx)
	}

	return s.GetImageByID(ctx, id)
}

// GetStats counts liked and disliked images
func (s *ImageService) GetStats(ctx context.Context) (*models.Stats, error) {
	cached, version, ok := s.cache.GetStats(ctx)
	if ok {
		return cached, nil
	}

	var rows []struct {
		Liked bool
		Count int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.Image{}).
		Select("liked, COUNT(*) AS count").
		Where("liked IS NOT NULL").
		Group("liked").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	stats := &models.Stats{}
	for _, r := range rows {
		if r.Liked {
			stats.Liked = r.Count
		} else {
			stats.Disliked = r.Count
		}
	}
	stats.Total = stats.Liked + stats.Disliked

	s.cache.SetStats(ctx, stats, version)
	return stats, nil
}

// GetTotalImageCount counts every image ever generated
func (s *ImageService) GetTotalImageCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Image{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return count, nil
}

// GetPendingCount counts unswiped images
func (s *ImageService) GetPendingCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Image{}).Where("liked IS NULL").Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count pending images: %w", err)
	}
	return count, nil
}
