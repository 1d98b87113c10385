package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/artswipe/backend/internal/config"
	"github.com/artswipe/backend/internal/models"
)

const maxDownloadSize = 20 << 20 // 20MB

var ErrCapReached = errors.New("image limit reached")

// GenerationError is a failed attempt to produce and store one image
type GenerationError struct {
	Prompt string
	Err    error
}

func (e *GenerationError) Error() string {
	return "image generation failed: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// BatchError is returned when every attempt of a batch failed
type BatchError struct {
	Failures []error
}

func (e *BatchError) Error() string {
	return "All image generations failed"
}

// Details lists the reason of every failed attempt
func (e *BatchError) Details() []string {
	details := make([]string, len(e.Failures))
	for i, err := range e.Failures {
		details[i] = err.Error()
	}
	return details
}

type GenerationService struct {
	images     *ImageService
	prompts    *PromptService
	generator  ImageGenerator
	blobs      BlobStore
	lock       GenerationLock
	httpClient *http.Client

	maxImages int64
	batchSize int
	timeout   time.Duration
}

func NewGenerationService(cfg *config.Config, images *ImageService, prompts *PromptService, generator ImageGenerator, blobs BlobStore, lock GenerationLock) *GenerationService {
	if lock == nil {
		lock = NewLocalGenerationLock()
	}
	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	return &GenerationService{
		images:     images,
		prompts:    prompts,
		generator:  generator,
		blobs:      blobs,
		lock:       lock,
		httpClient: &http.Client{Timeout: time.Minute},
		maxImages:  cfg.MaxImages,
		batchSize:  batchSize,
		timeout:    cfg.GenerationTimeout,
	}
}

// Capacity reports the current image count against the cap
func (s *GenerationService) Capacity(ctx context.Context) (count, limit int64, canGenerate bool, err error) {
	count, err = s.images.GetTotalImageCount(ctx)
	if err != nil {
		return 0, 0, false, err
	}
	return count, s.maxImages, count < s.maxImages, nil
}

// GenerateImage produces one image for prompt, copies it into blob storage and returns its URL
func (s *GenerationService) GenerateImage(ctx context.Context, prompt string) (string, error) {
	stored, _, err := s.generateAndStore(ctx, prompt)
	return stored, err
}

// generateAndStore returns the public URL and the blob key of the stored image
func (s *GenerationService) generateAndStore(ctx context.Context, prompt string) (string, string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	sourceURL, err := s.generator.GenerateImage(ctx, prompt)
	if err != nil {
		return "", "", &GenerationError{Prompt: prompt, Err: err}
	}
	if sourceURL == "" {
		return "", "", &GenerationError{Prompt: prompt, Err: ErrNoImageInResponse}
	}

	data, contentType, err := s.download(ctx, sourceURL)
	if err != nil {
		return "", "", &GenerationError{Prompt: prompt, Err: err}
	}

	key := BuildObjectKey("images", contentType)
	stored, err := s.blobs.Put(ctx, key, data, contentType)
	if err != nil {
		return "", "", &GenerationError{Prompt: prompt, Err: fmt.Errorf("failed to store image: %w", err)}
	}

	return stored, key, nil
}

// GenerateBatch creates up to BatchSize images, bounded by the remaining cap.
// Attempts run concurrently and fail independently; the batch fails only when all of them do.
func (s *GenerationService) GenerateBatch(ctx context.Context) ([]models.Image, error) {
	unlock, err := s.lock.TryLock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	count, err := s.images.GetTotalImageCount(ctx)
	if err != nil {
		return nil, err
	}

	remaining := s.maxImages - count
	if remaining <= 0 {
		return nil, fmt.Errorf("%w (%d/%d)", ErrCapReached, count, s.maxImages)
	}

	size := s.batchSize
	if int64(size) > remaining {
		size = int(remaining)
	}
	prompts := s.prompts.GeneratePrompts(size)

	type result struct {
		image *models.Image
		err   error
	}
	results := make([]result, len(prompts))

	var wg sync.WaitGroup
	for i, prompt := range prompts {
		wg.Add(1)
		go func(idx int, prompt string) {
			defer wg.Done()

			imageURL, key, err := s.generateAndStore(ctx, prompt)
			if err != nil {
				results[idx] = result{err: err}
				return
			}

			image, err := s.images.CreateImage(ctx, imageURL, prompt, s.generator.Model())
			if err != nil {
				// the record is gone, so is the blob
				if derr := s.blobs.Delete(context.WithoutCancel(ctx), key); derr != nil {
					log.Printf("Failed to remove orphaned blob %s: %v", key, derr)
				}
				results[idx] = result{err: &GenerationError{Prompt: prompt, Err: err}}
				return
			}
			results[idx] = result{image: image}
		}(i, prompt)
	}
	wg.Wait()

	created := make([]models.Image, 0, len(results))
	var failures []error
	for _, r := range results {
		if r.err != nil {
			log.Printf("Image generation attempt failed: %v", r.err)
			failures = append(failures, r.err)
			continue
		}
		created = append(created, *r.image)
	}

	if len(created) == 0 {
		return nil, &BatchError{Failures: failures}
	}

	log.Printf("Generated %d/%d images", len(created), len(prompts))
	return created, nil
}

func (s *GenerationService) download(ctx context.Context, sourceURL string) ([]byte, string, error) {
	var data []byte
	if strings.HasPrefix(sourceURL, "data:") {
		decoded, err := decodeDataURI(sourceURL)
		if err != nil {
			return nil, "", err
		}
		data = decoded
	} else {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create download request: %w", err)
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("failed to download image: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, "", fmt.Errorf("failed to download image: unexpected status code: %d", resp.StatusCode)
		}

		data, err = io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
		if err != nil {
			return nil, "", fmt.Errorf("failed to read image: %w", err)
		}
		if len(data) > maxDownloadSize {
			return nil, "", fmt.Errorf("image too large: more than %d bytes", maxDownloadSize)
		}
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("invalid content type: expected image, got %s", contentType)
	}
	return data, contentType, nil
}

// decodeDataURI handles base64 data URIs returned by sync-mode generation
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("unsupported data URI")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data URI: %w", err)
	}
	return data, nil
}
