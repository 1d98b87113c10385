package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// PrefillService tops up the pending pool on a cron schedule
type PrefillService struct {
	images     *ImageService
	generation *GenerationService
	minPending int64
	cron       *cron.Cron
}

func NewPrefillService(images *ImageService, generation *GenerationService, minPending int64) *PrefillService {
	return &PrefillService{
		images:     images,
		generation: generation,
		minPending: minPending,
		cron:       cron.New(cron.WithSeconds()),
	}
}

// Start schedules RunOnce with a six-field cron spec (seconds first)
func (s *PrefillService) Start(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			log.Printf("[CRON] Prefill failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid prefill schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	log.Printf("Prefill scheduler started (%s, min pending %d)", schedule, s.minPending)
	return nil
}

// Stop waits for a running prefill to finish
func (s *PrefillService) Stop() {
	<-s.cron.Stop().Done()
	log.Println("Prefill scheduler stopped")
}

// RunOnce generates a batch when fewer than minPending images are waiting.
// It returns the number of images created.
func (s *PrefillService) RunOnce(ctx context.Context) (int, error) {
	pending, err := s.images.GetPendingCount(ctx)
	if err != nil {
		return 0, err
	}
	if pending >= s.minPending {
		return 0, nil
	}

	created, err := s.generation.GenerateBatch(ctx)
	switch {
	case errors.Is(err, ErrCapReached), errors.Is(err, ErrGenerationInProgress):
		log.Printf("[CRON] Prefill skipped: %v", err)
		return 0, nil
	case err != nil:
		return 0, err
	}

	log.Printf("[CRON] Prefill created %d images (%d were pending)", len(created), pending)
	return len(created), nil
}
