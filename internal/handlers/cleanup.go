package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"KEC-QUOTE/internal/logger"
)

// DraftCleaner removes the stored images of drafts nobody touched for maxAge.
type DraftCleaner interface {
	CleanupStaleDrafts(ctx context.Context, maxAge time.Duration) (int, error)
}

// CleanupService runs the draft cleanup on a cron schedule.
type CleanupService struct {
	cleaner  DraftCleaner
	schedule string
	maxAge   time.Duration
	timeout  time.Duration
	cron     *cron.Cron
	log      *logger.Logger
}

func NewCleanupService(cleaner DraftCleaner, schedule string, maxAge time.Duration, log *logger.Logger) *CleanupService {
	if log == nil {
		log = logger.Nop()
	}
	return &CleanupService{
		cleaner:  cleaner,
		schedule: schedule,
		maxAge:   maxAge,
		timeout:  5 * time.Minute,
		log:      log.With("component", "cleanup"),
	}
}

func (s *CleanupService) Start() error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(s.schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", s.schedule, err)
	}
	s.cron = c
	s.cron.Start()
	s.log.Info("draft cleanup scheduled", "schedule", s.schedule, "max_age", s.maxAge)
	return nil
}

// Stop waits for a running cleanup to finish.
func (s *CleanupService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.log.Info("draft cleanup stopped")
}

func (s *CleanupService) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	removed, err := s.cleaner.CleanupStaleDrafts(ctx, s.maxAge)
	if err != nil {
		s.log.Error("draft cleanup failed", "error", err)
	}
	return removed
}
