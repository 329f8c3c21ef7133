package service

import (
	"context"
	"time"

	"water_pump_monitor/internal/logger"
	"water_pump_monitor/internal/repository"
)

// RetentionService keeps the journal bounded by deleting entries older than
// maxAge. A non-positive maxAge keeps everything.
type RetentionService struct {
	eventRepo repository.EventRepo
	maxAge    time.Duration
	log       *logger.Logger
	now       func() time.Time
}

func NewRetentionService(eventRepo repository.EventRepo, maxAge time.Duration, log *logger.Logger) *RetentionService {
	if log == nil {
		log = logger.Nop()
	}
	return &RetentionService{
		eventRepo: eventRepo,
		maxAge:    maxAge,
		log:       log,
		now:       time.Now,
	}
}

// PruneOnce deletes everything older than now-maxAge.
func (s *RetentionService) PruneOnce(ctx context.Context) (int64, error) {
	if s.maxAge <= 0 {
		return 0, nil
	}
	return s.eventRepo.Prune(ctx, s.now().UTC().Add(-s.maxAge))
}

// Run prunes once right away and then every tick until ctx is done.
func (s *RetentionService) Run(ctx context.Context, tick time.Duration) {
	if s.maxAge <= 0 || tick <= 0 {
		return
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		s.prune(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *RetentionService) prune(ctx context.Context) {
	n, err := s.PruneOnce(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Errorw("journal_prune_failed", "err", err)
		}
		return
	}
	if n > 0 {
		s.log.Infow("journal_pruned", "rows", n, "max_age", s.maxAge)
	}
}
