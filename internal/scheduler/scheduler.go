package scheduler

import (
	"context"
	"time"

	"github.com/focusdeck/creditcore/internal/config"
	ierr "github.com/focusdeck/creditcore/internal/errors"
	"github.com/focusdeck/creditcore/internal/logger"
	"github.com/focusdeck/creditcore/internal/service"
	"github.com/robfig/cron/v3"
)

// sweepTimeout bounds a single scheduled sweep so a stuck database cannot
// pile up overlapping runs
const sweepTimeout = 30 * time.Minute

// Scheduler runs the lifecycle sweeper on a cron schedule in-process. It is
// only started when sweeper mode is enabled in config; deployments that rely
// on an external scheduler hit the cron endpoints instead.
type Scheduler struct {
	cron           *cron.Cron
	cfg            *config.Configuration
	logger         *logger.Logger
	sweeperService service.SweeperService
}

func NewScheduler(cfg *config.Configuration, sweeperService service.SweeperService, logger *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:           cron.New(),
		cfg:            cfg,
		logger:         logger,
		sweeperService: sweeperService,
	}
}

// Start registers the sweep job and starts the cron loop
func (s *Scheduler) Start() error {
	schedule := s.cfg.Sweeper.Schedule
	if _, err := s.cron.AddFunc(schedule, s.runSweep); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid sweeper cron schedule").
			WithReportableDetails(map[string]any{
				"schedule": schedule,
			}).
			Mark(ierr.ErrValidation)
	}

	s.cron.Start()
	s.logger.Infow("sweeper scheduler started", "schedule", schedule)
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.logger.Infow("sweeper scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	now := time.Now().UTC()
	resp, err := s.sweeperService.Run(ctx, now)
	if err != nil {
		s.logger.Errorw("scheduled sweep failed", "error", err)
		return
	}

	s.logger.Infow("scheduled sweep completed",
		"run_id", resp.RunID,
		"expired", resp.Expirations.Success,
		"expiry_failures", resp.Expirations.Failed,
		"renewed", resp.Renewals.Success,
		"renewal_failures", resp.Renewals.Failed)
}
