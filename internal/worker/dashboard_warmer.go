package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DashboardWarmer is the part of the dashboard service the cron job needs.
type DashboardWarmer interface {
	WarmAdmin(ctx context.Context) error
}

// Scheduler runs periodic cache maintenance.
type Scheduler struct {
	cron    *cron.Cron
	warmer  DashboardWarmer
	timeout time.Duration
	logger  *zap.Logger
}

// NewScheduler registers the dashboard warm job on spec. An empty spec
// disables the job.
func NewScheduler(spec string, warmer DashboardWarmer, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		warmer:  warmer,
		timeout: time.Minute,
		logger:  logger,
	}
	if spec == "" || warmer == nil {
		return s, nil
	}
	if _, err := s.cron.AddFunc(spec, s.warm); err != nil {
		return nil, fmt.Errorf("schedule dashboard warm %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) warm() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	if err := s.warmer.WarmAdmin(ctx); err != nil {
		s.logger.Warn("dashboard warm failed", zap.Error(err))
		return
	}
	s.logger.Debug("dashboard warmed", zap.Duration("took", time.Since(started)))
}
