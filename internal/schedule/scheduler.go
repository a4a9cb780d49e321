// Package schedule runs background jobs on standard five-field cron specs.
package schedule

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Job is one unit of background work. Run never overlaps with itself: a
// tick that fires while the previous run is still going is skipped, not
// queued.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
	jobs map[string]struct{}
	ctx  context.Context
}

func New() *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &Scheduler{
		cron: cron.New(cron.WithParser(parser)),
		jobs: make(map[string]struct{}),
	}
}

// Add registers a job under a cron spec. Job names must be unique.
func (s *Scheduler) Add(job Job, spec string) error {
	name := job.Name()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job already scheduled: %s", name)
	}
	if _, err := s.cron.AddFunc(spec, s.wrap(job)); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.jobs[name] = struct{}{}
	logutil.GetLogger(context.Background()).Info("job scheduled",
		zap.String("job", name),
		zap.String("spec", spec),
	)
	return nil
}

// Start begins firing jobs. The context is handed to every run; Add must
// not be called after Start.
func (s *Scheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx = ctx
	s.cron.Start()
}

// Stop halts scheduling and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) wrap(job Job) func() {
	var running atomic.Bool
	return func() {
		ctx := s.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		logger := logutil.GetLogger(ctx).With(zap.String("job", job.Name()))
		if !running.CompareAndSwap(false, true) {
			logger.Info("previous run still active, skipping")
			return
		}
		defer running.Store(false)

		start := time.Now()
		if err := job.Run(ctx); err != nil {
			logger.Error("job failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
			return
		}
		logger.Info("job done", zap.Duration("elapsed", time.Since(start)))
	}
}
