// Package refresh re-fetches store collections on a cron schedule.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	cronlib "github.com/robfig/cron/v3"

	"github.com/evanschultz/trackit/internal/app"
)

// Job is one named refresh action, typically a store FetchAll.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Config holds the scheduler dependencies.
type Config struct {
	// Schedule is a standard cron spec or descriptor such as "@every 5m".
	Schedule string
	Jobs     []Job
	Logger   app.Logger
}

// Scheduler runs every job on each schedule tick. Ticks that arrive while the
// previous run is still going are skipped.
type Scheduler struct {
	cron   *cronlib.Cron
	jobs   []Job
	logger app.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	runs   int
}

// New validates the schedule and builds a stopped scheduler.
func New(cfg Config) (*Scheduler, error) {
	spec := strings.TrimSpace(cfg.Schedule)
	if spec == "" {
		return nil, errors.New("refresh schedule is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = app.NopLogger()
	}
	s := &Scheduler{
		jobs:   append([]Job(nil), cfg.Jobs...),
		logger: logger,
	}
	s.cron = cronlib.New(cronlib.WithChain(cronlib.SkipIfStillRunning(cronlib.DiscardLogger)))
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("parse refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins ticking until Stop or ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.cron.Start()
	s.logger.Info("refresh scheduler started", "jobs", len(s.jobs))
}

// Stop cancels in-flight jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	<-s.cron.Stop().Done()
	s.logger.Info("refresh scheduler stopped")
}

// Runs reports how many ticks have completed.
func (s *Scheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	_ = s.RunNow(ctx)
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()
}

// RunNow runs every job once, concurrently, and joins their errors.
// A failing job does not stop the others.
func (s *Scheduler) RunNow(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, job := range s.jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := job.Run(ctx); err != nil {
				s.logger.Warn("refresh job failed", "job", job.Name, "err", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", job.Name, err))
				mu.Unlock()
				return
			}
			s.logger.Debug("refresh job complete", "job", job.Name)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
