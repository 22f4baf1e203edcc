package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aatumaykin/microbot/internal/logger"
	robfig "github.com/robfig/cron/v3"
)

const (
	// DefaultCheckInterval is the default delay between reconciliation passes.
	DefaultCheckInterval = 10 * time.Second
	minCheckInterval     = 2 * time.Second
)

// PassRunner runs one reconciliation pass.
type PassRunner interface {
	RunPass(ctx context.Context) (PassResult, error)
}

// Scheduler drives periodic work with robfig/cron. Each job is wrapped with
// Recover and SkipIfStillRunning: a pass never overlaps with itself.
type Scheduler struct {
	cron   *robfig.Cron
	logger *logger.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
	entries map[string]robfig.EntryID
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	adapter := logAdapter{logger: log}
	return &Scheduler{
		cron: robfig.New(
			robfig.WithLogger(adapter),
			robfig.WithChain(robfig.Recover(adapter), robfig.SkipIfStillRunning(adapter)),
		),
		logger:  log,
		entries: make(map[string]robfig.EntryID),
	}
}

// Every registers fn to run every interval under name.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(ctx context.Context)) error {
	if interval <= 0 {
		return fmt.Errorf("interval for %s must be positive", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	id := s.cron.Schedule(robfig.Every(interval), robfig.FuncJob(func() {
		fn(s.jobContext())
	}))
	s.entries[name] = id

	s.logger.Info("periodic job registered",
		logger.Field{Key: "job", Value: name},
		logger.Field{Key: "interval", Value: interval.String()})
	return nil
}

// EveryPass registers the reconciliation pass. The interval is clamped to
// the minimum of two seconds.
func (s *Scheduler) EveryPass(interval time.Duration, runner PassRunner) error {
	if interval < minCheckInterval {
		interval = minCheckInterval
	}
	return s.Every("schedule", interval, func(ctx context.Context) {
		if _, err := runner.RunPass(ctx); err != nil {
			s.logger.ErrorCtx(ctx, "schedule pass failed", err)
		}
	})
}

func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// Start starts the scheduler; jobs receive a context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.cron.Start()
	s.logger.Info("scheduler started", logger.Field{Key: "jobs", Value: len(s.entries)})
	return nil
}

// Stop cancels running jobs and waits for them or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("scheduler not started")
	}
	s.started = false
	s.cancel()
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// IsStarted reports whether Start has been called without Stop.
func (s *Scheduler) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}
