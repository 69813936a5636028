// Package scheduler runs a callback on a fixed interval. The desk uses it
// for the snapshot poll and the overdue tick; swapping polling for push
// only means replacing the scheduler, not its callers.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/visitdesk/internal/logging"
)

// Task is one unit of scheduled work.
type Task func(ctx context.Context)

// Config describes a schedule.
type Config struct {
	// Name appears in log lines.
	Name string
	// Interval between runs; must be positive.
	Interval time.Duration
	// Immediate runs the task once right after Start.
	Immediate bool
	// Overlap runs every tick in its own goroutine so a slow run never
	// delays the next one.
	Overlap bool
}

// Scheduler is created stopped; call Start once and Stop once.
type Scheduler struct {
	cfg     Config
	task    Task
	logger  logging.Logger
	trigger chan struct{}

	cancel   context.CancelFunc
	done     chan struct{}
	inflight sync.WaitGroup
}

func New(cfg Config, task Task, logger logging.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Scheduler{
		cfg:     cfg,
		task:    task,
		logger:  logger,
		trigger: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Start begins the loop. It exits when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
	s.logger.Info(ctx, "scheduler started", "name", s.cfg.Name, "interval", s.cfg.Interval.String())
}

// Stop cancels the loop and waits for any in-flight runs.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.inflight.Wait()
}

// Trigger requests an out-of-band run. Requests coalesce while one is
// already pending.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	if s.cfg.Immediate {
		s.run(ctx)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx)
		case <-s.trigger:
			s.run(ctx)
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	if !s.cfg.Overlap {
		s.safeRun(ctx)
		return
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.safeRun(ctx)
	}()
}

func (s *Scheduler) safeRun(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error(ctx, "scheduled task panicked", "name", s.cfg.Name, "panic", p)
		}
	}()
	s.task(ctx)
}
