// Package scheduler runs the periodic day/night re-application task.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/moodify/internal/resolver"
	"github.com/jmylchreest/moodify/internal/settings"
)

// DefaultInterval is the time between ticks.
const DefaultInterval = 15 * time.Minute

// Target re-applies settings to every open page.
type Target interface {
	Reapply(ctx context.Context, s settings.Settings, daytime bool)
}

// Scheduler owns at most one running periodic task.
type Scheduler struct {
	store    settings.Store
	target   Target
	interval time.Duration
	clock    func() time.Time
	logger   hclog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped scheduler. A non-positive interval uses DefaultInterval.
func New(store settings.Store, target Target, interval time.Duration, logger hclog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Scheduler{
		store:    store,
		target:   target,
		interval: interval,
		clock:    time.Now,
		logger:   logger,
	}
}

// SetClock replaces the time source used for day/night decisions.
func (s *Scheduler) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

// Interval returns the tick interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start cancels any running task, then ticks immediately and every interval until stopped
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	clock := s.clock

	go func() {
		defer close(done)
		s.tick(ctx, clock)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx, clock)
			}
		}
	}()
	s.logger.Debug("scheduler started", "interval", s.interval)
}

// Stop cancels the running task and waits for it to exit. No tick runs after Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopLocked() {
		s.logger.Debug("scheduler stopped")
	}
}

func (s *Scheduler) stopLocked() bool {
	if s.cancel == nil {
		return false
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	return true
}

// Running reports whether a task is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) tick(ctx context.Context, clock func() time.Time) {
	if ctx.Err() != nil {
		return
	}
	current, err := settings.LoadOrDefaults(ctx, s.store)
	if err != nil {
		s.logger.Debug("tick using defaults", "error", err)
	}
	if ctx.Err() != nil {
		return
	}
	daytime := resolver.IsDaytime(clock())
	s.logger.Trace("tick", "daytime", daytime)
	s.target.Reapply(ctx, current, daytime)
}
