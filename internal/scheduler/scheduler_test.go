package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmylchreest/moodify/internal/mood"
	"github.com/jmylchreest/moodify/internal/settings"
)

type recordingTarget struct {
	mu      sync.Mutex
	calls   int
	last    settings.Settings
	daytime []bool
	notify  chan struct{}
	active  atomic.Int32
	overlap atomic.Bool
}

func newTarget() *recordingTarget {
	return &recordingTarget{notify: make(chan struct{}, 64)}
}

func (r *recordingTarget) Reapply(ctx context.Context, s settings.Settings, daytime bool) {
	if r.active.Add(1) > 1 {
		r.overlap.Store(true)
	}
	defer r.active.Add(-1)

	r.mu.Lock()
	r.calls++
	r.last = s
	r.daytime = append(r.daytime, daytime)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *recordingTarget) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func waitTicks(t *testing.T, r *recordingTarget, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.notify:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for tick %d", i+1)
		}
	}
}

func TestStartTicksImmediately(t *testing.T) {
	target := newTarget()
	s := New(settings.NewMemoryStore(), target, time.Hour, nil)
	s.SetClock(func() time.Time { return time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local) })

	s.Start(context.Background())
	defer s.Stop()

	waitTicks(t, target, 1)
	target.mu.Lock()
	defer target.mu.Unlock()
	if !target.daytime[0] {
		t.Error("09:00 should be daytime")
	}
	if target.last.Mood != mood.Calm {
		t.Errorf("missing settings should tick with defaults, got mood %s", target.last.Mood)
	}
}

func TestTicksReadFreshSettings(t *testing.T) {
	store := settings.NewMemoryStore()
	target := newTarget()
	s := New(store, target, 10*time.Millisecond, nil)

	s.Start(context.Background())
	defer s.Stop()
	waitTicks(t, target, 1)

	updated := settings.Defaults()
	updated.Mood = mood.Relaxed
	if err := store.Save(context.Background(), updated); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-target.notify:
			target.mu.Lock()
			got := target.last.Mood
			target.mu.Unlock()
			if got == mood.Relaxed {
				return
			}
		case <-deadline:
			t.Fatal("tick never observed the saved settings")
		}
	}
}

func TestRestartReplacesTask(t *testing.T) {
	target := newTarget()
	s := New(settings.NewMemoryStore(), target, 5*time.Millisecond, nil)

	for i := 0; i < 5; i++ {
		s.Start(context.Background())
	}
	waitTicks(t, target, 10)
	s.Stop()

	if target.overlap.Load() {
		t.Error("two tasks ticked concurrently")
	}
}

func TestNoTickAfterStop(t *testing.T) {
	target := newTarget()
	s := New(settings.NewMemoryStore(), target, time.Millisecond, nil)

	s.Start(context.Background())
	waitTicks(t, target, 2)
	s.Stop()

	if s.Running() {
		t.Error("Running() = true after Stop")
	}
	before := target.count()
	time.Sleep(20 * time.Millisecond)
	if after := target.count(); after != before {
		t.Errorf("%d ticks ran after Stop", after-before)
	}
}

func TestStopWhenIdle(t *testing.T) {
	s := New(settings.NewMemoryStore(), newTarget(), 0, nil)
	s.Stop()
	if s.Running() {
		t.Error("idle scheduler reports running")
	}
	if s.Interval() != DefaultInterval {
		t.Errorf("Interval() = %v, want %v", s.Interval(), DefaultInterval)
	}
}

func TestParentContextCancelStopsTicks(t *testing.T) {
	target := newTarget()
	s := New(settings.NewMemoryStore(), target, time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	waitTicks(t, target, 1)
	cancel()
	s.Stop()

	before := target.count()
	time.Sleep(10 * time.Millisecond)
	if target.count() != before {
		t.Error("ticks continued after context cancellation")
	}
}
