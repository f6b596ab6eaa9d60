package history_test

import (
	"sync"
	"testing"
	"time"

	"whiteboard/internal/history"
)

// manualTimers records scheduled callbacks so tests decide when they fire.
type manualTimers struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (m *manualTimers) After(d time.Duration, f func()) history.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{delay: d, f: f}
	m.timers = append(m.timers, t)
	return t
}

// fireAll runs every scheduled callback, stopped or not, as a late
// runtime timer might.
func (m *manualTimers) fireAll() {
	m.mu.Lock()
	ts := append([]*manualTimer(nil), m.timers...)
	m.timers = nil
	m.mu.Unlock()
	for _, t := range ts {
		t.f()
	}
}

func TestCoalescer_CollapsesBurst(t *testing.T) {
	timers := &manualTimers{}
	calls := 0
	c := history.NewCoalescer(100*time.Millisecond, func() { calls++ }, timers.After)

	c.Signal()
	c.Signal()
	c.Signal()
	if !c.Pending() {
		t.Fatal("expected pending signal")
	}

	timers.fireAll()
	if calls != 1 {
		t.Fatalf("expected exactly 1 call, got %d", calls)
	}
	if c.Pending() {
		t.Error("expected queue drained")
	}
}

func TestCoalescer_UsesConfiguredDelay(t *testing.T) {
	timers := &manualTimers{}
	c := history.NewCoalescer(250*time.Millisecond, func() {}, timers.After)
	c.Signal()
	if len(timers.timers) != 1 || timers.timers[0].delay != 250*time.Millisecond {
		t.Fatalf("expected one timer at 250ms, got %+v", timers.timers)
	}
}

func TestCoalescer_FlushAndCancel(t *testing.T) {
	timers := &manualTimers{}
	calls := 0
	c := history.NewCoalescer(time.Second, func() { calls++ }, timers.After)

	c.Flush()
	if calls != 0 {
		t.Fatal("expected Flush without signal to do nothing")
	}

	c.Signal()
	c.Flush()
	if calls != 1 {
		t.Fatalf("expected Flush to run the task, got %d calls", calls)
	}
	timers.fireAll()
	if calls != 1 {
		t.Errorf("expected superseded timer to be ignored, got %d calls", calls)
	}

	c.Signal()
	c.Cancel()
	timers.fireAll()
	if calls != 1 {
		t.Errorf("expected cancelled signal not to run, got %d calls", calls)
	}
}

func TestCoalescer_TakeConsumesWithoutRunning(t *testing.T) {
	timers := &manualTimers{}
	calls := 0
	c := history.NewCoalescer(time.Second, func() { calls++ }, timers.After)

	if c.Take() {
		t.Fatal("expected Take without signal to report nothing pending")
	}
	c.Signal()
	if !c.Take() {
		t.Fatal("expected Take to report the pending signal")
	}
	if c.Pending() || c.Take() {
		t.Error("expected the signal consumed")
	}
	timers.fireAll()
	if calls != 0 {
		t.Errorf("expected the task never to run, got %d calls", calls)
	}

	c.Signal()
	c.Close()
	if c.Take() {
		t.Error("expected Take after Close to report nothing")
	}
}

func TestCoalescer_CloseIgnoresSignals(t *testing.T) {
	timers := &manualTimers{}
	calls := 0
	c := history.NewCoalescer(time.Millisecond, func() { calls++ }, timers.After)

	c.Signal()
	c.Close()
	c.Signal()
	timers.fireAll()
	if calls != 0 {
		t.Errorf("expected no calls after Close, got %d", calls)
	}
}

func TestCoalescer_RealTimer(t *testing.T) {
	done := make(chan struct{}, 1)
	c := history.NewCoalescer(10*time.Millisecond, func() { done <- struct{}{} }, nil)
	defer c.Close()

	c.Signal()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected debounced task to run")
	}
}
