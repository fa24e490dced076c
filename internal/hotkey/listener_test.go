package hotkey

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeMonitor delivers injected events and blocks until woken, like a real
// OS-level monitor.
type fakeMonitor struct {
	in   chan KeyEvent
	stop chan struct{}
}

func newFakeMonitor() *fakeMonitor {
	return &fakeMonitor{
		in:   make(chan KeyEvent),
		stop: make(chan struct{}),
	}
}

func (m *fakeMonitor) Run(events chan<- KeyEvent) error {
	for {
		select {
		case <-m.stop:
			return nil
		case ev := <-m.in:
			events <- ev
		}
	}
}

func (m *fakeMonitor) Wake() error {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
	return nil
}

func (m *fakeMonitor) press(t *testing.T, spec string) {
	t.Helper()
	s, err := ParseSpec(spec)
	if err != nil {
		t.Fatalf("press %q: %v", spec, err)
	}
	m.in <- KeyEvent{KeyCode: s.KeyCode, Modifiers: s.Modifiers}
}

func TestListenerDispatchesRegisteredAction(t *testing.T) {
	mon := newFakeMonitor()
	l := NewListener(mon, zerolog.Nop())

	fired := make(chan struct{}, 1)
	if err := l.Register("Control-R", func() { fired <- struct{}{} }); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := l.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer l.Stop()

	mon.press(t, "Control-R")

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("action did not fire")
	}
}

func TestListenerIgnoresUnboundAndModifierMismatch(t *testing.T) {
	mon := newFakeMonitor()
	l := NewListener(mon, zerolog.Nop())

	fired := make(chan struct{}, 4)
	l.Register("Control-R", func() { fired <- struct{}{} })

	l.Start()
	defer l.Stop()

	// Same key, wrong modifiers; then a completely unbound key.
	mon.press(t, "Command-R")
	mon.press(t, "Control-S")
	// Finally a matching press so we know the earlier ones were processed.
	mon.press(t, "Control-R")

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("matching press did not fire")
	}

	select {
	case <-fired:
		t.Fatal("non-matching press fired an action")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestListenerUnregister(t *testing.T) {
	mon := newFakeMonitor()
	l := NewListener(mon, zerolog.Nop())

	l.Register("Control-R", func() {})

	if !l.Unregister("Control-R") {
		t.Error("Unregister should return true for a bound spec")
	}
	if l.Unregister("Control-R") {
		t.Error("Unregister should return false for an unbound spec")
	}
}

func TestListenerRegisterInvalidSpec(t *testing.T) {
	l := NewListener(newFakeMonitor(), zerolog.Nop())
	if err := l.Register("R", func() {}); err == nil {
		t.Error("expected error registering spec without modifiers")
	}
}

func TestListenerSerializesRapidPresses(t *testing.T) {
	mon := newFakeMonitor()
	l := NewListener(mon, zerolog.Nop())

	var mu sync.Mutex
	var order []int
	var inFlight, overlapped bool
	done := make(chan struct{}, 3)

	l.Register("Control-R", func() {
		mu.Lock()
		if inFlight {
			overlapped = true
		}
		inFlight = true
		order = append(order, len(order))
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		inFlight = false
		mu.Unlock()
		done <- struct{}{}
	})

	l.Start()
	defer l.Stop()

	for i := 0; i < 3; i++ {
		mon.press(t, "Control-R")
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("queued action did not run")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if overlapped {
		t.Error("actions from rapid presses ran concurrently")
	}
	if len(order) != 3 {
		t.Errorf("expected 3 actions, got %d", len(order))
	}
}

func TestListenerStopUnblocksMonitor(t *testing.T) {
	mon := newFakeMonitor()
	l := NewListener(mon, zerolog.Nop())

	l.Start()

	stopped := make(chan error, 1)
	go func() { stopped <- l.Stop() }()

	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("Stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	// Stopping again is a no-op.
	if err := l.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
