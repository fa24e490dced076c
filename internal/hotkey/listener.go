package hotkey

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// KeyEvent is a global key-down event delivered by a Monitor. KeyCode is in
// macOS virtual key code space; Modifiers uses the NSEvent flag bits.
type KeyEvent struct {
	KeyCode   uint16
	Modifiers uint32
}

// Monitor delivers global key-down events. Run blocks until Wake is called;
// implementations are platform specific.
type Monitor interface {
	Run(events chan<- KeyEvent) error
	Wake() error
}

const (
	// dispatchQueueSize bounds how many pending hotkey actions can queue up
	// before further presses are dropped.
	dispatchQueueSize = 8

	// stopTimeout bounds how long Stop waits for the monitor to unblock.
	stopTimeout = time.Second
)

type binding struct {
	spec   Spec
	action func()
}

// Listener maps hotkey specs to actions and runs the global monitoring loop.
// Matched actions are dispatched in FIFO order on a single worker goroutine,
// so two rapid presses of the same hotkey never run their actions
// concurrently.
type Listener struct {
	monitor Monitor
	log     zerolog.Logger

	mu       sync.Mutex
	bindings map[string]binding
	running  bool

	events      chan KeyEvent
	queue       chan func()
	monitorDone chan struct{}
	workerDone  chan struct{}
}

func NewListener(monitor Monitor, log zerolog.Logger) *Listener {
	return &Listener{
		monitor:  monitor,
		log:      log,
		bindings: make(map[string]binding),
	}
}

// Register binds a hotkey spec to an action. Registering an already-bound
// spec replaces its action.
func (l *Listener) Register(raw string, action func()) error {
	spec, err := ParseSpec(raw)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.bindings[raw] = binding{spec: spec, action: action}
	return nil
}

// Unregister removes a binding. Returns false if the spec was not registered.
func (l *Listener) Unregister(raw string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.bindings[raw]; !ok {
		return false
	}
	delete(l.bindings, raw)
	return true
}

// Start launches the monitor and dispatch goroutines. Calling Start on a
// running listener is a no-op.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return nil
	}
	l.running = true

	l.events = make(chan KeyEvent, 16)
	l.queue = make(chan func(), dispatchQueueSize)
	l.monitorDone = make(chan struct{})
	l.workerDone = make(chan struct{})

	go func() {
		defer close(l.monitorDone)
		defer close(l.events)
		if err := l.monitor.Run(l.events); err != nil {
			l.log.Error().Err(err).Msg("Hotkey monitor exited with error")
		}
	}()

	go l.matchLoop(l.events, l.queue)
	go l.worker(l.queue, l.workerDone)

	return nil
}

// Stop wakes the monitor and waits, with a bounded timeout, for it to exit.
// A monitor that fails to unblock is logged as a leak but not treated as
// fatal.
func (l *Listener) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = false
	monitorDone := l.monitorDone
	workerDone := l.workerDone
	l.mu.Unlock()

	if err := l.monitor.Wake(); err != nil {
		l.log.Warn().Err(err).Msg("Failed to wake hotkey monitor")
	}

	select {
	case <-monitorDone:
	case <-time.After(stopTimeout):
		l.log.Warn().Msg("Hotkey monitor did not stop in time; leaking monitor goroutine")
		return nil
	}

	<-workerDone
	return nil
}

func (l *Listener) matchLoop(events <-chan KeyEvent, queue chan<- func()) {
	defer close(queue)

	for ev := range events {
		l.mu.Lock()
		var action func()
		for _, b := range l.bindings {
			if b.spec.KeyCode == ev.KeyCode && b.spec.Modifiers == ev.Modifiers {
				action = b.action
				break
			}
		}
		l.mu.Unlock()

		if action == nil {
			continue
		}

		select {
		case queue <- action:
		default:
			l.log.Warn().Uint16("keycode", ev.KeyCode).Msg("Hotkey dispatch queue full, dropping press")
		}
	}
}

func (l *Listener) worker(queue <-chan func(), done chan<- struct{}) {
	defer close(done)
	for action := range queue {
		action()
	}
}
