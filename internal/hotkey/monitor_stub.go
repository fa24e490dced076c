//go:build !darwin && !linux

package hotkey

// stubMonitor blocks until woken and never delivers events. Global hotkeys
// are not implemented on this platform.
type stubMonitor struct {
	stop chan struct{}
}

func NewMonitor() (Monitor, error) {
	return &stubMonitor{stop: make(chan struct{})}, nil
}

func (m *stubMonitor) Run(events chan<- KeyEvent) error {
	<-m.stop
	return nil
}

func (m *stubMonitor) Wake() error {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
	return nil
}
