package app

// Events receives pipeline state transitions, typically to drive the tray
// icon. Callbacks run on pipeline goroutines and must return quickly.
type Events interface {
	RecordingStarted()
	RecordingStopped()
	TranscriptionStarted()
	TranscriptionComplete(text string)
	Error(err error)
}

// NopEvents discards all notifications.
type NopEvents struct{}

func (NopEvents) RecordingStarted()            {}
func (NopEvents) RecordingStopped()            {}
func (NopEvents) TranscriptionStarted()        {}
func (NopEvents) TranscriptionComplete(string) {}
func (NopEvents) Error(error)                  {}
