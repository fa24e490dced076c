package insert

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ErrInsertionFailure reports a clipboard or paste-dispatch failure.
var ErrInsertionFailure = errors.New("insertion failure")

// Platform abstracts the OS facilities insertion needs. Implementations
// live in the platform_*.go files.
type Platform interface {
	// Available reports whether this platform can insert text at all.
	Available() bool
	// AccessibilityGranted reports whether synthetic keystrokes are allowed.
	AccessibilityGranted() bool
	ReadClipboard() (string, error)
	WriteClipboard(text string) error
	// SendPaste dispatches the platform paste shortcut to the focused app.
	SendPaste() error
}

// Listener receives insertion lifecycle notifications. The id echoes the
// ticket returned by Insert, so a listener shared between independent
// callers can tell whose insertion settled. InsertionFinished fires on
// every attempt, including silent permission skips; it is the signal to
// release the audio artifact. InsertionCompleted fires only when text
// actually reached the foreground app.
type Listener interface {
	InsertionCompleted(id uint64)
	InsertionFinished(id uint64, err error)
}

// Default settle delays between clipboard write, paste dispatch, and
// clipboard restore. The clipboard is asynchronous on every platform.
const (
	defaultWriteSettle = 100 * time.Millisecond
	defaultPasteSettle = 200 * time.Millisecond
)

// Worker inserts transcribed text into the foreground application by
// swapping it through the clipboard. At most one insertion runs at a time.
type Worker struct {
	platform Platform
	log      zerolog.Logger

	writeSettle time.Duration
	pasteSettle time.Duration

	busy   atomic.Bool
	lastID atomic.Uint64

	mu       sync.Mutex
	listener Listener
}

func NewWorker(platform Platform, log zerolog.Logger) *Worker {
	return &Worker{
		platform:    platform,
		log:         log,
		writeSettle: defaultWriteSettle,
		pasteSettle: defaultPasteSettle,
	}
}

// SetListener installs the lifecycle listener. Set before the first Insert.
func (w *Worker) SetListener(l Listener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listener = l
}

func (w *Worker) currentListener() Listener {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.listener
}

// Insert starts an asynchronous insertion of text and returns its ticket.
// Returns (0, false) without side effects when text is empty or an
// insertion is already in flight. Tickets are never zero.
func (w *Worker) Insert(text string) (uint64, bool) {
	if text == "" {
		return 0, false
	}
	if !w.busy.CompareAndSwap(false, true) {
		w.log.Warn().Msg("Insertion already in flight, dropping text")
		return 0, false
	}
	id := w.lastID.Add(1)
	go w.run(id, text)
	return id, true
}

func (w *Worker) run(id uint64, text string) {
	var insertErr error
	defer func() {
		w.busy.Store(false)
		if l := w.currentListener(); l != nil {
			l.InsertionFinished(id, insertErr)
		}
	}()

	if !w.platform.Available() {
		w.log.Debug().Msg("Insertion unavailable on this platform, skipping")
		return
	}
	if !w.platform.AccessibilityGranted() {
		// Skipped silently. The transcription was already delivered
		// through the completion event; only the paste is lost.
		w.log.Warn().Msg("Accessibility not granted, skipping insertion")
		return
	}

	previous, err := w.platform.ReadClipboard()
	if err != nil {
		// An unreadable clipboard still gets restored, to empty.
		previous = ""
	}

	restored := false
	restore := func() {
		if restored {
			return
		}
		restored = true
		if err := w.platform.WriteClipboard(previous); err != nil {
			w.log.Warn().Err(err).Msg("Failed to restore clipboard")
		}
	}
	defer restore()

	if err := w.platform.WriteClipboard(text); err != nil {
		insertErr = fmt.Errorf("%w: write clipboard: %v", ErrInsertionFailure, err)
		return
	}
	time.Sleep(w.writeSettle)

	if err := w.platform.SendPaste(); err != nil {
		insertErr = fmt.Errorf("%w: send paste: %v", ErrInsertionFailure, err)
		return
	}
	time.Sleep(w.pasteSettle)

	restore()

	w.log.Info().Int("chars", len(text)).Msg("Text inserted")
	if l := w.currentListener(); l != nil {
		l.InsertionCompleted(id)
	}
}
