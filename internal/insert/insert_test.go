package insert

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakePlatform struct {
	mu  sync.Mutex
	ops []string

	available    bool
	accessible   bool
	clipboard    string
	readErr      error
	writeErr     error
	pasteErr     error
	pasteStarted chan struct{} // if set, closed when SendPaste begins
	pasteBlock   chan struct{} // if set, SendPaste blocks until closed
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{available: true, accessible: true, clipboard: "previous contents"}
}

func (p *fakePlatform) record(op string) {
	p.mu.Lock()
	p.ops = append(p.ops, op)
	p.mu.Unlock()
}

func (p *fakePlatform) operations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ops...)
}

func (p *fakePlatform) Available() bool            { return p.available }
func (p *fakePlatform) AccessibilityGranted() bool { return p.accessible }

func (p *fakePlatform) ReadClipboard() (string, error) {
	p.record("read")
	if p.readErr != nil {
		return "", p.readErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clipboard, nil
}

func (p *fakePlatform) WriteClipboard(text string) error {
	p.record("write:" + text)
	if p.writeErr != nil {
		return p.writeErr
	}
	p.mu.Lock()
	p.clipboard = text
	p.mu.Unlock()
	return nil
}

func (p *fakePlatform) SendPaste() error {
	if p.pasteStarted != nil {
		close(p.pasteStarted)
		p.pasteStarted = nil
	}
	if p.pasteBlock != nil {
		<-p.pasteBlock
	}
	p.record("paste")
	return p.pasteErr
}

type finishedSignal struct {
	id  uint64
	err error
}

type fakeListener struct {
	mu        sync.Mutex
	completed []uint64
	finished  chan finishedSignal
}

func newFakeListener() *fakeListener {
	return &fakeListener{finished: make(chan finishedSignal, 4)}
}

func (l *fakeListener) InsertionCompleted(id uint64) {
	l.mu.Lock()
	l.completed = append(l.completed, id)
	l.mu.Unlock()
}

func (l *fakeListener) InsertionFinished(id uint64, err error) {
	l.finished <- finishedSignal{id: id, err: err}
}

func (l *fakeListener) completedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.completed)
}

func (l *fakeListener) waitFinished(t *testing.T) finishedSignal {
	t.Helper()
	select {
	case sig := <-l.finished:
		return sig
	case <-time.After(2 * time.Second):
		t.Fatal("InsertionFinished never fired")
		return finishedSignal{}
	}
}

func newTestWorker(p Platform) (*Worker, *fakeListener) {
	w := NewWorker(p, zerolog.Nop())
	w.writeSettle = 0
	w.pasteSettle = 0
	l := newFakeListener()
	w.SetListener(l)
	return w, l
}

func TestInsertRejectsEmptyText(t *testing.T) {
	p := newFakePlatform()
	w, l := newTestWorker(p)

	if _, ok := w.Insert(""); ok {
		t.Error("empty text should be rejected")
	}
	if len(p.operations()) != 0 {
		t.Errorf("no platform calls expected, got %v", p.operations())
	}
	select {
	case <-l.finished:
		t.Error("rejected insert must not fire InsertionFinished")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInsertRejectsWhileInFlight(t *testing.T) {
	p := newFakePlatform()
	started := make(chan struct{})
	block := make(chan struct{})
	p.pasteStarted = started
	p.pasteBlock = block
	w, l := newTestWorker(p)

	firstID, ok := w.Insert("first")
	if !ok {
		t.Fatal("first insert should start")
	}
	<-started
	if id, ok := w.Insert("second"); ok || id != 0 {
		t.Error("second insert while one is in flight should be rejected")
	}
	close(block)

	if sig := l.waitFinished(t); sig.err != nil || sig.id != firstID {
		t.Errorf("finished = %+v, want id %d and no error", sig, firstID)
	}
	if l.completedCount() != 1 {
		t.Errorf("completed = %d, want 1", l.completedCount())
	}
}

func TestInsertSkipsWithoutAccessibility(t *testing.T) {
	p := newFakePlatform()
	p.accessible = false
	w, l := newTestWorker(p)

	if _, ok := w.Insert("hello"); !ok {
		t.Fatal("insert should be accepted before the permission check")
	}
	if sig := l.waitFinished(t); sig.err != nil {
		t.Errorf("permission skip should finish without error, got %v", sig.err)
	}
	if len(p.operations()) != 0 {
		t.Errorf("clipboard must not be touched, got %v", p.operations())
	}
	if l.completedCount() != 0 {
		t.Error("skipped insertion must not report completion")
	}
}

func TestInsertSkipsWhenUnavailable(t *testing.T) {
	p := newFakePlatform()
	p.available = false
	w, l := newTestWorker(p)

	w.Insert("hello")
	if sig := l.waitFinished(t); sig.err != nil {
		t.Errorf("unavailable platform should finish without error, got %v", sig.err)
	}
	if len(p.operations()) != 0 {
		t.Errorf("no platform calls expected, got %v", p.operations())
	}
}

func TestInsertSuccessOrderAndRestore(t *testing.T) {
	p := newFakePlatform()
	w, l := newTestWorker(p)

	w.Insert("transcribed text")
	if sig := l.waitFinished(t); sig.err != nil {
		t.Fatalf("finished err = %v", sig.err)
	}

	want := []string{"read", "write:transcribed text", "paste", "write:previous contents"}
	got := p.operations()
	if len(got) != len(want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ops = %v, want %v", got, want)
		}
	}
	if l.completedCount() != 1 {
		t.Errorf("completed = %d, want 1", l.completedCount())
	}
}

func TestInsertPasteFailureStillRestores(t *testing.T) {
	p := newFakePlatform()
	p.pasteErr = errors.New("no event tap")
	w, l := newTestWorker(p)

	w.Insert("hello")
	sig := l.waitFinished(t)
	if !errors.Is(sig.err, ErrInsertionFailure) {
		t.Errorf("err = %v, want ErrInsertionFailure", sig.err)
	}

	ops := p.operations()
	if len(ops) == 0 || ops[len(ops)-1] != "write:previous contents" {
		t.Errorf("clipboard should be restored after a failed paste, ops = %v", ops)
	}
	if l.completedCount() != 0 {
		t.Error("failed insertion must not report completion")
	}
}

func TestInsertWriteFailure(t *testing.T) {
	p := newFakePlatform()
	p.writeErr = errors.New("clipboard busy")
	w, l := newTestWorker(p)

	w.Insert("hello")
	if sig := l.waitFinished(t); !errors.Is(sig.err, ErrInsertionFailure) {
		t.Errorf("err = %v, want ErrInsertionFailure", sig.err)
	}
	for _, op := range p.operations() {
		if op == "paste" {
			t.Error("paste must not run after a clipboard write failure")
		}
	}
}

func TestInsertUnreadableClipboardRestoresEmpty(t *testing.T) {
	p := newFakePlatform()
	p.readErr = errors.New("unreadable")
	w, l := newTestWorker(p)

	w.Insert("hello")
	if sig := l.waitFinished(t); sig.err != nil {
		t.Fatalf("finished err = %v", sig.err)
	}
	ops := p.operations()
	if len(ops) == 0 || ops[len(ops)-1] != "write:" {
		t.Errorf("clipboard should be restored to empty, ops = %v", ops)
	}
}

func TestInsertCanRunAgainAfterFinish(t *testing.T) {
	p := newFakePlatform()
	w, l := newTestWorker(p)

	id1, _ := w.Insert("one")
	first := l.waitFinished(t)
	id2, ok := w.Insert("two")
	if !ok {
		t.Error("worker should accept a new insertion after the previous finished")
	}
	second := l.waitFinished(t)
	if first.id != id1 || second.id != id2 {
		t.Errorf("finished ids = %d, %d, want %d, %d", first.id, second.id, id1, id2)
	}
	if id2 == id1 {
		t.Error("tickets must be distinct across insertions")
	}
	if l.completedCount() != 2 {
		t.Errorf("completed = %d, want 2", l.completedCount())
	}
}
