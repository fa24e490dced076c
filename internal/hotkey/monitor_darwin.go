//go:build darwin

package hotkey

/*
#cgo LDFLAGS: -framework ApplicationServices -framework CoreFoundation
#include <ApplicationServices/ApplicationServices.h>
#include <CoreFoundation/CoreFoundation.h>

extern void goKeyDownCallback(unsigned short keycode, unsigned int flags);

static CFRunLoopRef monitorRunLoop = NULL;

static CGEventRef tapCallback(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *refcon) {
    if (type == kCGEventKeyDown) {
        int64_t keycode = CGEventGetIntegerValueField(event, kCGKeyboardEventKeycode);
        CGEventFlags flags = CGEventGetFlags(event);
        goKeyDownCallback((unsigned short)keycode, (unsigned int)flags);
    }
    return event;
}

// runMonitor installs a listen-only key-down tap and blocks in the run loop
// until stopMonitor posts a stop.
static int runMonitor() {
    CFMachPortRef tap = CGEventTapCreate(kCGSessionEventTap, kCGHeadInsertEventTap,
        kCGEventTapOptionListenOnly, CGEventMaskBit(kCGEventKeyDown), tapCallback, NULL);
    if (tap == NULL) {
        return 0;
    }

    CFRunLoopSourceRef source = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, tap, 0);
    monitorRunLoop = CFRunLoopGetCurrent();
    CFRunLoopAddSource(monitorRunLoop, source, kCFRunLoopCommonModes);
    CGEventTapEnable(tap, true);

    CFRunLoopRun();

    CFRunLoopRemoveSource(monitorRunLoop, source, kCFRunLoopCommonModes);
    CFRelease(source);
    CFRelease(tap);
    monitorRunLoop = NULL;
    return 1;
}

static void stopMonitor() {
    if (monitorRunLoop != NULL) {
        CFRunLoopStop(monitorRunLoop);
    }
}
*/
import "C"

import (
	"fmt"
	"sync"
)

const modifierMask = ModCommand | ModShift | ModOption | ModControl

type darwinMonitor struct {
	mu     sync.Mutex
	events chan<- KeyEvent
}

// Only one tap can be installed per process.
var activeMonitor *darwinMonitor

// NewMonitor creates the macOS global key-down monitor. Requires the
// accessibility permission to receive events from other applications.
func NewMonitor() (Monitor, error) {
	return &darwinMonitor{}, nil
}

//export goKeyDownCallback
func goKeyDownCallback(keycode C.ushort, flags C.uint) {
	m := activeMonitor
	if m == nil {
		return
	}

	m.mu.Lock()
	events := m.events
	m.mu.Unlock()
	if events == nil {
		return
	}

	ev := KeyEvent{KeyCode: uint16(keycode), Modifiers: uint32(flags) & modifierMask}
	select {
	case events <- ev:
	default:
		// Never block the event tap thread.
	}
}

func (m *darwinMonitor) Run(events chan<- KeyEvent) error {
	m.mu.Lock()
	m.events = events
	m.mu.Unlock()
	activeMonitor = m

	defer func() {
		activeMonitor = nil
		m.mu.Lock()
		m.events = nil
		m.mu.Unlock()
	}()

	if C.runMonitor() == 0 {
		return fmt.Errorf("failed to create key-down event tap (accessibility permission missing?)")
	}
	return nil
}

func (m *darwinMonitor) Wake() error {
	C.stopMonitor()
	return nil
}
