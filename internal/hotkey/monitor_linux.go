//go:build linux

package hotkey

/*
#cgo pkg-config: x11
#include <X11/Xlib.h>
#include <X11/XKBlib.h>
#include <stdlib.h>

static Display* displayPtr = NULL;

static int openMonitor() {
    displayPtr = XOpenDisplay(NULL);
    if (displayPtr == NULL) return 0;

    Window root = DefaultRootWindow(displayPtr);
    XSelectInput(displayPtr, root, KeyPressMask);
    XSync(displayPtr, False);
    return 1;
}

static int checkEvent(unsigned long* keysym, unsigned int* state) {
    if (displayPtr == NULL) return 0;

    XEvent event;
    if (XPending(displayPtr) > 0) {
        XNextEvent(displayPtr, &event);
        if (event.type == KeyPress) {
            *keysym = XkbKeycodeToKeysym(displayPtr, event.xkey.keycode, 0, 0);
            *state = event.xkey.state;
            return 1;
        }
    }
    return 0;
}

static void closeMonitor() {
    if (displayPtr != NULL) {
        XCloseDisplay(displayPtr);
        displayPtr = NULL;
    }
}
*/
import "C"

import (
	"fmt"
	"time"
)

type linuxMonitor struct {
	stop chan struct{}
}

// NewMonitor creates an X11-backed key-down monitor. The event loop polls
// XPending on a short tick, so Wake only has to close the stop channel.
func NewMonitor() (Monitor, error) {
	return &linuxMonitor{stop: make(chan struct{})}, nil
}

func (m *linuxMonitor) Run(events chan<- KeyEvent) error {
	if C.openMonitor() == 0 {
		return fmt.Errorf("failed to open X display")
	}
	defer C.closeMonitor()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return nil
		case <-ticker.C:
			var keysym C.ulong
			var state C.uint
			for C.checkEvent(&keysym, &state) != 0 {
				ev, ok := translate(uint64(keysym), uint32(state))
				if !ok {
					continue
				}
				select {
				case events <- ev:
				default:
				}
			}
		}
	}
}

func (m *linuxMonitor) Wake() error {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
	return nil
}

// translate maps an X keysym/state pair into the listener's key code space.
// Latin-1 keysyms coincide with their character values.
func translate(keysym uint64, state uint32) (KeyEvent, bool) {
	if keysym > 0x7F {
		return KeyEvent{}, false
	}
	code, ok := keyCodeFor(rune(keysym))
	if !ok {
		return KeyEvent{}, false
	}

	const (
		shiftMask   = 1 << 0 // ShiftMask
		controlMask = 1 << 2 // ControlMask
		mod1Mask    = 1 << 3 // Alt
		mod4Mask    = 1 << 6 // Super
	)

	var mods uint32
	if state&shiftMask != 0 {
		mods |= ModShift
	}
	if state&controlMask != 0 {
		mods |= ModControl
	}
	if state&mod1Mask != 0 {
		mods |= ModOption
	}
	if state&mod4Mask != 0 {
		mods |= ModCommand
	}

	return KeyEvent{KeyCode: code, Modifiers: mods}, true
}
