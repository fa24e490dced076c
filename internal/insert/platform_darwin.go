//go:build darwin

package insert

/*
#cgo LDFLAGS: -framework ApplicationServices -framework Carbon
#include <ApplicationServices/ApplicationServices.h>
#include <Carbon/Carbon.h>

// Posts Cmd+V to the HID event tap. Key codes 55 (Command) and 9 (V).
void whisperkeySendPaste() {
    CGEventSourceRef source = CGEventSourceCreate(kCGEventSourceStateHIDSystemState);

    CGEventRef cmdDown = CGEventCreateKeyboardEvent(source, (CGKeyCode)55, true);
    CGEventSetFlags(cmdDown, kCGEventFlagMaskCommand);
    CGEventRef vDown = CGEventCreateKeyboardEvent(source, (CGKeyCode)9, true);
    CGEventSetFlags(vDown, kCGEventFlagMaskCommand);
    CGEventRef vUp = CGEventCreateKeyboardEvent(source, (CGKeyCode)9, false);
    CGEventRef cmdUp = CGEventCreateKeyboardEvent(source, (CGKeyCode)55, false);

    CGEventPost(kCGHIDEventTap, cmdDown);
    CGEventPost(kCGHIDEventTap, vDown);
    CGEventPost(kCGHIDEventTap, vUp);
    CGEventPost(kCGHIDEventTap, cmdUp);

    CFRelease(cmdDown);
    CFRelease(vDown);
    CFRelease(vUp);
    CFRelease(cmdUp);
    CFRelease(source);
}
*/
import "C"

import (
	"github.com/atotto/clipboard"

	"whisperkey/internal/permissions"
)

type darwinPlatform struct{}

// NewPlatform returns the macOS insertion backend.
func NewPlatform() Platform {
	return darwinPlatform{}
}

func (darwinPlatform) Available() bool { return true }

func (darwinPlatform) AccessibilityGranted() bool {
	return permissions.AccessibilityGranted()
}

func (darwinPlatform) ReadClipboard() (string, error) {
	return clipboard.ReadAll()
}

func (darwinPlatform) WriteClipboard(text string) error {
	return clipboard.WriteAll(text)
}

func (darwinPlatform) SendPaste() error {
	C.whisperkeySendPaste()
	return nil
}
