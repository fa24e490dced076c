//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework AVFoundation -framework Cocoa
#import <AVFoundation/AVFoundation.h>
#import <Cocoa/Cocoa.h>

int whisperkeyMicStatus() {
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
    return (int)status;
}

void whisperkeyRequestMic() {
    [AVCaptureDevice requestAccessForMediaType:AVMediaTypeAudio completionHandler:^(BOOL granted) {}];
}

int whisperkeyAccessibilityTrusted(int prompt) {
    NSDictionary *options = @{(__bridge id)kAXTrustedCheckOptionPrompt: prompt ? @YES : @NO};
    return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
}
*/
import "C"

import "fmt"

// AVAuthorizationStatus values.
const (
	micNotDetermined = 0
	micRestricted    = 1
	micDenied        = 2
	micAuthorized    = 3
)

// MicrophoneGranted reports whether capture is authorized, triggering the
// system dialog on first ask.
func MicrophoneGranted() bool {
	switch int(C.whisperkeyMicStatus()) {
	case micAuthorized:
		return true
	case micNotDetermined:
		C.whisperkeyRequestMic()
		return int(C.whisperkeyMicStatus()) == micAuthorized
	default:
		return false
	}
}

// AccessibilityGranted reports whether synthetic keystrokes are allowed.
// The check never prompts; insertion is silently skipped without the grant.
func AccessibilityGranted() bool {
	return int(C.whisperkeyAccessibilityTrusted(0)) == 1
}

// Ensure checks every permission the pipeline needs, prompting once for
// each that is missing. The returned error wraps ErrPermissionDenied.
func Ensure() error {
	if !MicrophoneGranted() {
		return fmt.Errorf("%w: microphone access not authorized", ErrPermissionDenied)
	}
	if int(C.whisperkeyAccessibilityTrusted(1)) != 1 {
		return fmt.Errorf("%w: accessibility access not granted (System Settings > Privacy & Security > Accessibility)", ErrPermissionDenied)
	}
	return nil
}
