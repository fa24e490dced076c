//go:build !darwin

package permissions

// Non-macOS platforms gate these permissions at the display-server level,
// not per process.

func MicrophoneGranted() bool { return true }

func AccessibilityGranted() bool { return true }

func Ensure() error { return nil }
