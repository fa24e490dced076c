//go:build !darwin && !linux

package insert

import "errors"

type stubPlatform struct{}

// NewPlatform returns a backend that declines every insertion.
func NewPlatform() Platform {
	return stubPlatform{}
}

func (stubPlatform) Available() bool            { return false }
func (stubPlatform) AccessibilityGranted() bool { return false }

func (stubPlatform) ReadClipboard() (string, error) {
	return "", errors.New("clipboard not supported on this platform")
}

func (stubPlatform) WriteClipboard(string) error {
	return errors.New("clipboard not supported on this platform")
}

func (stubPlatform) SendPaste() error {
	return errors.New("paste not supported on this platform")
}
