//go:build linux

package insert

import (
	"fmt"
	"os/exec"

	"github.com/atotto/clipboard"
)

type linuxPlatform struct{}

// NewPlatform returns the X11 insertion backend. Pasting is dispatched
// through xdotool; clipboard access goes through xclip or xsel.
func NewPlatform() Platform {
	return linuxPlatform{}
}

func (linuxPlatform) Available() bool {
	if clipboard.Unsupported {
		return false
	}
	_, err := exec.LookPath("xdotool")
	return err == nil
}

// AccessibilityGranted is always true on X11; there is no per-process
// synthetic-input permission.
func (linuxPlatform) AccessibilityGranted() bool { return true }

func (linuxPlatform) ReadClipboard() (string, error) {
	return clipboard.ReadAll()
}

func (linuxPlatform) WriteClipboard(text string) error {
	return clipboard.WriteAll(text)
}

func (linuxPlatform) SendPaste() error {
	out, err := exec.Command("xdotool", "key", "--clearmodifiers", "ctrl+v").CombinedOutput()
	if err != nil {
		return fmt.Errorf("xdotool: %v: %s", err, out)
	}
	return nil
}
