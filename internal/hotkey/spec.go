package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSpec is returned when a hotkey string cannot be parsed.
var ErrInvalidSpec = errors.New("invalid hotkey spec")

// Modifier flags as used by NSEvent.
const (
	ModCommand uint32 = 1 << 20
	ModShift   uint32 = 1 << 17
	ModOption  uint32 = 1 << 19
	ModControl uint32 = 1 << 18
)

// keyCodes maps a key character to its macOS virtual key code.
var keyCodes = map[rune]uint16{
	'a': 0, 'b': 11, 'c': 8, 'd': 2, 'e': 14, 'f': 3, 'g': 5, 'h': 4, 'i': 34,
	'j': 38, 'k': 40, 'l': 37, 'm': 46, 'n': 45, 'o': 31, 'p': 35, 'q': 12,
	'r': 15, 's': 1, 't': 17, 'u': 32, 'v': 9, 'w': 13, 'x': 7, 'y': 16, 'z': 6,
	'0': 29, '1': 18, '2': 19, '3': 20, '4': 21, '5': 23, '6': 22, '7': 26,
	'8': 28, '9': 25, '-': 27, '=': 24, '[': 33, ']': 30, ';': 41, '\'': 39,
	',': 43, '.': 47, '/': 44, '\\': 42, '`': 50,
}

var modifierFlags = map[string]uint32{
	"Command": ModCommand,
	"Shift":   ModShift,
	"Option":  ModOption,
	"Control": ModControl,
}

// Spec is a parsed hotkey combination: one or more modifiers plus a single key,
// e.g. "Command-Shift-R" or "Control-.".
type Spec struct {
	Raw       string
	KeyCode   uint16
	Modifiers uint32
}

// ParseSpec parses a hotkey string of the form Modifier(-Modifier)*-Key.
// The key is case-insensitive and must be a single letter, digit or one of the
// punctuation characters in the key code table. A key of "-" itself is
// written with a doubled separator, e.g. "Control--".
func ParseSpec(raw string) (Spec, error) {
	var modPart, key string
	if strings.HasSuffix(raw, "--") {
		modPart = strings.TrimSuffix(raw, "--")
		key = "-"
	} else {
		i := strings.LastIndex(raw, "-")
		if i < 0 {
			return Spec{}, fmt.Errorf("%w: %q must have at least one modifier", ErrInvalidSpec, raw)
		}
		modPart = raw[:i]
		key = strings.ToLower(raw[i+1:])
	}
	if modPart == "" {
		return Spec{}, fmt.Errorf("%w: %q must have at least one modifier", ErrInvalidSpec, raw)
	}

	runes := []rune(key)
	if len(runes) != 1 {
		return Spec{}, fmt.Errorf("%w: %q key must be a single character", ErrInvalidSpec, raw)
	}

	code, ok := keyCodes[runes[0]]
	if !ok {
		return Spec{}, fmt.Errorf("%w: unsupported key %q", ErrInvalidSpec, key)
	}

	var mods uint32
	for _, name := range strings.Split(modPart, "-") {
		flag, ok := modifierFlags[name]
		if !ok {
			return Spec{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, name)
		}
		mods |= flag
	}

	return Spec{Raw: raw, KeyCode: code, Modifiers: mods}, nil
}

// keyCodeFor looks up the virtual key code for a character. Used by platform
// monitors that report keysyms rather than macOS key codes.
func keyCodeFor(r rune) (uint16, bool) {
	code, ok := keyCodes[r]
	return code, ok
}
