package wavio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// sine generates n samples of a quiet 440 Hz tone.
func sine(n int) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(SampleRate)))
	}
	return samples
}

func TestWriteAndDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")

	// 2 seconds at 16 kHz.
	if err := WriteMono16(path, sine(2*SampleRate), SampleRate); err != nil {
		t.Fatalf("WriteMono16: %v", err)
	}

	dur, err := Duration(path)
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}

	if diff := (dur - 2*time.Second).Abs(); diff > 10*time.Millisecond {
		t.Errorf("duration = %v, want ~2s", dur)
	}
}

func TestWriteEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")

	if err := WriteMono16(path, nil, SampleRate); err != nil {
		t.Fatalf("WriteMono16: %v", err)
	}

	dur, err := Duration(path)
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if dur != 0 {
		t.Errorf("duration = %v, want 0", dur)
	}
}

func TestRetimeHalvesDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ten.wav")

	// A 10-second artifact retimed by 2.0 should report ~5 seconds.
	if err := WriteMono16(path, sine(10*SampleRate), SampleRate); err != nil {
		t.Fatalf("WriteMono16: %v", err)
	}

	retimed, err := Retime(path, 2.0)
	if err != nil {
		t.Fatalf("Retime: %v", err)
	}
	defer os.Remove(retimed)

	if retimed == path {
		t.Fatal("Retime must write a new artifact, not modify the source")
	}

	dur, err := Duration(retimed)
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if diff := (dur - 5*time.Second).Abs(); diff > 50*time.Millisecond {
		t.Errorf("retimed duration = %v, want ~5s", dur)
	}

	// Source untouched.
	orig, err := Duration(path)
	if err != nil {
		t.Fatalf("Duration(source): %v", err)
	}
	if diff := (orig - 10*time.Second).Abs(); diff > 50*time.Millisecond {
		t.Errorf("source duration changed: %v", orig)
	}
}

func TestRetimeInvalidFactor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := WriteMono16(path, sine(SampleRate), SampleRate); err != nil {
		t.Fatalf("WriteMono16: %v", err)
	}

	for _, factor := range []float64{0, -1.5} {
		if _, err := Retime(path, factor); err == nil {
			t.Errorf("Retime(%f) should fail", factor)
		}
	}
}

func TestRetimeMissingSource(t *testing.T) {
	if _, err := Retime(filepath.Join(t.TempDir(), "missing.wav"), 2.0); err == nil {
		t.Error("Retime on missing file should fail")
	}
}
