// Package wavio reads and writes the mono 16 kHz PCM16 WAV artifacts the
// pipeline passes between stages.
package wavio

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	// SampleRate is the fixed capture rate required by the inference engine.
	SampleRate = 16000
	// Channels is fixed to mono.
	Channels = 1

	bitDepth = 16
)

// WriteMono16 writes int16 samples as a PCM16 WAV file at the given rate.
func WriteMono16(path string, samples []int16, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}

	enc := wav.NewEncoder(f, sampleRate, bitDepth, Channels, 1)

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: Channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}

	if err := enc.Write(buf); err != nil {
		enc.Close()
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("finalize wav: %w", err)
	}
	return f.Close()
}

// Duration returns the playback duration of a WAV file, computed from the
// PCM data chunk alone so header bytes never count toward it.
func Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if err := dec.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("read wav duration: %w", err)
	}
	if dec.AvgBytesPerSec == 0 {
		return 0, fmt.Errorf("read wav duration: zero byte rate in %s", path)
	}
	secs := float64(dec.PCMLen()) / float64(dec.AvgBytesPerSec)
	return time.Duration(secs * float64(time.Second)), nil
}

// Retime rewrites the playback rate metadata of a WAV file by factor into a
// new temporary file and returns its path. The samples are untouched, so a
// factor of 2.0 halves the reported duration (a cheap fast-forward, not a
// pitch-preserving stretch). The caller owns the returned file.
func Retime(path string, factor float64) (string, error) {
	if factor <= 0 {
		return "", fmt.Errorf("retime: factor must be positive, got %f", factor)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("retime: open source: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return "", fmt.Errorf("retime: decode source: %w", err)
	}

	newRate := int(float64(dec.SampleRate) * factor)
	if newRate <= 0 {
		return "", fmt.Errorf("retime: factor %f yields invalid sample rate", factor)
	}

	out, err := os.CreateTemp("", "whisperkey-retime-*.wav")
	if err != nil {
		return "", fmt.Errorf("retime: create temp: %w", err)
	}
	outPath := out.Name()

	enc := wav.NewEncoder(out, newRate, int(dec.BitDepth), int(dec.NumChans), 1)
	buf.Format = &audio.Format{NumChannels: int(dec.NumChans), SampleRate: newRate}

	if err := enc.Write(buf); err != nil {
		enc.Close()
		out.Close()
		os.Remove(outPath)
		return "", fmt.Errorf("retime: write: %w", err)
	}
	if err := enc.Close(); err != nil {
		out.Close()
		os.Remove(outPath)
		return "", fmt.Errorf("retime: finalize: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return "", err
	}

	return outPath, nil
}
