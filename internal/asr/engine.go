// Package asr turns finished audio artifacts into text through an external
// inference engine.
package asr

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrModelLoadFailure is reported when a model load ends in failure.
	ErrModelLoadFailure = errors.New("model load failed")
	// ErrModelLoadTimeout is reported when waiting for a model exceeds the ceiling.
	ErrModelLoadTimeout = errors.New("model load timed out")
	// ErrFileNotFound is reported when the audio artifact path does not exist.
	ErrFileNotFound = errors.New("audio artifact not found")
	// ErrInferenceFailure wraps engine-side transcription errors.
	ErrInferenceFailure = errors.New("inference failed")
)

// Options carries the fixed decoding parameters forwarded to the engine.
type Options struct {
	BeamSize           int
	VADFilter          bool
	VADThreshold       float64
	MinSpeechDuration  time.Duration
	MaxSegmentDuration time.Duration
	InitialPrompt      string
}

// DefaultOptions returns the decoding parameters used for every request.
func DefaultOptions() Options {
	return Options{
		BeamSize:           5,
		VADFilter:          true,
		VADThreshold:       0.5,
		MinSpeechDuration:  250 * time.Millisecond,
		MaxSegmentDuration: 30 * time.Second,
	}
}

// Result is a finished transcription.
type Result struct {
	Text     string
	Duration time.Duration // source audio duration
	Elapsed  time.Duration // inference latency
}

// Engine is the external inference capability. Implementations hold at most
// one model at a time.
type Engine interface {
	LoadModel(ctx context.Context, name string) error
	Transcribe(ctx context.Context, path string, opts Options) (Result, error)
}

// joinSegments concatenates segment texts in order with single spaces,
// trimming each piece.
func joinSegments(segments []string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
