// Package record owns the audio input device for the duration of one capture
// and materializes finished captures as WAV artifacts.
package record

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"whisperkey/internal/wavio"
)

// ErrDeviceUnavailable is reported when the input device cannot be opened.
var ErrDeviceUnavailable = errors.New("audio input device unavailable")

// Chunk duration bounds.
const (
	MinChunkDuration = 10 * time.Second
	MaxChunkDuration = 300 * time.Second

	chunkCheckInterval = time.Second
)

// State represents recorder state.
type State int

const (
	StateIdle State = iota
	StateRecording
)

// InputDevice is an open, exclusive handle on an audio input. Read blocks
// until the next buffer of mono PCM16 frames is available and must fail once
// the device is stopped or closed.
type InputDevice interface {
	Start() error
	Read() ([]int16, error)
	Stop() error
	Close() error
}

// DeviceOpener opens the input device at the fixed sample rate and channel
// count. Injectable for tests.
type DeviceOpener func() (InputDevice, error)

// ChunkListener receives fixed-duration chunk artifacts while a capture is
// still in progress.
type ChunkListener interface {
	ChunkReady(path string)
}

// Recorder accumulates frames from one capture at a time. At most one
// recording session exists; Start while recording is a rejected no-op.
type Recorder struct {
	open DeviceOpener
	dir  string
	log  zerolog.Logger

	mu          sync.Mutex
	state       State
	dev         InputDevice
	frames      []int16
	chunkFrames []int16
	chunkStart  time.Time
	chunking    bool
	chunkDur    time.Duration
	listener    ChunkListener
	stop        chan struct{}
	done        chan struct{}
}

func New(open DeviceOpener, dir string, log zerolog.Logger) *Recorder {
	return &Recorder{
		open:     open,
		dir:      dir,
		log:      log,
		state:    StateIdle,
		chunkDur: MinChunkDuration,
	}
}

// SetChunkListener sets the receiver for chunk artifacts.
func (r *Recorder) SetChunkListener(l ChunkListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = l
}

// SetChunking enables or disables chunk emission. The duration is clamped
// to [MinChunkDuration, MaxChunkDuration].
func (r *Recorder) SetChunking(enabled bool, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunking = enabled
	r.chunkDur = clampChunkDuration(d)
}

func clampChunkDuration(d time.Duration) time.Duration {
	if d < MinChunkDuration {
		return MinChunkDuration
	}
	if d > MaxChunkDuration {
		return MaxChunkDuration
	}
	return d
}

// IsRecording reports whether a capture is in progress.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == StateRecording
}

// Start opens the input device and begins capturing. Returns false if a
// recording is already in progress or the device cannot be opened.
func (r *Recorder) Start() bool {
	r.mu.Lock()
	if r.state == StateRecording {
		r.mu.Unlock()
		return false
	}

	dev, err := r.open()
	if err != nil {
		r.mu.Unlock()
		r.log.Error().Err(err).Msg("Failed to open input device")
		return false
	}
	if err := dev.Start(); err != nil {
		dev.Close()
		r.mu.Unlock()
		r.log.Error().Err(err).Msg("Failed to start input device")
		return false
	}

	r.state = StateRecording
	r.dev = dev
	r.frames = nil
	r.chunkFrames = nil
	r.chunkStart = time.Now()
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	chunking := r.chunking
	stop, done := r.stop, r.done
	r.mu.Unlock()

	go r.captureLoop(dev, done)
	if chunking {
		go r.chunkLoop(stop)
	}

	r.log.Info().Msg("Recording started")
	return true
}

// Stop ends the capture and materializes the accumulated buffer into one WAV
// artifact. Returns ("", false) if not recording or if zero frames were
// captured. Device teardown happens before buffer finalization so the device
// is released even when writing the artifact fails.
func (r *Recorder) Stop() (string, bool) {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return "", false
	}
	r.state = StateIdle
	dev := r.dev
	r.dev = nil
	close(r.stop)
	done := r.done
	r.mu.Unlock()

	// Stopping the device unblocks the capture loop's pending Read.
	if dev != nil {
		if err := dev.Stop(); err != nil {
			r.log.Warn().Err(err).Msg("Error stopping input device")
		}
		if err := dev.Close(); err != nil {
			r.log.Warn().Err(err).Msg("Error closing input device")
		}
	}
	<-done

	r.mu.Lock()
	samples := r.frames
	r.frames = nil
	remainder := r.chunkFrames
	r.chunkFrames = nil
	chunking := r.chunking
	listener := r.listener
	r.mu.Unlock()

	if chunking && len(remainder) > 0 {
		if path, err := r.writeArtifact(remainder, "chunk"); err != nil {
			r.log.Error().Err(err).Msg("Failed to flush final chunk")
		} else if listener != nil {
			listener.ChunkReady(path)
		}
	}

	r.log.Info().Int("frames", len(samples)).Msg("Recording stopped")

	if len(samples) == 0 {
		return "", false
	}

	path, err := r.writeArtifact(samples, "recording")
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to write recording artifact")
		return "", false
	}
	return path, true
}

func (r *Recorder) captureLoop(dev InputDevice, done chan<- struct{}) {
	defer close(done)

	for {
		buf, err := dev.Read()
		if err != nil {
			// Stopped or device failure; either way the capture is over.
			return
		}

		r.mu.Lock()
		if r.state == StateRecording {
			r.frames = append(r.frames, buf...)
			if r.chunking {
				r.chunkFrames = append(r.chunkFrames, buf...)
			}
		}
		r.mu.Unlock()
	}
}

// chunkLoop checks roughly once a second whether the current chunk window has
// elapsed, and if so flushes the chunk buffer to its own artifact. Capture
// continues uninterrupted.
func (r *Recorder) chunkLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(chunkCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.flushChunkIfDue()
		}
	}
}

func (r *Recorder) flushChunkIfDue() {
	r.mu.Lock()
	if r.state != StateRecording || time.Since(r.chunkStart) < r.chunkDur || len(r.chunkFrames) == 0 {
		r.mu.Unlock()
		return
	}
	samples := r.chunkFrames
	r.chunkFrames = nil
	r.chunkStart = time.Now()
	listener := r.listener
	r.mu.Unlock()

	path, err := r.writeArtifact(samples, "chunk")
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to write chunk artifact")
		return
	}
	if listener != nil {
		listener.ChunkReady(path)
	}
}

func (r *Recorder) writeArtifact(samples []int16, kind string) (string, error) {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", fmt.Errorf("create recordings dir: %w", err)
	}
	path := filepath.Join(r.dir, fmt.Sprintf("%s-%s.wav", kind, uuid.NewString()))
	if err := wavio.WriteMono16(path, samples, wavio.SampleRate); err != nil {
		return "", err
	}
	return path, nil
}
