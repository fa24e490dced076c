// Package app orchestrates the capture, transcription, and insertion stages
// and owns the lifecycle of every audio artifact.
package app

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"whisperkey/internal/asr"
	"whisperkey/internal/config"
	"whisperkey/internal/insert"
	"whisperkey/internal/record"
)

var (
	_ insert.Listener      = (*App)(nil)
	_ record.ChunkListener = (*App)(nil)
)

// Recorder is the capture stage.
type Recorder interface {
	Start() bool
	Stop() (string, bool)
	IsRecording() bool
	SetChunking(enabled bool, d time.Duration)
}

// Transcriber is the inference stage.
type Transcriber interface {
	LoadModel(name string) bool
	Transcribe(path string, speedFactor float64) (asr.Result, error)
	SetInitialPrompt(text string)
}

// Inserter delivers text into the foreground application. Insert returns a
// nonzero ticket echoed back through the insertion listener.
type Inserter interface {
	Insert(text string) (uint64, bool)
}

// Hotkeys binds global key combinations to actions.
type Hotkeys interface {
	Register(raw string, action func()) error
	Unregister(raw string) bool
	Start() error
	Stop() error
}

type Config struct {
	Recorder    Recorder
	Transcriber Transcriber
	Inserter    Inserter
	Hotkeys     Hotkeys
	Config      *config.Config
	Events      Events // optional, nil means no notifications
	Logger      zerolog.Logger
}

// App wires the stages together. One artifact flows through the pipeline at
// a time: the busy flag is held from the moment a stopped capture yields an
// artifact until the insertion attempt for its transcription has finished,
// and the artifact is deleted exactly once, at the end of that window.
type App struct {
	rec     Recorder
	stt     Transcriber
	ins     Inserter
	hotkeys Hotkeys
	cfg     *config.Config
	events  Events
	log     zerolog.Logger

	mu        sync.Mutex
	recording bool
	busy      bool   // artifact in flight through transcription or insertion
	artifact  string // path owned by the in-flight pipeline run
	insertID  uint64 // ticket of the pipeline's own insertion, 0 if none
}

func New(cfg Config) *App {
	events := cfg.Events
	if events == nil {
		events = NopEvents{}
	}
	return &App{
		rec:     cfg.Recorder,
		stt:     cfg.Transcriber,
		ins:     cfg.Inserter,
		hotkeys: cfg.Hotkeys,
		cfg:     cfg.Config,
		events:  events,
		log:     cfg.Logger,
	}
}

// Initialize registers the configured hotkeys, starts the global listener,
// and begins loading the default model in the background.
func (a *App) Initialize() error {
	if err := a.hotkeys.Register(a.cfg.StartHotkey, a.StartRecording); err != nil {
		return fmt.Errorf("register start hotkey %q: %w", a.cfg.StartHotkey, err)
	}
	if err := a.hotkeys.Register(a.cfg.StopHotkey, a.StopRecording); err != nil {
		return fmt.Errorf("register stop hotkey %q: %w", a.cfg.StopHotkey, err)
	}
	if err := a.hotkeys.Start(); err != nil {
		return fmt.Errorf("start hotkey listener: %w", err)
	}

	a.stt.LoadModel("")
	a.stt.SetInitialPrompt(a.cfg.Engine.InitialPrompt)
	a.rec.SetChunking(a.cfg.Chunking.Enabled, time.Duration(a.cfg.Chunking.DurationSeconds)*time.Second)

	if a.cfg.FirstRun {
		a.log.Info().
			Str("start", a.cfg.StartHotkey).
			Str("stop", a.cfg.StopHotkey).
			Msg("First run, using default hotkeys")
		if err := a.cfg.MarkFirstRunComplete(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to persist first-run flag")
		}
	}
	return nil
}

// StartRecording begins a capture. A press while already recording is a
// logged no-op.
func (a *App) StartRecording() {
	a.mu.Lock()
	if a.recording {
		a.mu.Unlock()
		a.log.Debug().Msg("Start pressed while already recording")
		return
	}
	a.mu.Unlock()

	if !a.rec.Start() {
		a.events.Error(errors.New("could not start recording"))
		return
	}

	a.mu.Lock()
	a.recording = true
	a.mu.Unlock()
	a.events.RecordingStarted()
}

// StopRecording ends the capture and hands the artifact to transcription.
// If the previous artifact is still in flight the new one is deleted
// immediately and an error event is emitted.
func (a *App) StopRecording() {
	a.mu.Lock()
	if !a.recording {
		a.mu.Unlock()
		a.log.Debug().Msg("Stop pressed while not recording")
		return
	}
	a.recording = false
	a.mu.Unlock()

	path, ok := a.rec.Stop()
	a.events.RecordingStopped()
	if !ok {
		a.log.Info().Msg("Capture produced no audio")
		return
	}

	a.mu.Lock()
	if a.busy {
		a.mu.Unlock()
		if err := os.Remove(path); err != nil {
			a.log.Warn().Err(err).Str("path", path).Msg("Failed to delete rejected artifact")
		}
		a.events.Error(errors.New("previous transcription still in progress"))
		return
	}
	a.busy = true
	a.artifact = path
	a.mu.Unlock()

	go a.transcribeAndInsert(path)
}

func (a *App) transcribeAndInsert(path string) {
	a.events.TranscriptionStarted()

	res, err := a.stt.Transcribe(path, a.cfg.Engine.SpeedFactor)
	if err != nil {
		a.log.Error().Err(err).Msg("Transcription failed")
		a.events.Error(err)
		a.finishPipeline()
		return
	}

	a.events.TranscriptionComplete(res.Text)

	if res.Text == "" {
		a.log.Info().Msg("Transcription produced no text")
		a.finishPipeline()
		return
	}

	// The ticket is recorded under the lock before the listener can see it,
	// so a chunk insertion settling at the same time cannot be mistaken for
	// this one.
	a.mu.Lock()
	id, ok := a.ins.Insert(res.Text)
	if ok {
		a.insertID = id
	}
	a.mu.Unlock()

	if !ok {
		a.log.Warn().Msg("Insertion rejected, releasing artifact")
		a.finishPipeline()
		return
	}
	// The artifact is released when the inserter reports InsertionFinished.
}

// finishPipeline deletes the in-flight artifact and clears the busy flag.
// Clearing the path under the lock makes the deletion exactly-once even if
// both the pipeline and the insertion listener reach here.
func (a *App) finishPipeline() {
	a.mu.Lock()
	path := a.artifact
	a.artifact = ""
	a.busy = false
	a.mu.Unlock()

	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil {
		a.log.Warn().Err(err).Str("path", path).Msg("Failed to delete artifact")
	} else {
		a.log.Debug().Str("path", path).Msg("Artifact deleted")
	}
}

// InsertionCompleted implements insert.Listener.
func (a *App) InsertionCompleted(id uint64) {
	a.log.Debug().Uint64("ticket", id).Msg("Insertion completed")
}

// InsertionFinished implements insert.Listener; it fires on every insertion
// attempt, including silent permission skips. Only the pipeline's own
// ticket ends the pipeline window; chunk insertions settle without touching
// the in-flight artifact.
func (a *App) InsertionFinished(id uint64, err error) {
	if err != nil {
		a.log.Error().Err(err).Msg("Insertion failed")
		a.events.Error(err)
	}

	a.mu.Lock()
	pipeline := id != 0 && id == a.insertID
	if pipeline {
		a.insertID = 0
	}
	a.mu.Unlock()

	if pipeline {
		a.finishPipeline()
	}
}

// ChunkReady implements record.ChunkListener. Chunks are transcribed and
// inserted while the capture is still running; each chunk file is deleted
// here as soon as inference is done with it.
func (a *App) ChunkReady(path string) {
	go func() {
		defer func() {
			if err := os.Remove(path); err != nil {
				a.log.Warn().Err(err).Str("path", path).Msg("Failed to delete chunk artifact")
			}
		}()

		res, err := a.stt.Transcribe(path, a.cfg.Engine.SpeedFactor)
		if err != nil {
			a.log.Error().Err(err).Msg("Chunk transcription failed")
			a.events.Error(err)
			return
		}
		if res.Text == "" {
			return
		}
		a.events.TranscriptionComplete(res.Text)
		if _, ok := a.ins.Insert(res.Text); !ok {
			a.log.Warn().Msg("Chunk insertion rejected")
		}
	}()
}

// SetHotkeys rebinds the start and stop hotkeys, persisting on success. On
// any failure the previous bindings are restored and left in effect.
func (a *App) SetHotkeys(start, stop string) error {
	oldStart, oldStop := a.cfg.StartHotkey, a.cfg.StopHotkey

	a.hotkeys.Unregister(oldStart)
	a.hotkeys.Unregister(oldStop)

	if err := a.hotkeys.Register(start, a.StartRecording); err != nil {
		a.hotkeys.Register(oldStart, a.StartRecording)
		a.hotkeys.Register(oldStop, a.StopRecording)
		return fmt.Errorf("bind start hotkey %q: %w", start, err)
	}
	if err := a.hotkeys.Register(stop, a.StopRecording); err != nil {
		a.hotkeys.Unregister(start)
		a.hotkeys.Register(oldStart, a.StartRecording)
		a.hotkeys.Register(oldStop, a.StopRecording)
		return fmt.Errorf("bind stop hotkey %q: %w", stop, err)
	}

	a.cfg.StartHotkey = start
	a.cfg.StopHotkey = stop
	if err := a.cfg.Save(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to persist hotkeys")
	}
	a.log.Info().Str("start", start).Str("stop", stop).Msg("Hotkeys rebound")
	return nil
}

// SetModel requests a background load of the named model. The preference is
// persisted by the transcriber once the load succeeds.
func (a *App) SetModel(name string) error {
	if !a.stt.LoadModel(name) {
		return errors.New("a model load is already in progress")
	}
	return nil
}

// SetInitialPrompt updates the decoding context and persists it.
func (a *App) SetInitialPrompt(text string) {
	a.stt.SetInitialPrompt(text)
	a.cfg.Engine.InitialPrompt = text
	if err := a.cfg.Save(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to persist initial prompt")
	}
}

// SetChunking reconfigures periodic chunk emission and persists it. Takes
// effect on the next capture.
func (a *App) SetChunking(enabled bool, seconds int) {
	a.rec.SetChunking(enabled, time.Duration(seconds)*time.Second)
	a.cfg.Chunking.Enabled = enabled
	a.cfg.Chunking.DurationSeconds = seconds
	if err := a.cfg.Save(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to persist chunking settings")
	}
}

// IsRecording reports whether a capture is in progress.
func (a *App) IsRecording() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recording
}

// Shutdown stops any capture in progress and tears down the hotkey
// listener. A capture cut short here is discarded, not transcribed.
func (a *App) Shutdown() {
	a.mu.Lock()
	recording := a.recording
	a.recording = false
	a.mu.Unlock()

	if recording {
		if path, ok := a.rec.Stop(); ok {
			if err := os.Remove(path); err != nil {
				a.log.Warn().Err(err).Str("path", path).Msg("Failed to delete artifact on shutdown")
			}
		}
	}

	if err := a.hotkeys.Stop(); err != nil {
		a.log.Warn().Err(err).Msg("Error stopping hotkey listener")
	}
}
