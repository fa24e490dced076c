package asr

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"whisperkey/internal/config"
	"whisperkey/internal/wavio"
)

// LoadState tracks the lifecycle of the current model handle.
type LoadState int

const (
	StateUnloaded LoadState = iota
	StateLoading
	StateLoaded
	StateFailed
)

// defaultLoadTimeout bounds how long Transcribe waits for a model.
const defaultLoadTimeout = 30 * time.Second

// Worker serializes model loading and runs whole-artifact transcription with
// fixed decoding parameters. At most one model load is in flight at a time.
type Worker struct {
	engine Engine
	cfg    *config.Config
	log    zerolog.Logger

	loadTimeout time.Duration

	mu        sync.Mutex
	state     LoadState
	modelName string        // name of the loaded model, valid when state == StateLoaded
	ready     chan struct{} // closed when the in-flight load settles
	prompt    string
}

func NewWorker(engine Engine, cfg *config.Config, log zerolog.Logger) *Worker {
	return &Worker{
		engine:      engine,
		cfg:         cfg,
		log:         log,
		loadTimeout: defaultLoadTimeout,
		state:       StateUnloaded,
	}
}

// LoadModel starts a background load of the named model (or the configured
// default when name is empty). Returns false if a load is already in flight;
// returns true immediately when the requested model is already loaded.
func (w *Worker) LoadModel(name string) bool {
	w.mu.Lock()
	if name == "" {
		name = w.cfg.Engine.Model
	}
	if w.state == StateLoading {
		w.mu.Unlock()
		return false
	}
	if w.state == StateLoaded && w.modelName == name {
		w.mu.Unlock()
		return true
	}

	w.state = StateLoading
	ready := make(chan struct{})
	w.ready = ready
	w.mu.Unlock()

	go w.load(name, ready)
	return true
}

func (w *Worker) load(name string, ready chan struct{}) {
	defer close(ready)

	w.log.Info().Str("model", name).Msg("Loading model")
	err := w.engine.LoadModel(context.Background(), name)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		// Failure is reported through state, never raised.
		w.state = StateFailed
		w.modelName = ""
		w.log.Error().Err(err).Str("model", name).Msg("Model load failed")
		return
	}

	w.state = StateLoaded
	w.modelName = name
	w.log.Info().Str("model", name).Msg("Model loaded")

	// Successful loads update the default model preference.
	if w.cfg.Engine.Model != name {
		w.cfg.Engine.Model = name
		if err := w.cfg.Save(); err != nil {
			w.log.Warn().Err(err).Msg("Failed to persist model preference")
		}
	}
}

// IsModelLoaded reports whether a model is resident.
func (w *Worker) IsModelLoaded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state == StateLoaded
}

// LoadedModel returns the resident model name, or "" if none.
func (w *Worker) LoadedModel() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateLoaded {
		return ""
	}
	return w.modelName
}

// SetInitialPrompt sets the decoding context forwarded to the engine. A
// blank (post-trim) prompt is omitted from requests entirely.
func (w *Worker) SetInitialPrompt(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prompt = text
}

// InitialPrompt returns the configured prompt as set, untrimmed.
func (w *Worker) InitialPrompt() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.prompt
}

// Transcribe runs inference on the artifact at path. A speed factor other
// than 1 rewrites the artifact's playback rate into a temporary copy first;
// if that fails, inference proceeds on the unmodified artifact. Every
// temporary created here is deleted before returning, on every exit path.
func (w *Worker) Transcribe(path string, speedFactor float64) (Result, error) {
	if err := w.awaitModel(); err != nil {
		return Result{}, err
	}

	if _, err := os.Stat(path); err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	audioPath := path
	if speedFactor > 0 && speedFactor != 1.0 {
		retimed, err := wavio.Retime(path, speedFactor)
		if err != nil {
			w.log.Warn().Err(err).Float64("factor", speedFactor).
				Msg("Speed preprocessing failed, transcribing original artifact")
		} else {
			defer os.Remove(retimed)
			audioPath = retimed
		}
	}

	opts := DefaultOptions()
	if p := strings.TrimSpace(w.InitialPrompt()); p != "" {
		opts.InitialPrompt = p
	}

	start := time.Now()
	res, err := w.engine.Transcribe(context.Background(), audioPath, opts)
	if err != nil {
		return Result{}, err
	}
	res.Elapsed = time.Since(start)

	w.log.Info().
		Dur("audio", res.Duration).
		Dur("elapsed", res.Elapsed).
		Int("chars", len(res.Text)).
		Msg("Transcription complete")

	return res, nil
}

// awaitModel ensures a model is resident, triggering a load if necessary and
// waiting up to the load timeout.
func (w *Worker) awaitModel() error {
	w.mu.Lock()
	if w.state == StateLoaded {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	// Kick off a load of the default model. If one is already in flight
	// this is a rejected no-op and we just wait on it.
	w.LoadModel("")

	w.mu.Lock()
	if w.state == StateLoaded {
		w.mu.Unlock()
		return nil
	}
	ready := w.ready
	w.mu.Unlock()

	if ready == nil {
		return ErrModelLoadFailure
	}

	select {
	case <-ready:
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.state != StateLoaded {
			return ErrModelLoadFailure
		}
		return nil
	case <-time.After(w.loadTimeout):
		return ErrModelLoadTimeout
	}
}
