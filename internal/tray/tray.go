package tray

import (
	"fmt"

	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"whisperkey/internal/app"
	"whisperkey/internal/config"
)

var _ app.Events = (*UI)(nil)

// Controller is the subset of app operations the menu drives.
type Controller interface {
	IsRecording() bool
	StartRecording()
	StopRecording()
	SetModel(name string) error
	SetChunking(enabled bool, seconds int)
	Shutdown()
}

// UI renders pipeline status in the system tray and exposes a small menu.
// It implements app.Events; status callbacks arrive on pipeline goroutines.
type UI struct {
	app Controller
	cfg *config.Config
	log zerolog.Logger

	mToggle   *systray.MenuItem
	mModels   *systray.MenuItem
	mChunking *systray.MenuItem
}

func New(cfg *config.Config, log zerolog.Logger) *UI {
	return &UI{cfg: cfg, log: log}
}

// SetApp sets the app reference (for circular dependency resolution).
func (u *UI) SetApp(app Controller) {
	u.app = app
}

// Run starts the tray loop. Must run on the main thread; blocks until Quit.
func (u *UI) Run() {
	systray.Run(u.onReady, u.onExit)
}

// app.Events implementation.

func (u *UI) RecordingStarted() {
	u.setStatus("recording")
	if u.mToggle != nil {
		u.mToggle.SetTitle("Stop Recording")
	}
}

func (u *UI) RecordingStopped() {
	if u.mToggle != nil {
		u.mToggle.SetTitle("Start Recording")
	}
}

func (u *UI) TranscriptionStarted() {
	u.setStatus("processing")
}

func (u *UI) TranscriptionComplete(text string) {
	u.setStatus("idle")
}

func (u *UI) Error(err error) {
	u.log.Error().Err(err).Msg("Pipeline error")
	u.setStatus("error")
}

func (u *UI) onReady() {
	u.setStatus("idle")
	systray.SetTooltip("Hotkey voice dictation")

	u.mToggle = systray.AddMenuItem("Start Recording",
		fmt.Sprintf("Or press %s / %s", u.cfg.StartHotkey, u.cfg.StopHotkey))
	systray.AddSeparator()

	u.mModels = systray.AddMenuItem("Model", "Select transcription model")
	u.buildModelMenu()

	u.mChunking = systray.AddMenuItemCheckbox("Transcribe While Recording",
		"Emit partial transcriptions on a fixed interval", u.cfg.Chunking.Enabled)

	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	go u.handleEvents(mQuit)
}

func (u *UI) handleEvents(mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mToggle.ClickedCh:
			if u.app.IsRecording() {
				u.app.StopRecording()
			} else {
				u.app.StartRecording()
			}
		case <-u.mChunking.ClickedCh:
			u.toggleChunking()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (u *UI) buildModelMenu() {
	models := []string{"tiny", "base", "small", "medium", "large-v3", "large-v3-turbo"}
	modelItems := make(map[string]*systray.MenuItem)

	for _, model := range models {
		item := u.mModels.AddSubMenuItem(model, "")
		if model == u.cfg.Engine.Model {
			item.Check()
		}
		modelItems[model] = item

		go func(m string, menuItem *systray.MenuItem) {
			for {
				<-menuItem.ClickedCh
				if err := u.app.SetModel(m); err != nil {
					u.log.Warn().Err(err).Str("model", m).Msg("Model switch rejected")
					continue
				}
				for name, itm := range modelItems {
					if name != m {
						itm.Uncheck()
					}
				}
				menuItem.Check()
				u.log.Info().Str("model", m).Msg("Model selected")
			}
		}(model, item)
	}
}

func (u *UI) toggleChunking() {
	enabled := !u.cfg.Chunking.Enabled
	u.app.SetChunking(enabled, u.cfg.Chunking.DurationSeconds)
	if enabled {
		u.mChunking.Check()
	} else {
		u.mChunking.Uncheck()
	}
}

func (u *UI) onExit() {
	if u.app != nil {
		u.app.Shutdown()
	}
}

func (u *UI) setStatus(status string) {
	systray.SetTitle(fmt.Sprintf("🎤 %s", emojiForStatus(status)))
}

func emojiForStatus(status string) string {
	switch status {
	case "recording":
		return "🔴"
	case "processing":
		return "🟡"
	case "error":
		return "⚪️"
	default:
		return "🟢"
	}
}
