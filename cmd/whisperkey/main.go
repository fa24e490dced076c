package main

import (
	"os"
	"os/signal"
	"syscall"

	"whisperkey/internal/app"
	"whisperkey/internal/asr"
	"whisperkey/internal/config"
	"whisperkey/internal/hotkey"
	"whisperkey/internal/insert"
	"whisperkey/internal/logging"
	"whisperkey/internal/permissions"
	"whisperkey/internal/record"
	"whisperkey/internal/tray"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	log := logging.NewWithLevel(cfg.LogLevel)

	// Capture works without the accessibility grant; insertion is skipped
	// until the user approves it, so missing permissions are not fatal.
	if err := permissions.Ensure(); err != nil {
		log.Warn().Err(err).Msg("Running with reduced functionality")
	}

	engine, err := asr.NewEngine(cfg.Engine, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize transcription engine")
	}
	transcriber := asr.NewWorker(engine, cfg, log)

	recorder := record.New(record.OpenDefaultDevice, config.RecordingsPath(), log)
	inserter := insert.NewWorker(insert.NewPlatform(), log)

	monitor, err := hotkey.NewMonitor()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize hotkey monitor")
	}
	listener := hotkey.NewListener(monitor, log)

	trayUI := tray.New(cfg, log) // app reference set below

	application := app.New(app.Config{
		Recorder:    recorder,
		Transcriber: transcriber,
		Inserter:    inserter,
		Hotkeys:     listener,
		Config:      cfg,
		Events:      trayUI,
		Logger:      log,
	})
	trayUI.SetApp(application)
	recorder.SetChunkListener(application)
	inserter.SetListener(application)

	if err := application.Initialize(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}

	log.Info().
		Str("start", cfg.StartHotkey).
		Str("stop", cfg.StopHotkey).
		Msg("whisperkey starting")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("Shutting down")
		application.Shutdown()
		os.Exit(0)
	}()

	// Blocks until Quit; must run on the main thread.
	trayUI.Run()
}
