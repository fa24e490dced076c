package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
)

// Engine backends.
const (
	BackendServer = "server"
	BackendOpenAI = "openai"
)

type Config struct {
	StartHotkey string         `json:"start_recording_hotkey"`
	StopHotkey  string         `json:"stop_recording_hotkey"`
	LogLevel    string         `json:"log_level"`
	FirstRun    bool           `json:"first_run"`
	Engine      EngineConfig   `json:"engine"`
	Chunking    ChunkingConfig `json:"chunking"`

	path string
}

type EngineConfig struct {
	Backend       string  `json:"backend"` // "server" or "openai"
	ServerURL     string  `json:"server_url"`
	APIKey        string  `json:"api_key,omitempty"`
	Model         string  `json:"model"` // "tiny", "base", "small", "medium", "large-v3"
	SpeedFactor   float64 `json:"speed_factor"`
	InitialPrompt string  `json:"initial_prompt"`
}

type ChunkingConfig struct {
	Enabled         bool `json:"enabled"`
	DurationSeconds int  `json:"duration_seconds"`
}

func defaults() *Config {
	return &Config{
		StartHotkey: "Control-R",
		StopHotkey:  "Control-S",
		LogLevel:    "info",
		FirstRun:    true,
		Engine: EngineConfig{
			Backend:     BackendServer,
			ServerURL:   "http://127.0.0.1:8080",
			Model:       "base",
			SpeedFactor: 1.5,
		},
		Chunking: ChunkingConfig{
			Enabled:         false,
			DurationSeconds: 60,
		},
	}
}

// Load reads the config from disk or returns defaults.
func Load() (*Config, error) {
	return loadFrom(configPath())
}

func loadFrom(path string) (*Config, error) {
	cfg := defaults()
	cfg.path = path

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		path = configPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// MarkFirstRunComplete clears the first-run flag and persists it.
func (c *Config) MarkFirstRunComplete() error {
	c.FirstRun = false
	return c.Save()
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "whisperkey", "config.json")
}

// ModelsPath returns the platform-specific models directory path
func ModelsPath() string {
	return filepath.Join(dataDir(), "whisperkey", "models")
}

// RecordingsPath returns the directory where in-flight recording artifacts live.
func RecordingsPath() string {
	return filepath.Join(dataDir(), "whisperkey", "recordings")
}

func dataDir() string {
	switch runtime.GOOS {
	case "darwin":
		return os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		return os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return xdg
		}
		return os.Getenv("HOME") + "/.local/share"
	}
}
