package asr

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"whisperkey/internal/config"
)

// NewEngine builds the inference engine selected by configuration.
func NewEngine(cfg config.EngineConfig, log zerolog.Logger) (Engine, error) {
	switch cfg.Backend {
	case "", config.BackendServer:
		return NewServerEngine(cfg.ServerURL, config.ModelsPath(), log), nil
	case config.BackendOpenAI:
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		return NewOpenAIEngine(key, log)
	default:
		return nil, fmt.Errorf("unknown engine backend %q", cfg.Backend)
	}
}
