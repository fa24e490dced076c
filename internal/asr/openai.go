package asr

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog"
)

// OpenAIEngine transcribes through the hosted OpenAI audio API. There is no
// local model to manage; LoadModel only records the requested name.
type OpenAIEngine struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

func NewOpenAIEngine(apiKey string, log zerolog.Logger) (*OpenAIEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai engine requires an API key")
	}
	return &OpenAIEngine{
		client: openai.NewClient(apiKey),
		model:  openai.Whisper1,
		log:    log,
	}, nil
}

func (e *OpenAIEngine) LoadModel(ctx context.Context, name string) error {
	// Hosted models are always resident; nothing to download or swap.
	e.log.Debug().Str("model", name).Msg("Hosted engine, skipping model load")
	return nil
}

func (e *OpenAIEngine) Transcribe(ctx context.Context, path string, opts Options) (Result, error) {
	req := openai.AudioRequest{
		Model:    e.model,
		FilePath: path,
		Prompt:   opts.InitialPrompt,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}

	resp, err := e.client.CreateTranscription(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInferenceFailure, err)
	}

	text := resp.Text
	if len(resp.Segments) > 0 {
		texts := make([]string, len(resp.Segments))
		for i, seg := range resp.Segments {
			texts[i] = seg.Text
		}
		text = joinSegments(texts)
	}

	return Result{
		Text:     joinSegments([]string{text}),
		Duration: time.Duration(resp.Duration * float64(time.Second)),
	}, nil
}
