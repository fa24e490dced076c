package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// ServerEngine talks to a local whisper inference server over HTTP. Model
// files are downloaded into modelsDir and loaded into the server on demand.
type ServerEngine struct {
	baseURL      string
	modelsDir    string
	modelBaseURL string
	client       *http.Client
	log          zerolog.Logger
}

func NewServerEngine(baseURL, modelsDir string, log zerolog.Logger) *ServerEngine {
	return &ServerEngine{
		baseURL:      baseURL,
		modelsDir:    modelsDir,
		modelBaseURL: defaultModelBaseURL,
		client:       &http.Client{},
		log:          log,
	}
}

// LoadModel ensures the model file exists locally, then asks the server to
// swap it in.
func (e *ServerEngine) LoadModel(ctx context.Context, name string) error {
	modelPath := filepath.Join(e.modelsDir, name+".bin")

	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		if err := e.downloadModel(ctx, name, modelPath); err != nil {
			return fmt.Errorf("%w: %v", ErrModelLoadFailure, err)
		}
	}

	body, err := json.Marshal(map[string]string{"model": modelPath})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelLoadFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/load", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelLoadFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelLoadFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: server returned HTTP %d: %s", ErrModelLoadFailure, resp.StatusCode, msg)
	}

	e.log.Info().Str("model", name).Msg("Model loaded on inference server")
	return nil
}

type serverResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Text string `json:"text"`
	} `json:"segments"`
	Error string `json:"error"`
}

// Transcribe uploads the artifact with the decoding parameters and returns
// the server's transcription.
func (e *ServerEngine) Transcribe(ctx context.Context, path string, opts Options) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: open artifact: %v", ErrInferenceFailure, err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := map[string]string{
		"response_format":            "verbose_json",
		"beam_size":                  strconv.Itoa(opts.BeamSize),
		"vad_filter":                 strconv.FormatBool(opts.VADFilter),
		"vad_threshold":              strconv.FormatFloat(opts.VADThreshold, 'f', -1, 64),
		"vad_min_speech_duration_ms": strconv.Itoa(int(opts.MinSpeechDuration.Milliseconds())),
		"vad_max_speech_duration_s":  strconv.Itoa(int(opts.MaxSegmentDuration.Seconds())),
	}
	if opts.InitialPrompt != "" {
		fields["initial_prompt"] = opts.InitialPrompt
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrInferenceFailure, err)
		}
	}

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInferenceFailure, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInferenceFailure, err)
	}
	if err := writer.Close(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInferenceFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/inference", body)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInferenceFailure, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInferenceFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Result{}, fmt.Errorf("%w: server returned HTTP %d: %s", ErrInferenceFailure, resp.StatusCode, msg)
	}

	var sr serverResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return Result{}, fmt.Errorf("%w: decode response: %v", ErrInferenceFailure, err)
	}
	if sr.Error != "" {
		return Result{}, fmt.Errorf("%w: %s", ErrInferenceFailure, sr.Error)
	}

	text := joinSegmentTexts(sr)
	return Result{
		Text:     text,
		Duration: time.Duration(sr.Duration * float64(time.Second)),
	}, nil
}

func joinSegmentTexts(sr serverResponse) string {
	if len(sr.Segments) == 0 {
		return joinSegments([]string{sr.Text})
	}
	texts := make([]string, len(sr.Segments))
	for i, s := range sr.Segments {
		texts[i] = s.Text
	}
	return joinSegments(texts)
}
