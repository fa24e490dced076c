package asr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// defaultModelBaseURL hosts the ggml model files the server engine loads.
const defaultModelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

var knownModels = map[string]bool{
	"tiny":           true,
	"base":           true,
	"small":          true,
	"medium":         true,
	"large-v3":       true,
	"large-v3-turbo": true,
}

// downloadModel fetches the named model into destPath. The file lands under
// a .tmp name first so a partial download never looks like a usable model.
func (e *ServerEngine) downloadModel(ctx context.Context, name, destPath string) error {
	if !knownModels[name] {
		return fmt.Errorf("unknown model %q", name)
	}
	url := fmt.Sprintf("%s/ggml-%s.bin", e.modelBaseURL, name)

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("create models dir: %w", err)
	}

	e.log.Info().Str("model", name).Str("url", url).Msg("Downloading model")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download model: HTTP %d", resp.StatusCode)
	}

	tmpPath := destPath + ".tmp"
	defer os.Remove(tmpPath)

	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp model file: %w", err)
	}

	body := io.Reader(resp.Body)
	if resp.ContentLength > 0 {
		body = &progressReader{
			r:     resp.Body,
			total: resp.ContentLength,
			model: name,
			last:  time.Now(),
			log:   e.log,
		}
	}

	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		return fmt.Errorf("write model file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("finalize model file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("move model into place: %w", err)
	}

	e.log.Info().
		Str("model", name).
		Str("path", destPath).
		Float64("size_mb", float64(resp.ContentLength)/1024/1024).
		Msg("Model downloaded")
	return nil
}

// progressReader logs download progress every couple of seconds as the body
// streams through it.
type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	model string
	last  time.Time
	log   zerolog.Logger
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	p.read += int64(n)

	if now := time.Now(); now.Sub(p.last) >= 2*time.Second {
		p.last = now
		p.log.Info().
			Str("model", p.model).
			Float64("percent", float64(p.read)/float64(p.total)*100).
			Float64("downloaded_mb", float64(p.read)/1024/1024).
			Msg("Downloading model")
	}
	return n, err
}
