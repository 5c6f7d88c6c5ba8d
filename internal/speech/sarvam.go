package speech

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

	"github.com/ambiware-labs/scribed/internal/config"
)

type sarvamTranscriber struct {
	cfg    config.SpeechConfig
	client *http.Client
}

// NewSarvamTranscriber builds the hosted speech backend. A single request
// returns transcript text and speaker attribution together.
func NewSarvamTranscriber(cfg config.SpeechConfig) Transcriber {
	return &sarvamTranscriber{
		cfg:    cfg,
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (t *sarvamTranscriber) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return Result{}, fmt.Errorf("open chunk audio: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return Result{}, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return Result{}, fmt.Errorf("read chunk audio: %w", err)
	}
	if err := writer.WriteField("model", t.cfg.Model); err != nil {
		return Result{}, err
	}
	if err := writer.WriteField("with_diarization", "true"); err != nil {
		return Result{}, err
	}
	if t.cfg.NumSpeakers > 0 {
		if err := writer.WriteField("num_speakers", strconv.Itoa(t.cfg.NumSpeakers)); err != nil {
			return Result{}, err
		}
	}
	if t.cfg.Prompt != "" {
		if err := writer.WriteField("prompt", t.cfg.Prompt); err != nil {
			return Result{}, err
		}
	}
	if err := writer.Close(); err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, &body)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("api-subscription-key", t.cfg.APIKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read speech response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return Result{}, &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	var payload map[string]any
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return Result{}, fmt.Errorf("decode speech response: %w", err)
	}
	return resultFromPayload(payload), nil
}
