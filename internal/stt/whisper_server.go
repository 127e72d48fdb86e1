package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// WhisperServerProvider transcribes against a local whisper.cpp server
// so the loop keeps working with no cloud dependency.
type WhisperServerProvider struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// WhisperServerConfig holds local whisper server configuration.
type WhisperServerConfig struct {
	// BaseURL is the server root, e.g. "http://localhost:8080".
	BaseURL string
	Timeout time.Duration
}

// NewWhisperServerProvider creates the provider.
func NewWhisperServerProvider(logger zerolog.Logger, cfg WhisperServerConfig) *WhisperServerProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &WhisperServerProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("provider", "whisper-server").Logger(),
	}
}

func (p *WhisperServerProvider) Name() string {
	return "whisper-server"
}

// Transcribe posts the WAV clip to the server's /inference endpoint.
func (p *WhisperServerProvider) Transcribe(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	if len(req.WAV) == 0 {
		return nil, ErrAudioTooShort
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(req.WAV); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}
	if err := writer.WriteField("response_format", "json"); err != nil {
		return nil, fmt.Errorf("write response_format field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/inference", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		p.logger.Error().Int("status", resp.StatusCode).Str("body", string(body)).Msg("Whisper server error")
		return nil, fmt.Errorf("whisper server status %d", resp.StatusCode)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	elapsed := time.Since(start)
	p.logger.Info().Str("text", result.Text).Dur("time", elapsed).Msg("Transcription complete")

	return &Result{
		Text:           result.Text,
		Confidence:     0.9,
		ProcessingTime: elapsed,
	}, nil
}

// Health probes the server root.
func (p *WhisperServerProvider) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	resp.Body.Close()
	return nil
}
