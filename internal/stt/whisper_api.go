package stt

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// WhisperAPIProvider transcribes through the OpenAI Whisper API.
type WhisperAPIProvider struct {
	client *openai.Client
	apiKey string
	model  string
	logger zerolog.Logger
}

// WhisperAPIConfig holds Whisper API configuration.
type WhisperAPIConfig struct {
	APIKey string
	Model  string
}

// NewWhisperAPIProvider creates the provider. The API key falls back to
// OPENAI_API_KEY when the config leaves it empty.
func NewWhisperAPIProvider(logger zerolog.Logger, cfg WhisperAPIConfig) *WhisperAPIProvider {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperAPIProvider{
		client: openai.NewClient(apiKey),
		apiKey: apiKey,
		model:  model,
		logger: logger.With().Str("provider", "whisper-api").Logger(),
	}
}

func (p *WhisperAPIProvider) Name() string {
	return "whisper-api"
}

// Transcribe sends the WAV clip to the Whisper API.
func (p *WhisperAPIProvider) Transcribe(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key not configured", ErrProviderUnavailable)
	}
	if len(req.WAV) == 0 {
		return nil, ErrAudioTooShort
	}

	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.model,
		FilePath: "utterance.wav",
		Reader:   bytes.NewReader(req.WAV),
		Language: req.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("whisper api: %w", err)
	}

	elapsed := time.Since(start)
	p.logger.Info().Str("text", resp.Text).Dur("time", elapsed).Msg("Transcription complete")

	return &Result{
		Text:           resp.Text,
		Confidence:     0.95, // the API reports no confidence
		ProcessingTime: elapsed,
	}, nil
}

func (p *WhisperAPIProvider) Health(ctx context.Context) error {
	if p.apiKey == "" {
		return fmt.Errorf("%w: OpenAI API key not configured", ErrProviderUnavailable)
	}
	return nil
}
