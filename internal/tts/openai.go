package tts

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/normanking/arthur/internal/audio"
)

// openaiPCMRate is the fixed sample rate of the API's pcm response.
const openaiPCMRate = 24000

// OpenAISpeaker synthesizes through the OpenAI TTS API and plays the
// PCM locally, so interruption stays under our control.
type OpenAISpeaker struct {
	client *openai.Client
	apiKey string
	model  openai.SpeechModel
	voice  openai.SpeechVoice
	player *audio.Player
	logger zerolog.Logger
}

// OpenAISpeakerConfig holds OpenAI TTS configuration.
type OpenAISpeakerConfig struct {
	APIKey string
	Model  string
	Voice  string
}

// NewOpenAISpeaker creates the speaker. The API key falls back to
// OPENAI_API_KEY when the config leaves it empty.
func NewOpenAISpeaker(logger zerolog.Logger, cfg OpenAISpeakerConfig) *OpenAISpeaker {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	model := openai.SpeechModel(cfg.Model)
	if model == "" {
		model = openai.TTSModel1
	}
	voice := openai.SpeechVoice(cfg.Voice)
	if voice == "" {
		voice = openai.VoiceNova
	}
	return &OpenAISpeaker{
		client: openai.NewClient(apiKey),
		apiKey: apiKey,
		model:  model,
		voice:  voice,
		player: audio.NewPlayer(logger),
		logger: logger.With().Str("speaker", "openai").Logger(),
	}
}

func (s *OpenAISpeaker) Name() string {
	return "openai"
}

// Speak synthesizes the full reply, then plays it in chunks with the
// interrupt callback polled between chunks.
func (s *OpenAISpeaker) Speak(ctx context.Context, text string, interrupted func() bool) error {
	start := time.Now()

	if s.apiKey == "" {
		return fmt.Errorf("%w: OpenAI API key not configured", ErrSpeakerUnavailable)
	}
	if interrupted() {
		return nil
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: openai.SpeechResponseFormatPcm,
	})
	if err != nil {
		return fmt.Errorf("openai tts: %w", err)
	}
	defer resp.Close()

	raw, err := io.ReadAll(resp)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}

	samples := decodePCM16(raw)
	s.logger.Info().
		Dur("synthesis", time.Since(start)).
		Int("samples", len(samples)).
		Msg("Synthesis complete")

	return s.player.Play(samples, openaiPCMRate, interrupted)
}

func (s *OpenAISpeaker) Health(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("%w: OpenAI API key not configured", ErrSpeakerUnavailable)
	}
	return nil
}

func decodePCM16(raw []byte) []int16 {
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return samples
}
