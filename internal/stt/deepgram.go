package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	deepgramWSEndpoint = "wss://api.deepgram.com/v1/listen"
	deepgramModel      = "nova-2"

	// deepgramChunkDur paces PCM writes so the server treats the clip
	// as a live stream.
	deepgramChunkDur = 100 * time.Millisecond
)

// DeepgramProvider transcribes by streaming the clip over a Deepgram
// websocket and collecting the final transcript.
type DeepgramProvider struct {
	apiKey   string
	language string
	logger   zerolog.Logger
}

// DeepgramConfig holds Deepgram configuration.
type DeepgramConfig struct {
	APIKey   string
	Language string
}

// NewDeepgramProvider creates the provider. The API key falls back to
// DEEPGRAM_API_KEY when the config leaves it empty.
func NewDeepgramProvider(logger zerolog.Logger, cfg DeepgramConfig) *DeepgramProvider {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("DEEPGRAM_API_KEY")
	}
	language := cfg.Language
	if language == "" {
		language = "en-US"
	}
	return &DeepgramProvider{
		apiKey:   apiKey,
		language: language,
		logger:   logger.With().Str("provider", "deepgram").Logger(),
	}
}

func (p *DeepgramProvider) Name() string {
	return "deepgram"
}

type deepgramMessage struct {
	Type        string          `json:"type"`
	Duration    float64         `json:"duration,omitempty"`
	IsFinal     bool            `json:"is_final,omitempty"`
	SpeechFinal bool            `json:"speech_final,omitempty"`
	Channel     deepgramChannel `json:"channel,omitempty"`
}

type deepgramChannel struct {
	Alternatives []deepgramAlternative `json:"alternatives,omitempty"`
}

type deepgramAlternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// Transcribe dials the streaming endpoint, writes the PCM in paced
// chunks, and returns the final transcript.
func (p *DeepgramProvider) Transcribe(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: Deepgram API key not configured", ErrProviderUnavailable)
	}
	if len(req.WAV) == 0 {
		return nil, ErrAudioTooShort
	}

	sampleRate := req.SampleRate
	if sampleRate == 0 {
		sampleRate = 16000
	}

	url := fmt.Sprintf("%s?model=%s&language=%s&encoding=linear16&sample_rate=%d&channels=1&punctuate=true",
		deepgramWSEndpoint, deepgramModel, p.language, sampleRate)

	header := http.Header{}
	header.Set("Authorization", "Token "+p.apiKey)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			p.logger.Error().Int("status", resp.StatusCode).Err(err).Msg("Deepgram connection failed")
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer conn.Close()

	results := make(chan *Result, 1)
	readErr := make(chan error, 1)
	go p.collectFinal(conn, results, readErr)

	pcm := stripWAVHeader(req.WAV)
	chunkSize := sampleRate * 2 / 10
	for i := 0; i < len(pcm); i += chunkSize {
		end := i + chunkSize
		if end > len(pcm) {
			end = len(pcm)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, pcm[i:end]); err != nil {
			return nil, fmt.Errorf("send audio: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(deepgramChunkDur):
		}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type": "CloseStream"}`)); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to send close message")
	}

	select {
	case res := <-results:
		res.ProcessingTime = time.Since(start)
		p.logger.Info().Str("text", res.Text).Dur("time", res.ProcessingTime).Msg("Transcription complete")
		return res, nil
	case err := <-readErr:
		return nil, err
	case <-time.After(10 * time.Second):
		return nil, fmt.Errorf("transcription timeout")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// collectFinal reads websocket messages until a final transcript or an
// error. Interim results are accumulated so a missing final flag still
// produces output.
func (p *DeepgramProvider) collectFinal(conn *websocket.Conn, results chan<- *Result, readErr chan<- error) {
	var last *Result
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && last != nil {
				results <- last
				return
			}
			readErr <- fmt.Errorf("read transcript: %w", err)
			return
		}

		var msg deepgramMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to parse Deepgram message")
			continue
		}
		if msg.Type != "Results" || len(msg.Channel.Alternatives) == 0 {
			continue
		}
		alt := msg.Channel.Alternatives[0]
		if alt.Transcript == "" {
			continue
		}
		last = &Result{Text: alt.Transcript, Confidence: alt.Confidence}
		if msg.IsFinal || msg.SpeechFinal {
			results <- last
			return
		}
	}
}

func (p *DeepgramProvider) Health(ctx context.Context) error {
	if p.apiKey == "" {
		return fmt.Errorf("%w: Deepgram API key not configured", ErrProviderUnavailable)
	}
	return nil
}

// stripWAVHeader returns the PCM payload of a canonical 44-byte-header
// WAV clip. Anything shorter passes through unchanged.
func stripWAVHeader(wav []byte) []byte {
	if len(wav) > 44 && string(wav[0:4]) == "RIFF" {
		return wav[44:]
	}
	return wav
}
