package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to the OpenAI chat completion API, typically as
// the fallback when the local backend is down.
type OpenAIProvider struct {
	client      *openai.Client
	apiKey      string
	model       string
	maxTokens   int
	temperature float32
	logger      zerolog.Logger
}

// OpenAIConfig holds OpenAI backend configuration.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// NewOpenAIProvider creates the provider. The API key falls back to
// OPENAI_API_KEY when the config leaves it empty.
func NewOpenAIProvider(logger zerolog.Logger, cfg OpenAIConfig) *OpenAIProvider {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 150
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}
	return &OpenAIProvider{
		client:      openai.NewClient(apiKey),
		apiKey:      apiKey,
		model:       model,
		maxTokens:   maxTokens,
		temperature: float32(temperature),
		logger:      logger.With().Str("provider", "openai").Logger(),
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Chat sends one completion request and returns the reply text.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	start := time.Now()

	if p.apiKey == "" {
		return "", fmt.Errorf("%w: OpenAI API key not configured", ErrBackendUnavailable)
	}

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    chatMessages,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty reply from openai")
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	p.logger.Info().Dur("time", time.Since(start)).Int("chars", len(reply)).Msg("Chat complete")
	return reply, nil
}

func (p *OpenAIProvider) Health(ctx context.Context) error {
	if p.apiKey == "" {
		return fmt.Errorf("%w: OpenAI API key not configured", ErrBackendUnavailable)
	}
	return nil
}
