package llm

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Chain tries providers in order and sticks with the first one that
// answers. After a failover the chain stays on the fallback instead of
// probing the dead primary on every exchange.
type Chain struct {
	mu        sync.Mutex
	providers []Provider
	active    int
	logger    zerolog.Logger
}

// NewChain creates a fallback chain. The first provider is the primary.
func NewChain(logger zerolog.Logger, providers ...Provider) *Chain {
	return &Chain{
		providers: providers,
		logger:    logger.With().Str("component", "llm-chain").Logger(),
	}
}

func (c *Chain) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.providers) == 0 {
		return "none"
	}
	return c.providers[c.active].Name()
}

// Chat asks the active provider, advancing down the chain on failure.
func (c *Chain) Chat(ctx context.Context, messages []Message) (string, error) {
	c.mu.Lock()
	start := c.active
	providers := c.providers
	c.mu.Unlock()

	var lastErr error = ErrBackendUnavailable
	for i := start; i < len(providers); i++ {
		reply, err := providers[i].Chat(ctx, messages)
		if err == nil {
			if i != start {
				c.logger.Warn().
					Str("from", providers[start].Name()).
					Str("to", providers[i].Name()).
					Msg("Backend failover")
				c.mu.Lock()
				c.active = i
				c.mu.Unlock()
			}
			return reply, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.logger.Warn().Err(err).Str("provider", providers[i].Name()).Msg("Backend failed")
		lastErr = err
	}
	return "", lastErr
}

// Health passes if any provider in the chain is healthy.
func (c *Chain) Health(ctx context.Context) error {
	c.mu.Lock()
	providers := c.providers
	c.mu.Unlock()

	var lastErr error = ErrBackendUnavailable
	for _, p := range providers {
		if err := p.Health(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return lastErr
}
