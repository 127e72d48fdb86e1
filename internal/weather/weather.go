// Package weather answers "what's the weather" locally through wttr.in
// so the question works even when the conversation backend is down.
package weather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client fetches a one-line weather summary.
type Client struct {
	baseURL  string
	location string
	http     *http.Client
	logger   zerolog.Logger
}

// Config holds weather lookup configuration.
type Config struct {
	// BaseURL defaults to the public wttr.in instance.
	BaseURL string
	// Location is empty for IP-based geolocation.
	Location string
	Timeout  time.Duration
}

// NewClient creates a weather client.
func NewClient(logger zerolog.Logger, cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://wttr.in"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		location: cfg.Location,
		http:     &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "weather").Logger(),
	}
}

// Summary returns a short spoken weather line. Failures degrade to an
// apology instead of an error so the loop keeps its rhythm.
func (c *Client) Summary(ctx context.Context) string {
	target := fmt.Sprintf("%s/%s?format=%s", c.baseURL, url.PathEscape(c.location), url.QueryEscape("%l: %C, %t, wind %w"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return c.unavailable(err)
	}
	req.Header.Set("User-Agent", "curl/8.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return c.unavailable(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || resp.StatusCode != http.StatusOK {
		return c.unavailable(fmt.Errorf("status %d: %v", resp.StatusCode, err))
	}

	line := strings.TrimSpace(string(body))
	if line == "" {
		return c.unavailable(fmt.Errorf("empty response"))
	}
	return "Current weather: " + line
}

func (c *Client) unavailable(err error) string {
	c.logger.Warn().Err(err).Msg("Weather lookup failed")
	return "Sorry, I couldn't reach the weather service right now."
}
