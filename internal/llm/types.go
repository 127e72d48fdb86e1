// Package llm provides the conversational backend. A provider receives
// the persona prompt, recent history, and the user's words, and returns
// the assistant's reply.
package llm

import (
	"context"
	"errors"
)

var ErrBackendUnavailable = errors.New("conversation backend unavailable")

// Message roles follow the chat-completion convention.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider answers one exchange. messages carries the system prompt
// first, then bounded history, then the current user turn.
type Provider interface {
	Name() string
	Chat(ctx context.Context, messages []Message) (string, error)

	// Health reports reachability. Checked at startup so a dead backend
	// fails fast, and by the fallback chain before switching providers.
	Health(ctx context.Context) error
}
