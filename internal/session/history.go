package session

import (
	"sync"
	"time"

	"github.com/normanking/arthur/internal/llm"
)

// Turn is one completed user/assistant exchange.
type Turn struct {
	UserText      string
	AssistantText string
	At            time.Time
}

// History keeps a bounded record of backend exchanges. Locally handled
// commands never enter it; the backend only sees real conversation.
type History struct {
	mu           sync.Mutex
	turns        []Turn
	maxTurns     int
	contextTurns int
}

// NewHistory creates a History keeping at most maxTurns exchanges and
// sending the last contextTurns of them to the backend.
func NewHistory(maxTurns, contextTurns int) *History {
	if maxTurns <= 0 {
		maxTurns = 10
	}
	if contextTurns <= 0 {
		contextTurns = 3
	}
	return &History{maxTurns: maxTurns, contextTurns: contextTurns}
}

// Add records a completed exchange, trimming the oldest beyond the cap.
func (h *History) Add(userText, assistantText string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, Turn{
		UserText:      userText,
		AssistantText: assistantText,
		At:            time.Now(),
	})
	if len(h.turns) > h.maxTurns {
		h.turns = h.turns[len(h.turns)-h.maxTurns:]
	}
}

// Messages builds the backend request: system prompt, the most recent
// context turns, then the current user text.
func (h *History) Messages(systemPrompt, userText string) []llm.Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := len(h.turns) - h.contextTurns
	if start < 0 {
		start = 0
	}
	recent := h.turns[start:]

	messages := make([]llm.Message, 0, 2+2*len(recent))
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	for _, t := range recent {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: t.UserText})
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: t.AssistantText})
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: userText})
}

// Count returns the number of stored exchanges.
func (h *History) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// Clear drops all stored exchanges.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}
