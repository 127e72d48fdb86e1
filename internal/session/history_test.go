package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/arthur/internal/llm"
)

func TestHistory_BoundedRetention(t *testing.T) {
	h := NewHistory(3, 2)
	for i := 0; i < 5; i++ {
		h.Add(fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i))
	}
	assert.Equal(t, 3, h.Count())
}

func TestHistory_MessagesShape(t *testing.T) {
	h := NewHistory(10, 3)
	for i := 0; i < 5; i++ {
		h.Add(fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i))
	}

	messages := h.Messages("You are Arthur.", "what's next")

	// System prompt, three context turns as pairs, current user text.
	require.Len(t, messages, 1+3*2+1)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Equal(t, "You are Arthur.", messages[0].Content)
	assert.Equal(t, "question 2", messages[1].Content)
	assert.Equal(t, llm.RoleAssistant, messages[2].Role)
	assert.Equal(t, "what's next", messages[len(messages)-1].Content)
	assert.Equal(t, llm.RoleUser, messages[len(messages)-1].Role)
}

func TestHistory_MessagesWithEmptyHistory(t *testing.T) {
	h := NewHistory(10, 3)
	messages := h.Messages("You are Arthur.", "hello")
	require.Len(t, messages, 2)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Equal(t, llm.RoleUser, messages[1].Role)
}

func TestHistory_Clear(t *testing.T) {
	h := NewHistory(10, 3)
	h.Add("q", "a")
	h.Clear()
	assert.Equal(t, 0, h.Count())
}
