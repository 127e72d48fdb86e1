package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaProvider_Chat(t *testing.T) {
	var gotReq ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: Message{Role: RoleAssistant, Content: "  It's sunny today.  "},
			Done:    true,
		})
	}))
	defer server.Close()

	p := NewOllamaProvider(zerolog.Nop(), OllamaConfig{BaseURL: server.URL, Model: "llama3.2:3b"})

	reply, err := p.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "You are Arthur."},
		{Role: RoleUser, Content: "what's the weather"},
	})
	require.NoError(t, err)
	assert.Equal(t, "It's sunny today.", reply)

	assert.Equal(t, "llama3.2:3b", gotReq.Model)
	assert.False(t, gotReq.Stream)
	assert.Equal(t, 150, gotReq.Options.NumPredict)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, RoleSystem, gotReq.Messages[0].Role)
}

func TestOllamaProvider_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	p := NewOllamaProvider(zerolog.Nop(), OllamaConfig{BaseURL: server.URL})
	_, err := p.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	assert.Error(t, err)
}

func TestOllamaProvider_Unreachable(t *testing.T) {
	p := NewOllamaProvider(zerolog.Nop(), OllamaConfig{BaseURL: "http://127.0.0.1:1"})
	err := p.Health(context.Background())
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

type stubProvider struct {
	name  string
	reply string
	err   error
	calls int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Chat(_ context.Context, _ []Message) (string, error) {
	p.calls++
	return p.reply, p.err
}

func (p *stubProvider) Health(_ context.Context) error { return p.err }

func TestChain_UsesPrimaryWhileHealthy(t *testing.T) {
	primary := &stubProvider{name: "primary", reply: "from primary"}
	fallback := &stubProvider{name: "fallback", reply: "from fallback"}
	c := NewChain(zerolog.Nop(), primary, fallback)

	reply, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "from primary", reply)
	assert.Equal(t, 0, fallback.calls)
}

func TestChain_FailoverSticks(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("connection refused")}
	fallback := &stubProvider{name: "fallback", reply: "from fallback"}
	c := NewChain(zerolog.Nop(), primary, fallback)

	reply, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "from fallback", reply)
	assert.Equal(t, "fallback", c.Name())

	// The dead primary is not probed again on the next exchange.
	_, err = c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "again"}})
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 2, fallback.calls)
}

func TestChain_AllProvidersDown(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("down")}
	fallback := &stubProvider{name: "fallback", err: errors.New("also down")}
	c := NewChain(zerolog.Nop(), primary, fallback)

	_, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	assert.Error(t, err)
}
