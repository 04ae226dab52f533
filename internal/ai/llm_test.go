package ai

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// newChatServer returns an httptest server that answers every chat
// completion with reply.
func newChatServer(t *testing.T, reply string, seen func(openai.ChatCompletionRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if seen != nil {
			seen(req)
		}
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Model: req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: "assistant", Content: reply},
				FinishReason: "stop",
			}},
		})
	}))
}

func TestCompleteSendsSystemAndUser(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := newChatServer(t, "  Sports \n", func(r openai.ChatCompletionRequest) { got = r })
	defer srv.Close()

	c, err := NewClient(Config{Provider: ProviderOpenAI, APIKey: "k", Endpoint: srv.URL, Model: "m"}, testLogger)
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "Sports", out)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, "m", got.Model)
}

func TestNewClientRequiresKeyForOpenAI(t *testing.T) {
	_, err := NewClient(Config{Provider: ProviderOpenAI}, testLogger)
	assert.Error(t, err)

	_, err = NewClient(Config{Provider: ProviderOllama}, testLogger)
	assert.NoError(t, err)

	_, err = NewClient(Config{Provider: "bard"}, testLogger)
	assert.Error(t, err)
}

func TestParseList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{`Here you go: ["quick", "fast"]`, []string{"quick", "fast"}},
		{"rapid, speedy,\nswift", []string{"rapid", "speedy", "swift"}},
		{"1. brisk\n2. hasty", []string{"brisk", "hasty"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseList(tt.in), tt.in)
	}
}
