// Package ai wraps chat-completion backends used for synonym lookup and
// headline classification.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Provider specifies which LLM backend to use.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// Config configures the LLM client.
type Config struct {
	Provider    Provider
	Endpoint    string // e.g. "http://localhost:11434" for Ollama
	Model       string // e.g. "llama3", "gpt-4o-mini"
	APIKey      string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// Client talks to an OpenAI-compatible chat completion API. Ollama is
// reached through its /v1 compatibility endpoint.
type Client struct {
	cfg    Config
	client *openai.Client
	logger *slog.Logger
}

// NewClient creates a new LLM client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	var clientConfig openai.ClientConfig

	switch cfg.Provider {
	case ProviderOpenAI, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		clientConfig = openai.DefaultConfig(cfg.APIKey)
		if cfg.Endpoint != "" {
			clientConfig.BaseURL = cfg.Endpoint
		}
	case ProviderOllama:
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "http://localhost:11434"
		}
		endpoint = strings.TrimRight(endpoint, "/")
		if !strings.HasSuffix(endpoint, "/v1") {
			endpoint += "/v1"
		}
		// Ollama ignores the key but the SDK always sends one.
		clientConfig = openai.DefaultConfig("ollama")
		clientConfig.BaseURL = endpoint
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 256
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger.With("component", "llm_client", "provider", string(cfg.Provider)),
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// Complete sends a system and user prompt and returns the trimmed answer.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%s request: %w", c.cfg.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in %s response", c.cfg.Provider)
	}

	c.logger.Debug("completion", "model", c.cfg.Model, "tokens", resp.Usage.TotalTokens, "duration", time.Since(start))
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ParseList extracts a list of strings from an LLM answer. A JSON array
// anywhere in the text is preferred; otherwise the answer is split on
// commas and newlines.
func ParseList(s string) []string {
	if arr := extractJSONArray(s); arr != "" {
		var out []string
		if err := json.Unmarshal([]byte(arr), &out); err == nil {
			return cleanList(out)
		}
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' })
	return cleanList(parts)
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		it = strings.TrimLeft(it, "-*0123456789. ")
		it = strings.Trim(it, `"'`)
		if it != "" {
			out = append(out, it)
		}
	}
	return out
}

// extractJSONArray tries to find a JSON array in the LLM response.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
