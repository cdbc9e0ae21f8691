// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gpt wraps language-model access so callers never care whether
// text comes from the OpenAI API or a locally hosted model.
package gpt

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/jinzhu/inflection"
	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkg/errors"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-3.5-turbo"

// ErrNoBackend is returned when neither an API key nor a local model is
// available.
var ErrNoBackend = errors.New("no API key and no local model configured")

// LocalModel performs text generation without the remote API, enabling
// offline operation with any inference stack the caller supplies.
type LocalModel func(ctx context.Context, prompt string, maxTokens int) (string, error)

// Usage accumulates token counts across calls. When the API does not
// report usage, counts are estimated from whitespace-separated words.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Config carries the client settings.
type Config struct {
	// APIKey authenticates against the API; empty falls back to the
	// OPENAI_API_KEY environment variable.
	APIKey string
	// BaseURL overrides the API endpoint, for proxies and compatible
	// local servers.
	BaseURL string
	// Model is the chat model identifier.
	Model string
	// Local, when set, handles generation instead of the remote API.
	Local LocalModel
}

// Client is a thread-safe language-model client with token accounting.
type Client struct {
	mu    sync.Mutex
	api   *openai.Client
	model string
	local LocalModel
	usage Usage
}

// New builds a Client from cfg. At least one backend (API key or local
// model) must be available.
func New(cfg Config) (*Client, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	c := &Client{model: cfg.Model, local: cfg.Local}
	if cfg.APIKey != "" {
		opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
		api := openai.NewClient(opts...)
		c.api = &api
	} else if cfg.Local == nil {
		return nil, ErrNoBackend
	}
	return c, nil
}

// Model returns the configured chat model.
func (c *Client) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// SetModel changes the chat model for subsequent calls.
func (c *Client) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if model != "" {
		c.model = model
	}
}

// Usage returns the accumulated token counts.
func (c *Client) Usage() Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// ResetUsage zeroes the accumulated token counts.
func (c *Client) ResetUsage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage = Usage{}
}

func (c *Client) addUsage(prompt, completion int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.usage.PromptTokens += prompt
	c.usage.CompletionTokens += completion
	c.usage.TotalTokens += prompt + completion
}

// estimateTokens approximates a token count by whitespace words.
func estimateTokens(s string) int {
	return len(strings.Fields(s))
}

// Generate produces text for prompt. A configured local model takes
// precedence over the remote API. maxTokens of 0 leaves the limit to the
// backend.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return c.complete(ctx, "", prompt, maxTokens)
}

// Ask sends a system prompt plus a user prompt and returns the
// completion. It satisfies the agents' chat interface.
func (c *Client) Ask(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, system, user, 0)
}

func (c *Client) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if c.local != nil {
		prompt := user
		if system != "" {
			prompt = system + "\n\n" + user
		}
		output, err := c.local(ctx, prompt, maxTokens)
		if err != nil {
			return "", err
		}
		c.addUsage(estimateTokens(prompt), estimateTokens(output))
		return output, nil
	}
	if c.api == nil {
		return "", ErrNoBackend
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(user))
	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(c.Model()),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", errors.Wrap(err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	output := strings.TrimSpace(resp.Choices[0].Message.Content)

	if resp.Usage.TotalTokens > 0 {
		c.addUsage(int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens))
	} else {
		c.addUsage(estimateTokens(system)+estimateTokens(user), estimateTokens(output))
	}
	return output, nil
}

// Pluralize returns the plural form of word.
func Pluralize(word string) string {
	return inflection.Plural(word)
}

// PluralizeN pluralizes word according to count, leaving it untouched
// when count is one.
func PluralizeN(word string, count int) string {
	if count == 1 {
		return word
	}
	return inflection.Plural(word)
}

// Singularize returns the singular form of word.
func Singularize(word string) string {
	return inflection.Singular(word)
}
