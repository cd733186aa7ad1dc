// Package openaicompat talks to any chat-completions endpoint speaking the
// OpenAI wire format, such as Groq and OpenRouter.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/deusflow/policydigest/internal/ai"
)

const (
	GroqBaseURL       = "https://api.groq.com/openai/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"

	GroqModel       = "llama-3.3-70b-versatile"
	OpenRouterModel = "meta-llama/llama-3.3-70b-instruct:free"
)

type Config struct {
	Name      string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	// Temperature 0 means the provider default.
	Temperature float32
	HTTPClient  *http.Client
}

type Client struct {
	name   string
	model  string
	cfg    Config
	client *openai.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.Name == "" {
		return nil, errors.New("openaicompat: provider name is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: API key is required", cfg.Name)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%s: model is required", cfg.Name)
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}

	return &Client{
		name:   cfg.Name,
		model:  cfg.Model,
		cfg:    cfg,
		client: openai.NewClientWithConfig(oc),
	}, nil
}

// NewGroq returns a client for Groq's hosted models.
func NewGroq(apiKey, model string) (*Client, error) {
	if model == "" {
		model = GroqModel
	}
	return New(Config{Name: "groq", APIKey: apiKey, BaseURL: GroqBaseURL, Model: model})
}

// NewOpenRouter returns a client for OpenRouter.
func NewOpenRouter(apiKey, model string) (*Client, error) {
	if model == "" {
		model = OpenRouterModel
	}
	return New(Config{Name: "openrouter", APIKey: apiKey, BaseURL: OpenRouterBaseURL, Model: model})
}

func (c *Client) Name() string { return c.name }

func (c *Client) Submit(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", c.classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices: %w", c.name, ai.ErrEmptyResponse)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) classifyError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w: %v", c.name, ai.ErrRateLimited, err)
	}
	return fmt.Errorf("%s: chat completion: %w", c.name, err)
}
