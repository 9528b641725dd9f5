// Package openai implements generation over the OpenAI chat completions API.
// Gemini is served by the same client through its OpenAI-compatible endpoint.
package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/internal/generation"
	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/config"
	goopenai "github.com/sashabaranov/go-openai"
)

// ChatCompleter is the subset of the go-openai client used here.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Client is a chat-completion Generator for one provider.
type Client struct {
	provider    generation.Provider
	api         ChatCompleter
	hasKey      bool
	model       string
	maxTokens   int
	temperature float32
}

// New builds a client for provider from cfg. A missing API key is not an
// error here; Generate reports it so the pipeline can fall back.
func New(provider generation.Provider, cfg config.ProviderConfig) *Client {
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return NewWithAPI(provider, cfg, goopenai.NewClientWithConfig(clientCfg))
}

// NewWithAPI builds a client over an existing completer.
func NewWithAPI(provider generation.Provider, cfg config.ProviderConfig, api ChatCompleter) *Client {
	return &Client{
		provider:    provider,
		api:         api,
		hasKey:      cfg.APIKey != "",
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

func (c *Client) Provider() generation.Provider {
	return c.provider
}

func (c *Client) Generate(ctx context.Context, req generation.Request) (generation.Response, error) {
	if !c.hasKey {
		return generation.Response{}, generation.Failure(c.provider, c.model,
			errors.New("no API key configured"), c.keyHint())
	}

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return generation.Response{}, generation.Failure(c.provider, c.model, err, c.hintFor(err))
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return generation.Response{}, generation.Failure(c.provider, c.model,
			errors.New("empty completion"), "the model returned no text; try a different model")
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return generation.Response{
		Text:     strings.TrimSpace(resp.Choices[0].Message.Content),
		Provider: c.provider,
		Model:    model,
	}, nil
}

func (c *Client) hintFor(err error) string {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return c.keyHint()
		case http.StatusTooManyRequests:
			return "the provider quota is exhausted or rate limited; wait, raise the quota, or switch generation.provider"
		case http.StatusNotFound:
			return "the model " + c.model + " is not available to this key; set a different model"
		}
	}
	return "the provider could not be reached; check network access or switch generation.provider"
}

func (c *Client) keyHint() string {
	switch c.provider {
	case generation.ProviderGemini:
		return "set GEMINI_API_KEY (or SQA_GEMINI_API_KEY) to a valid Gemini key"
	default:
		return "set OPENAI_API_KEY (or SQA_OPENAI_API_KEY) to a valid OpenAI key"
	}
}
