package planner

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/tripmap/tripmap/internal/provider/resilience"
)

// Defaults for the DashScope OpenAI-compatible endpoint.
const (
	DefaultBaseURL     = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DefaultModel       = "qwen-turbo-2025-07-15"
	DefaultTemperature = 0.5

	providerName = "dashscope"
)

// ClientConfig holds configuration for the model client.
type ClientConfig struct {
	// APIKey authenticates with the provider. Empty disables generation.
	APIKey string

	// BaseURL of the OpenAI-compatible API (default: DefaultBaseURL).
	BaseURL string

	// Model name (default: DefaultModel).
	Model string

	// Temperature (default: DefaultTemperature).
	Temperature float32

	// HTTPClient sends requests, typically a *resilience.Client.
	HTTPClient openai.HTTPDoer

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client requests completions from an OpenAI-compatible chat API.
type Client struct {
	api         *openai.Client
	configured  bool
	model       string
	temperature float32
	logger      zerolog.Logger
}

// NewClient creates a new model client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = strings.TrimRight(baseURL, "/")
	if cfg.HTTPClient != nil {
		apiCfg.HTTPClient = cfg.HTTPClient
	}

	return &Client{
		api:         openai.NewClientWithConfig(apiCfg),
		configured:  cfg.APIKey != "",
		model:       model,
		temperature: temperature,
		logger:      cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return providerName
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.configured
}

// Complete sends the prompt's system and user turns and returns the first choice's
// content. A zero prompt temperature uses the client's.
func (c *Client) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if !c.configured {
		return "", ErrNotConfigured
	}

	temperature := prompt.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}
	system := prompt.System
	if system == "" {
		system = SystemMessage
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", c.mapError(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return "", &Error{
			Provider: providerName,
			Code:     "EMPTY_RESPONSE",
			Message:  "model returned no choices",
			Err:      ErrBadModelOutput,
		}
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("completion received")

	return resp.Choices[0].Message.Content, nil
}

func (c *Client) mapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if errors.Is(err, resilience.ErrCircuitOpen) {
		return &Error{Provider: providerName, Code: "CIRCUIT_OPEN", Message: "provider temporarily disabled", Err: ErrProviderUnavailable}
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	c.logger.Warn().Err(err).Int("status", status).Msg("completion request failed")

	switch {
	case status == http.StatusTooManyRequests:
		return &Error{Provider: providerName, Code: "RATE_LIMITED", Message: "rate limited by provider", Err: ErrRateLimitExceeded}
	case status >= 400 && status < 500:
		return &Error{Provider: providerName, Code: "REJECTED", Message: "provider rejected the request", Err: errors.Join(ErrUpstreamRejected, err)}
	default:
		return &Error{Provider: providerName, Code: "UNAVAILABLE", Message: "provider request failed", Err: errors.Join(ErrProviderUnavailable, err)}
	}
}
