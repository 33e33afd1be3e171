package openai

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	domai "github.com/bryanwahyu/requirement-analyzer/internal/domain/ai"
)

const (
	defaultBaseURL   = "https://openrouter.ai/api/v1"
	defaultMaxTokens = 6000
)

// Config for an OpenAI-compatible provider (OpenRouter by default).
type Config struct {
	APIKey      string
	BaseURL     string
	Referer     string // sent as HTTP-Referer, used by OpenRouter for attribution
	Title       string // sent as X-Title
	// 0 is kept and sent for deterministic sampling
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

type Client struct {
	api         *openai.Client
	temperature float32
	maxTokens   int
}

func NewClient(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = defaultBaseURL
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	headers := http.Header{}
	if cfg.Referer != "" {
		headers.Set("HTTP-Referer", cfg.Referer)
	}
	if cfg.Title != "" {
		headers.Set("X-Title", cfg.Title)
	}
	oc.HTTPClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &headerTransport{base: http.DefaultTransport, headers: headers},
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		// go-openai drops a zero temperature (omitempty) and the provider
		// default applies instead
		temperature = math.SmallestNonzeroFloat32
	}
	return &Client{
		api:         openai.NewClientWithConfig(oc),
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Complete implements ai.Client. Non-2xx responses come back as *ai.ProviderError,
// which matches ai.ErrRateLimited (429) and ai.ErrInsufficientCredits (402).
func (c *Client) Complete(ctx context.Context, model string, messages []domai.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: c.temperature,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if isReasoningModel(model) {
		req.MaxCompletionTokens = c.maxTokens
	} else {
		req.MaxTokens = c.maxTokens
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", providerError(model, err)
	}
	if len(resp.Choices) == 0 {
		return "", &domai.ProviderError{Model: model, StatusCode: http.StatusOK, Err: errors.New("no choices returned")}
	}
	return resp.Choices[0].Message.Content, nil
}

func providerError(model string, err error) error {
	pe := &domai.ProviderError{Model: model, Err: err}
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		pe.StatusCode = apiErr.HTTPStatusCode
		pe.Body = apiErr.Message
	case errors.As(err, &reqErr):
		pe.StatusCode = reqErr.HTTPStatusCode
		pe.Body = string(reqErr.Body)
	}
	return pe
}

func isReasoningModel(model string) bool {
	name := model
	if i := strings.LastIndex(model, "/"); i >= 0 {
		name = model[i+1:]
	}
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

type headerTransport struct {
	base    http.RoundTripper
	headers http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) == 0 {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	for k, vs := range t.headers {
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}
	return t.base.RoundTrip(r)
}

