package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// openAIProvider implements Provider against any OpenAI-compatible chat
// completions endpoint. The API key is read from the KeySource on every
// call so that a key entered after start-up takes effect immediately.
type openAIProvider struct {
	keys         KeySource
	baseURL      string
	defaultModel string
	httpClient   *http.Client
}

func newOpenAIProvider(cfg ProviderConfig) (*openAIProvider, error) {
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &openAIProvider{
		keys:         cfg.Keys,
		baseURL:      cfg.OpenAIBaseURL,
		defaultModel: model,
		httpClient:   &http.Client{},
	}, nil
}

// Name implements Provider.
func (p *openAIProvider) Name() string { return "openai" }

// Close implements Provider.
func (p *openAIProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

func (p *openAIProvider) client() (*openai.Client, error) {
	key, ok := p.keys.APIKey()
	if !ok || key == "" {
		return nil, &Error{Kind: KindMissingCredential, Op: "openai"}
	}
	cfg := openai.DefaultConfig(key)
	if p.baseURL != "" {
		cfg.BaseURL = p.baseURL
	}
	cfg.HTTPClient = p.httpClient
	return openai.NewClientWithConfig(cfg), nil
}

// Generate implements Provider.
func (p *openAIProvider) Generate(ctx context.Context, messages []Message, opts GenerateOptions) (*Message, error) {
	client, err := p.client()
	if err != nil {
		return nil, err
	}

	req := openai.ChatCompletionRequest{
		Model:    p.resolveModel(opts.Model),
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		req.Temperature = float32(opts.Temperature)
	}
	if opts.TopP > 0 {
		req.TopP = float32(opts.TopP)
	}
	if opts.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusUnauthorized {
			return nil, &Error{Kind: KindMissingCredential, Op: "openai", Err: err}
		}
		return nil, &Error{Kind: KindTransport, Op: "openai chat", Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Kind: KindInvalidResponse, Op: "openai chat", Err: fmt.Errorf("no choices returned")}
	}

	return &Message{
		Role:    RoleAssistant,
		Content: resp.Choices[0].Message.Content,
	}, nil
}

func (p *openAIProvider) resolveModel(override string) string {
	if override != "" {
		return override
	}
	return p.defaultModel
}
