package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const (
	defaultBedrockModel = "anthropic.claude-3-haiku-20240307-v1:0"
	anthropicVersion    = "bedrock-2023-05-31"
)

// invoker is the slice of the Bedrock runtime client the provider uses.
type invoker interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// ---------------------------------------------------------------------------
// BedrockProvider
// ---------------------------------------------------------------------------

// bedrockProvider implements Provider using InvokeModel with the Anthropic
// Messages API body format.
type bedrockProvider struct {
	client       invoker
	defaultModel string
	region       string
}

// newBedrockProvider initialises an AWS Bedrock provider from the default
// credential chain.
func newBedrockProvider(ctx context.Context, cfg ProviderConfig) (*bedrockProvider, error) {
	awsCfg, err := awscfg.LoadDefaultConfig(ctx,
		awscfg.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("ai/bedrock: load aws config: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultBedrockModel
	}

	return &bedrockProvider{
		client:       bedrockruntime.NewFromConfig(awsCfg),
		defaultModel: model,
		region:       cfg.Region,
	}, nil
}

// Name implements Provider.
func (b *bedrockProvider) Name() string { return "bedrock" }

// Close implements Provider.
func (b *bedrockProvider) Close() error { return nil }

// ---------------------------------------------------------------------------
// Anthropic Messages API types (used as InvokeModel body)
// ---------------------------------------------------------------------------

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float64            `json:"temperature,omitempty"`
	TopP             float64            `json:"top_p,omitempty"`
	System           string             `json:"system,omitempty"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
}

// ---------------------------------------------------------------------------
// Generate
// ---------------------------------------------------------------------------

// Generate implements Provider. In JSON mode the assistant turn is prefilled
// with "{" so the model continues an object; the brace is restored on the
// returned content.
func (b *bedrockProvider) Generate(ctx context.Context, messages []Message, opts GenerateOptions) (*Message, error) {
	model := b.resolveModel(opts.Model)
	req := b.buildAnthropicRequest(messages, opts)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("ai/bedrock: marshal request: %w", err)
	}

	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, wrap(KindTransport, "bedrock invoke", err)
	}

	msg, err := b.parseAnthropicResponse(resp.Body)
	if err != nil {
		return nil, err
	}
	if opts.JSON && !strings.HasPrefix(strings.TrimSpace(msg.Content), "{") {
		msg.Content = "{" + msg.Content
	}
	return msg, nil
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

func (b *bedrockProvider) resolveModel(override string) string {
	if override != "" {
		return override
	}
	return b.defaultModel
}

func (b *bedrockProvider) buildAnthropicRequest(messages []Message, opts GenerateOptions) anthropicRequest {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	req := anthropicRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
	}
	if opts.Temperature > 0 {
		req.Temperature = opts.Temperature
	}
	if opts.TopP > 0 {
		req.TopP = opts.TopP
	}

	// Split system messages from conversation messages.
	var sysParts []string
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			sysParts = append(sysParts, m.Content)
		case RoleUser, RoleAssistant:
			req.Messages = append(req.Messages, anthropicMessage{
				Role:    string(m.Role),
				Content: []anthropicContent{{Type: "text", Text: m.Content}},
			})
		}
	}
	if len(sysParts) > 0 {
		req.System = strings.Join(sysParts, "\n\n")
	}
	if opts.JSON {
		req.Messages = append(req.Messages, anthropicMessage{
			Role:    string(RoleAssistant),
			Content: []anthropicContent{{Type: "text", Text: "{"}},
		})
	}

	return req
}

func (b *bedrockProvider) parseAnthropicResponse(body []byte) (*Message, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Kind: KindInvalidResponse, Op: "bedrock decode", Err: err}
	}

	var textParts []string
	for _, block := range resp.Content {
		if block.Type == "text" {
			textParts = append(textParts, block.Text)
		}
	}
	return &Message{Role: RoleAssistant, Content: strings.Join(textParts, "")}, nil
}
