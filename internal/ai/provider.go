package ai

import (
	"context"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Provider kinds
// ---------------------------------------------------------------------------

// ProviderKind identifies a supported AI backend.
type ProviderKind string

const (
	ProviderBedrock ProviderKind = "bedrock"
	ProviderOllama  ProviderKind = "ollama"
	ProviderOpenAI  ProviderKind = "openai"
)

// ---------------------------------------------------------------------------
// Message types
// ---------------------------------------------------------------------------

// Role represents a conversation participant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ---------------------------------------------------------------------------
// Completion options
// ---------------------------------------------------------------------------

// GenerateOptions configures a single completion request.
type GenerateOptions struct {
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`

	// JSON asks the backend to constrain output to a JSON object where it
	// supports doing so.
	JSON bool `json:"json,omitempty"`
}

// DefaultGenerateOptions returns sensible defaults.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		MaxTokens:   2048,
		Temperature: 0.4,
		TopP:        0.9,
		JSON:        true,
	}
}

// ---------------------------------------------------------------------------
// Provider interface
// ---------------------------------------------------------------------------

// Provider is the contract every AI backend must satisfy.
type Provider interface {
	// Generate produces a single, complete assistant response.
	Generate(ctx context.Context, messages []Message, opts GenerateOptions) (*Message, error)

	// Name returns a human-readable provider name, e.g. "bedrock" or "ollama".
	Name() string

	// Close releases any resources held by the provider (e.g. HTTP clients).
	Close() error
}

// KeySource supplies the API credential for providers that need one. The
// boolean is false when no credential is configured.
type KeySource interface {
	APIKey() (string, bool)
}

// ---------------------------------------------------------------------------
// Provider configuration
// ---------------------------------------------------------------------------

// ProviderConfig holds all configuration accepted by NewProvider.
type ProviderConfig struct {
	Kind   ProviderKind `json:"kind"`
	Region string       `json:"region,omitempty"` // AWS region for Bedrock
	Model  string       `json:"model,omitempty"`  // default model ID

	// Ollama-specific
	OllamaURL string `json:"ollama_url,omitempty"` // e.g. "http://localhost:11434"

	// OpenAI-compatible endpoint; empty means api.openai.com.
	OpenAIBaseURL string `json:"openai_base_url,omitempty"`

	// Keys resolves the API credential at call time (openai only).
	Keys KeySource `json:"-"`
}

// Validate checks that required fields are set.
func (c ProviderConfig) Validate() error {
	switch c.Kind {
	case ProviderBedrock:
		if c.Region == "" {
			return fmt.Errorf("ai: bedrock provider requires region")
		}
	case ProviderOllama:
		if c.OllamaURL == "" {
			return fmt.Errorf("ai: ollama provider requires ollama_url")
		}
	case ProviderOpenAI:
		if c.Keys == nil {
			return fmt.Errorf("ai: openai provider requires a key source")
		}
	default:
		return fmt.Errorf("ai: unknown provider kind %q", c.Kind)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Factory
// ---------------------------------------------------------------------------

// NewProvider creates a concrete Provider from configuration.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Kind {
	case ProviderBedrock:
		return newBedrockProvider(ctx, cfg)
	case ProviderOllama:
		return newOllamaProvider(cfg)
	case ProviderOpenAI:
		return newOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("ai: unsupported provider %q", cfg.Kind)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// BuildConversation is a convenience that prepends a system prompt to a
// sequence of user/assistant turns.
func BuildConversation(system string, turns ...Message) []Message {
	msgs := make([]Message, 0, 1+len(turns))
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: strings.TrimSpace(system)})
	}
	msgs = append(msgs, turns...)
	return msgs
}
