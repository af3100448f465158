package ai

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// TransportConfig configures a Transport.
type TransportConfig struct {
	Options GenerateOptions

	// Breaker settings. The breaker opens after FailureThreshold consecutive
	// transport failures and half-opens again after OpenTimeout.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// DefaultTransportConfig returns the settings used by the server.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		Options:          DefaultGenerateOptions(),
		FailureThreshold: 3,
		OpenTimeout:      30 * time.Second,
	}
}

// Transport turns a Request into a validated Result by way of a Provider.
// Calls are guarded by a circuit breaker; only transport failures count
// towards tripping it.
type Transport struct {
	provider Provider
	opts     GenerateOptions
	breaker  *gobreaker.CircuitBreaker
}

// NewTransport wraps provider.
func NewTransport(provider Provider, cfg TransportConfig) *Transport {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 3
	}
	return &Transport{
		provider: provider,
		opts:     cfg.Options,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "ai-" + provider.Name(),
			MaxRequests: 1,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= threshold
			},
			IsSuccessful: func(err error) bool {
				return err == nil || KindOf(err) != KindTransport
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("ai circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// Provider returns the name of the backing provider.
func (t *Transport) Provider() string { return t.provider.Name() }

// Invoke sends req to the model and parses its answer.
func (t *Transport) Invoke(ctx context.Context, req Request) (*Result, error) {
	out, err := t.breaker.Execute(func() (interface{}, error) {
		msg, err := t.provider.Generate(ctx, ActionPrompt(req), t.opts)
		if err != nil {
			return nil, wrap(KindTransport, t.provider.Name(), err)
		}
		return msg, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &Error{Kind: KindCircuitOpen, Op: t.provider.Name(), Err: err}
	}
	if err != nil {
		return nil, err
	}
	return ParseResult(out.(*Message).Content)
}

// Close releases the provider.
func (t *Transport) Close() error {
	return t.provider.Close()
}
