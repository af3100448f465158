package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aiscribe/scribe/internal/ai"
	"github.com/aiscribe/scribe/internal/api"
	"github.com/aiscribe/scribe/internal/assistant"
	"github.com/aiscribe/scribe/internal/canvas"
	"github.com/aiscribe/scribe/internal/config"
	"github.com/aiscribe/scribe/internal/credentials"
	"github.com/aiscribe/scribe/internal/graph"
	"github.com/aiscribe/scribe/internal/metrics"
	"github.com/aiscribe/scribe/internal/storage"
)

// app is the wired set of components shared by the subcommands.
type app struct {
	cfg       config.Config
	storage   *storage.Storage
	store     *graph.Store
	persister *storage.Persister
	creds     *credentials.Service
	metrics   *metrics.Collector
	sse       *api.SSEBroadcaster
	transport *ai.Transport
	assistant *assistant.Assistant
	canvas    *canvas.Controller
}

// openApp loads the stored map and its credential. The AI stack is wired
// separately by enableAI because the offline commands never need it.
func openApp(ctx context.Context, cfg config.Config) (*app, error) {
	st, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise storage: %w", err)
	}

	a := &app{
		cfg:       cfg,
		storage:   st,
		store:     graph.NewStore(),
		persister: storage.NewPersister(st, cfg.Document),
		metrics:   metrics.New(),
	}

	// Load before subscribing so the initial Replace is not written back.
	a.store.Replace(a.persister.Load(ctx))
	a.persister.OnError = a.metrics.PersistFailed
	a.store.OnChange(a.persister.Listener())
	a.store.OnChange(a.metrics.Listener())

	a.creds = credentials.New(st)
	if err := a.creds.Load(ctx); err != nil {
		slog.Warn("credential load failed", "error", err)
	}

	a.canvas = canvas.New(a.store, graph.Position{X: cfg.Canvas.CenterX, Y: cfg.Canvas.CenterY})
	return a, nil
}

// enableAI builds the provider, transport and assistant. A provider that
// cannot be created leaves AI disabled rather than failing startup.
func (a *app) enableAI(ctx context.Context) {
	a.sse = api.NewSSEBroadcaster()
	if a.cfg.AI.Provider == "" {
		slog.Info("AI disabled: no provider configured")
		return
	}

	provider, err := ai.NewProvider(ctx, ai.ProviderConfig{
		Kind:          ai.ProviderKind(a.cfg.AI.Provider),
		Region:        a.cfg.AI.Region,
		Model:         a.cfg.AI.Model,
		OllamaURL:     a.cfg.AI.OllamaURL,
		OpenAIBaseURL: a.cfg.AI.OpenAIBaseURL,
		Keys:          a.creds,
	})
	if err != nil {
		slog.Warn("AI provider init failed, AI features disabled", "error", err)
		return
	}
	slog.Info("AI provider ready", "provider", provider.Name())

	tc := ai.DefaultTransportConfig()
	tc.FailureThreshold = a.cfg.AI.BreakerTrip
	tc.OpenTimeout = a.cfg.AI.BreakerReset
	a.transport = ai.NewTransport(provider, tc)

	a.assistant = assistant.New(a.store, a.transport, assistant.Options{
		Timeout:     a.cfg.AI.Timeout,
		Observer:    a.metrics,
		Broadcaster: api.NewAssistantBroadcaster(a.sse),
	})
}

func (a *app) aiStatus() string {
	if a.transport == nil {
		return "disabled"
	}
	return a.transport.Provider()
}

func (a *app) Close() error {
	var errs []error
	if a.transport != nil {
		errs = append(errs, a.transport.Close())
	}
	errs = append(errs, a.storage.Close())
	return errors.Join(errs...)
}
