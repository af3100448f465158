// Package credentials resolves the AI API key from the settings store or the
// environment and keeps it sealed in memory between uses.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/awnumar/memguard"

	"github.com/aiscribe/scribe/internal/storage"
)

// SettingKey is the settings entry holding a user-entered key.
const SettingKey = "ai_api_key"

// EnvVars are consulted, in order, when no key is stored.
var EnvVars = []string{"SCRIBE_API_KEY", "APIKEY", "API_KEY"}

// ErrEmptyKey is returned by Set for a blank key.
var ErrEmptyKey = errors.New("credentials: empty key")

// Source names where the active key came from.
type Source string

const (
	SourceNone     Source = "none"
	SourceSettings Source = "settings"
	SourceEnv      Source = "env"
)

// Status describes the configured credential without revealing it.
type Status struct {
	Configured bool   `json:"configured"`
	Source     Source `json:"source"`
}

// SettingsStore is the persistence the service reads and writes the key
// through. *storage.Storage satisfies it; a missing entry must be reported
// as storage.ErrNotFound.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

// Service owns the API key. It implements ai.KeySource.
type Service struct {
	store     SettingsStore
	lookupEnv func(string) (string, bool)

	mu      sync.RWMutex
	enclave *memguard.Enclave
	source  Source
}

// Option configures a Service.
type Option func(*Service)

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(s *Service) { s.lookupEnv = fn }
}

// New returns a Service with no key loaded; call Load to resolve one.
func New(store SettingsStore, opts ...Option) *Service {
	s := &Service{store: store, lookupEnv: os.LookupEnv, source: SourceNone}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load resolves the key: the settings entry first, then EnvVars in order.
// Finding no key is not an error.
func (s *Service) Load(ctx context.Context) error {
	if s.store != nil {
		v, err := s.store.GetSetting(ctx, SettingKey)
		switch {
		case err == nil && strings.TrimSpace(v) != "":
			s.seal(strings.TrimSpace(v), SourceSettings)
			return nil
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("credentials: load: %w", err)
		}
	}
	for _, name := range EnvVars {
		if v, ok := s.lookupEnv(name); ok && strings.TrimSpace(v) != "" {
			s.seal(strings.TrimSpace(v), SourceEnv)
			slog.Info("api key loaded from environment", "var", name)
			return nil
		}
	}
	s.seal("", SourceNone)
	return nil
}

// Set stores key in the settings store and makes it the active key.
func (s *Service) Set(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	if s.store != nil {
		if err := s.store.SetSetting(ctx, SettingKey, key); err != nil {
			return fmt.Errorf("credentials: save: %w", err)
		}
	}
	s.seal(key, SourceSettings)
	return nil
}

// Clear removes the stored key. An environment key, if any, becomes active
// again.
func (s *Service) Clear(ctx context.Context) error {
	if s.store != nil {
		if err := s.store.DeleteSetting(ctx, SettingKey); err != nil {
			return fmt.Errorf("credentials: clear: %w", err)
		}
	}
	return s.Load(ctx)
}

// APIKey returns the active key. It implements ai.KeySource.
func (s *Service) APIKey() (string, bool) {
	s.mu.RLock()
	enclave := s.enclave
	s.mu.RUnlock()
	if enclave == nil {
		return "", false
	}

	buf, err := enclave.Open()
	if err != nil {
		slog.Error("api key enclave unreadable", "error", err)
		return "", false
	}
	defer buf.Destroy()
	return string(buf.Bytes()), true
}

// Status reports whether a key is configured and where it came from.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{Configured: s.enclave != nil, Source: s.source}
}

// seal moves key into a fresh enclave. The plaintext copy is wiped.
func (s *Service) seal(key string, source Source) {
	var enclave *memguard.Enclave
	if key != "" {
		enclave = memguard.NewEnclave([]byte(key))
	}
	s.mu.Lock()
	s.enclave = enclave
	s.source = source
	s.mu.Unlock()
}
