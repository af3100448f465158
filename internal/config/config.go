// Package config resolves runtime settings. Precedence, highest first:
// command-line flags (applied by the caller), SCRIBE_* environment variables,
// the YAML config file, built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no explicit config path is given and it exists
// in the working directory.
const DefaultFile = "scribe.yaml"

// Config is the full runtime configuration.
type Config struct {
	DBPath   string       `yaml:"db_path"`
	Port     int          `yaml:"port"`
	LogLevel string       `yaml:"log_level"`
	Document string       `yaml:"document"`
	AI       AIConfig     `yaml:"ai"`
	Canvas   CanvasConfig `yaml:"canvas"`
}

// AIConfig selects and tunes the model backend.
type AIConfig struct {
	Provider      string        `yaml:"provider"` // bedrock | ollama | openai | "" (disabled)
	Region        string        `yaml:"region"`
	Model         string        `yaml:"model"`
	OllamaURL     string        `yaml:"ollama_url"`
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	RateLimit     float64       `yaml:"rate_limit"` // calls per second
	RateBurst     int           `yaml:"rate_burst"`
	BreakerTrip   uint32        `yaml:"breaker_trip"`
	BreakerReset  time.Duration `yaml:"breaker_reset"`
}

// CanvasConfig holds host-independent canvas defaults.
type CanvasConfig struct {
	CenterX float64 `yaml:"center_x"`
	CenterY float64 `yaml:"center_y"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:   "./scribe.db",
		Port:     8080,
		LogLevel: "info",
		Document: "ai-scribe-map",
		AI: AIConfig{
			Provider:     "openai",
			Region:       "us-east-1",
			OllamaURL:    "http://localhost:11434",
			Timeout:      60 * time.Second,
			RateLimit:    0.5,
			RateBurst:    2,
			BreakerTrip:  3,
			BreakerReset: 30 * time.Second,
		},
		Canvas: CanvasConfig{CenterX: 400, CenterY: 300},
	}
}

// Load builds the configuration from defaults, the YAML file at path and the
// environment. An empty path reads DefaultFile if present. lookupEnv is
// usually os.LookupEnv.
func Load(path string, lookupEnv func(string) (string, bool)) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}

	if err := applyEnv(&cfg, lookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	switch c.AI.Provider {
	case "", "bedrock", "ollama", "openai":
	default:
		return fmt.Errorf("config: unknown ai provider %q", c.AI.Provider)
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("config: ai timeout must be positive")
	}
	if c.DBPath == "" {
		return fmt.Errorf("config: db_path is required")
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// ---------------------------------------------------------------------------
// Environment
// ---------------------------------------------------------------------------

type envBinding struct {
	key string
	set func(*Config, string) error
}

var envBindings = []envBinding{
	{"SCRIBE_DB_PATH", func(c *Config, v string) error { c.DBPath = v; return nil }},
	{"SCRIBE_PORT", func(c *Config, v string) (err error) { c.Port, err = strconv.Atoi(v); return }},
	{"SCRIBE_LOG_LEVEL", func(c *Config, v string) error { c.LogLevel = v; return nil }},
	{"SCRIBE_DOCUMENT", func(c *Config, v string) error { c.Document = v; return nil }},
	{"SCRIBE_AI_PROVIDER", func(c *Config, v string) error { c.AI.Provider = strings.ToLower(v); return nil }},
	{"SCRIBE_AI_REGION", func(c *Config, v string) error { c.AI.Region = v; return nil }},
	{"SCRIBE_AI_MODEL", func(c *Config, v string) error { c.AI.Model = v; return nil }},
	{"SCRIBE_OLLAMA_URL", func(c *Config, v string) error { c.AI.OllamaURL = v; return nil }},
	{"SCRIBE_OPENAI_BASE_URL", func(c *Config, v string) error { c.AI.OpenAIBaseURL = v; return nil }},
	{"SCRIBE_AI_TIMEOUT", func(c *Config, v string) (err error) { c.AI.Timeout, err = time.ParseDuration(v); return }},
	{"SCRIBE_AI_RATE_LIMIT", func(c *Config, v string) (err error) { c.AI.RateLimit, err = strconv.ParseFloat(v, 64); return }},
}

func applyEnv(c *Config, lookupEnv func(string) (string, bool)) error {
	if lookupEnv == nil {
		return nil
	}
	for _, b := range envBindings {
		v, ok := lookupEnv(b.key)
		if !ok || v == "" {
			continue
		}
		if err := b.set(c, v); err != nil {
			return fmt.Errorf("config: %s=%q: %w", b.key, v, err)
		}
	}
	return nil
}
