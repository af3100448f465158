package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aiscribe/scribe/internal/config"
)

// initLogger configures the global slog default with JSON output.
func initLogger(level string, w io.Writer) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}
	h := slog.NewJSONHandler(w, opts)
	slog.SetDefault(slog.New(h))
}

// rootFlags are the persistent flags shared by every subcommand. A flag
// that was set explicitly wins over the environment and the config file.
type rootFlags struct {
	configPath string
	dbPath     string
	logLevel   string
	document   string
	aiProvider string
	aiRegion   string
	aiModel    string
	ollamaURL  string
}

func (f *rootFlags) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(f.configPath, os.LookupEnv)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("db-path") {
		cfg.DBPath = f.dbPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if flags.Changed("document") {
		cfg.Document = f.document
	}
	if flags.Changed("ai-provider") {
		cfg.AI.Provider = strings.ToLower(f.aiProvider)
	}
	if flags.Changed("ai-region") {
		cfg.AI.Region = f.aiRegion
	}
	if flags.Changed("ai-model") {
		cfg.AI.Model = f.aiModel
	}
	if flags.Changed("ollama-url") {
		cfg.AI.OllamaURL = f.ollamaURL
	}
	return cfg, cfg.Validate()
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&rootFlags{})
}

func buildRootCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "scribe",
		Short:        "AI-assisted mind-map whiteboard",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Open the terminal whiteboard
  scribe tui

  # Serve the HTTP API for a browser canvas
  scribe serve --port 8080

  # Store an API key for the openai provider
  scribe key set
`),
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "Path to YAML config file (default ./"+config.DefaultFile+" if present)")
	pf.StringVar(&f.dbPath, "db-path", "./scribe.db", "Path to SQLite database file")
	pf.StringVar(&f.logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	pf.StringVar(&f.document, "document", "ai-scribe-map", "Stored map entry name")
	pf.StringVar(&f.aiProvider, "ai-provider", "", "AI provider: openai, bedrock or ollama (empty = disabled)")
	pf.StringVar(&f.aiRegion, "ai-region", "us-east-1", "AWS region for Bedrock provider")
	pf.StringVar(&f.aiModel, "ai-model", "", "LLM model ID (provider-specific)")
	pf.StringVar(&f.ollamaURL, "ollama-url", "http://localhost:11434", "Ollama API URL")

	cmd.AddCommand(
		newServeCmd(f),
		newTUICmd(f),
		newExportCmd(f),
		newImportCmd(f),
		newResetCmd(f),
		newListCmd(f),
		newKeyCmd(f),
	)
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
