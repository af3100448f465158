package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aiscribe/scribe/internal/api"
)

func newServeCmd(f *rootFlags) *cobra.Command {
	var (
		port      int
		staticDir string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, event stream and canvas socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			initLogger(cfg.LogLevel, os.Stdout)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					slog.Error("shutdown close error", "error", err)
				}
			}()
			a.enableAI(ctx)

			srv := api.NewServer(api.Deps{
				Store:       a.store,
				Canvas:      a.canvas,
				Assistant:   a.assistant,
				Credentials: a.creds,
				Metrics:     a.metrics,
				SSE:         a.sse,
				AIRate:      cfg.AI.RateLimit,
				AIBurst:     cfg.AI.RateBurst,
				StaticDir:   staticDir,
			})
			srv.RegisterRoutes()

			stats := a.store.Stats()
			banner := fmt.Sprintf(`
═══════════════════════════════
 AI SCRIBE — Mind-map whiteboard
 DB:    %s
 Port:  %d
 Theme: %s
 Nodes: %d
 AI:    %s
═══════════════════════════════`, cfg.DBPath, cfg.Port, stats.Theme, stats.TotalNodes, a.aiStatus())
			fmt.Println(banner)

			slog.Info("scribe starting",
				"db_path", cfg.DBPath,
				"port", cfg.Port,
				"nodes", stats.TotalNodes,
				"edges", stats.TotalEdges,
				"ai_provider", a.aiStatus(),
			)

			addr := fmt.Sprintf(":%d", cfg.Port)
			errc := make(chan error, 1)
			go func() {
				slog.Info("HTTP server listening", "addr", addr)
				if err := srv.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
					errc <- err
				}
				close(errc)
			}()

			// ---- Graceful shutdown -------------------------------------------
			select {
			case err := <-errc:
				return fmt.Errorf("HTTP server error: %w", err)
			case <-ctx.Done():
				slog.Info("shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("HTTP server shutdown error", "error", err)
			}
			slog.Info("scribe shutdown complete")
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP server port")
	cmd.Flags().StringVar(&staticDir, "static-dir", "", "Serve a built browser canvas from this directory")
	return cmd
}
