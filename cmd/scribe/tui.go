package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aiscribe/scribe/internal/tui"
)

func newTUICmd(f *rootFlags) *cobra.Command {
	var (
		exportDir string
		logFile   string
	)
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal whiteboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd)
			if err != nil {
				return err
			}

			// The alternate screen owns stdout, so logs go to a file.
			if logFile == "" {
				logFile = cfg.DBPath + ".log"
			}
			lf, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer lf.Close()
			initLogger(cfg.LogLevel, lf)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
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

			return tui.Run(ctx, tui.Deps{
				Store:       a.store,
				Canvas:      a.canvas,
				Assistant:   a.assistant,
				Credentials: a.creds,
				ExportDir:   exportDir,
			})
		},
	}
	cmd.Flags().StringVar(&exportDir, "export-dir", ".", "Directory exported maps are written to")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Log file (default <db-path>.log)")
	return cmd
}
