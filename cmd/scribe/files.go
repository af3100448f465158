package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aiscribe/scribe/internal/mapfile"
)

// offline runs fn against the stored map with logging sent to stderr.
func offline(cmd *cobra.Command, f *rootFlags, fn func(ctx context.Context, a *app) error) error {
	cfg, err := f.resolve(cmd)
	if err != nil {
		return err
	}
	initLogger(cfg.LogLevel, os.Stderr)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newExportCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export [dir]",
		Short: "Write the stored map to mindmap-<millis>.json",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return offline(cmd, f, func(ctx context.Context, a *app) error {
				path, err := mapfile.WriteFile(dir, a.store.Snapshot(), time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
}

func newImportCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the stored map with an exported JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := mapfile.ReadFile(args[0])
			if err != nil {
				return err
			}
			return offline(cmd, f, func(ctx context.Context, a *app) error {
				a.store.Replace(doc)
				st := a.store.Stats()
				fmt.Fprintf(cmd.OutOrStdout(), "imported %q: %d nodes, %d edges\n", st.Theme, st.TotalNodes, st.TotalEdges)
				return nil
			})
		},
	}
}

func newResetCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the map and delete its stored entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return offline(cmd, f, func(ctx context.Context, a *app) error {
				a.store.Reset()
				fmt.Fprintln(cmd.OutOrStdout(), "map cleared")
				return nil
			})
		},
	}
}

func newListCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored maps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return offline(cmd, f, func(ctx context.Context, a *app) error {
				docs, err := a.storage.ListDocuments(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tNODES\tEDGES\tUPDATED")
				for _, d := range docs {
					marker := ""
					if d.Name == a.persister.Name() {
						marker = " *"
					}
					fmt.Fprintf(tw, "%s%s\t%d\t%d\t%s\n", d.Name, marker, d.NodeCount, d.EdgeCount, d.UpdatedAt.Local().Format(time.DateTime))
				}
				return tw.Flush()
			})
		},
	}
}
