package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/aiscribe/scribe/internal/credentials"
)

func newKeyCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the stored AI API key",
	}

	var fromStdin bool
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Store an API key (interactive form unless --stdin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			var err error
			if fromStdin {
				key, err = readKeyLine(cmd)
			} else {
				key, err = promptKey()
			}
			if err != nil {
				return err
			}
			return offline(cmd, f, func(ctx context.Context, a *app) error {
				if err := a.creds.Set(ctx, key); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "API key saved")
				return nil
			})
		},
	}
	setCmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the key from the first line of stdin")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return offline(cmd, f, func(ctx context.Context, a *app) error {
				if err := a.creds.Clear(ctx); err != nil {
					return err
				}
				st := a.creds.Status()
				if st.Configured {
					fmt.Fprintf(cmd.OutOrStdout(), "stored key removed; a key is still provided by %s\n", st.Source)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "API key removed")
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether an API key is configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return offline(cmd, f, func(ctx context.Context, a *app) error {
				st := a.creds.Status()
				fmt.Fprintf(cmd.OutOrStdout(), "configured: %t\nsource: %s\n", st.Configured, st.Source)
				return nil
			})
		},
	}

	cmd.AddCommand(setCmd, clearCmd, statusCmd)
	return cmd
}

// promptKey shows the setup dialog.
func promptKey() (string, error) {
	var key string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("API key").
			Description("Stored in the local database and used by the openai provider.").
			EchoMode(huh.EchoModePassword).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return credentials.ErrEmptyKey
				}
				return nil
			}).
			Value(&key),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	return key, nil
}

func readKeyLine(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if in == nil {
		in = os.Stdin
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read key: %w", err)
	}
	return strings.TrimSpace(line), nil
}
