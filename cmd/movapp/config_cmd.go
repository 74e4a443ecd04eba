package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/makaraya/movapp/internal/config"
)

// newConfigCmd returns the "config" subcommand group for configuration management.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

// newConfigValidateCmd returns the "config validate" subcommand that checks config file validity.
// With --check it also pings the catalog with the configured credentials.
func newConfigValidateCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, styleSuccess.Render("✓ Configuration is valid"))
			fmt.Fprintln(out, styleDim.Render(fmt.Sprintf("  tmdb: %s (auth: %s, language: %s)",
				sanitizeURL(cfg.TMDb.BaseURL), cfg.TMDb.Auth, cfg.TMDb.Language)))
			if cfg.Telegram != nil {
				fmt.Fprintln(out, styleDim.Render("  telegram: configured"))
			}
			if !check {
				return nil
			}

			client, err := buildClient(cfg, config.SetupLogger(cfg.App.LogLevel))
			if err != nil {
				return err
			}
			latency, err := client.Ping(cmd.Context())
			if err != nil {
				fmt.Fprintln(out, styleError.Render("✗ TMDb unreachable"))
				return err
			}
			fmt.Fprintln(out, styleSuccess.Render(fmt.Sprintf("✓ TMDb reachable (%s)",
				latency.Round(time.Millisecond))))
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "also verify the TMDb credentials with a live request")
	return cmd
}
