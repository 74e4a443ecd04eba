package main

import (
	"github.com/spf13/cobra"

	"github.com/makaraya/movapp/internal/config"
	mcpserver "github.com/makaraya/movapp/internal/mcp"
)

// newMCPServeCmd returns the hidden "mcp-serve" subcommand.
// It serves the catalog tools over stdin/stdout for MCP clients.
func newMCPServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "mcp-serve",
		Short:  "Start MCP server over stdio",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			// Logs go to stderr; stdout carries the protocol.
			logger := config.SetupLogger(cfg.App.LogLevel)
			repo, err := buildRepository(cfg, nil, logger)
			if err != nil {
				return err
			}

			srv := mcpserver.NewServer(repo, version, logger)
			return srv.ServeStdio(cmd.Context())
		},
	}
}
