package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/makaraya/movapp/internal/api"
	"github.com/makaraya/movapp/internal/config"
	"github.com/makaraya/movapp/internal/favorites"
	"github.com/makaraya/movapp/internal/metrics"
)

// newServeCmd returns the "serve" subcommand running the HTTP JSON API.
func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog as a JSON HTTP API",
		Long: "Start an HTTP server exposing trending, popular, upcoming, details and search\n" +
			"under /v1, per-user favorites (X-User-ID header) under /v1/favorites,\n" +
			"plus /health and Prometheus metrics on /metrics.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			logger := config.SetupLogger(cfg.App.LogLevel)
			m := metrics.New()
			repo, err := buildRepository(cfg, m, logger)
			if err != nil {
				return err
			}

			srv := api.NewServer(api.Config{
				Port:      cfg.Server.Port,
				RateLimit: cfg.Server.ClientRateLimit(),
				RateBurst: cfg.Server.RateBurst,
			}, repo, m, logger,
				api.WithFavorites(favorites.NewService(repo, favorites.NewMemoryStore(), logger)))

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return srv.Start(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}
