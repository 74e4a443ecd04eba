package main

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/makaraya/movapp/internal/config"
	"github.com/makaraya/movapp/internal/favorites"
	"github.com/makaraya/movapp/internal/frontend/telegram"
)

// newBotCmd returns the "bot" subcommand for running the Telegram bot.
func newBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Start the Telegram bot",
		Long:  "Start the MovApp Telegram bot answering /trending, /popular, /upcoming, /movie, /search\nand the /fav, /unfav and /favorites commands.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cfg.Telegram == nil {
				return errors.New(
					"telegram configuration is required: set telegram.bot_token in config or MOVAPP_TELEGRAM_BOT_TOKEN env var",
				)
			}

			logger := config.SetupLogger(cfg.App.LogLevel)
			repo, err := buildRepository(cfg, nil, logger)
			if err != nil {
				return err
			}

			favs := favorites.NewService(repo, favorites.NewMemoryStore(), logger)
			bot, err := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.AllowedUserIDs, repo, logger,
				telegram.WithFavorites(favs))
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger.Info("telegram bot starting")
			return bot.Start(ctx)
		},
	}
}
