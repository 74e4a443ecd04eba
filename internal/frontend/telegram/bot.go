// Package telegram is a Telegram bot front for catalog queries.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/makaraya/movapp/internal/catalog"
	"github.com/makaraya/movapp/internal/favorites"
)

// sender is the part of the Bot API used to reply. *tgbotapi.BotAPI satisfies it.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot answers movie commands from Telegram users.
type Bot struct {
	client   *tgbotapi.BotAPI
	api      sender
	repo      catalog.Repository
	favorites *favorites.Service
	sessions  *sessionManager
	logger    *slog.Logger
}

// Option configures a Bot.
type Option func(*Bot)

// WithFavorites enables the /fav, /unfav and /favorites commands.
func WithFavorites(svc *favorites.Service) Option {
	return func(b *Bot) { b.favorites = svc }
}

// New creates a new Telegram Bot.
func New(token string, allowedUserIDs []int64, repo catalog.Repository, logger *slog.Logger, opts ...Option) (*Bot, error) {
	client, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	b := newBot(client, repo, allowedUserIDs, logger, opts...)
	b.client = client
	return b, nil
}

func newBot(api sender, repo catalog.Repository, allowedUserIDs []int64, logger *slog.Logger, opts ...Option) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bot{
		api:      api,
		repo:     repo,
		sessions: newSessionManager(allowedUserIDs),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start starts the long-polling loop. It blocks until ctx is canceled.
func (b *Bot) Start(ctx context.Context) error {
	if b.client == nil {
		return fmt.Errorf("telegram bot has no API client")
	}
	b.logger.Info("telegram bot started",
		slog.String("username", b.client.Self.UserName),
	)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.client.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.client.StopReceivingUpdates()
			b.logger.Info("telegram bot stopped")
			return nil

		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate dispatches an incoming Telegram update.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	}
}
