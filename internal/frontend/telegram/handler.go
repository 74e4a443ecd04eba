package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/makaraya/movapp/internal/catalog"
	"github.com/makaraya/movapp/internal/catalog/normalize"
)

const (
	unauthorizedMsg = "Sorry, you are not authorized to use this bot."
	busyMsg         = "Still working on your previous request, one moment."

	helpMsg = "Commands:\n" +
		"/trending - trending this week\n" +
		"/popular - popular right now\n" +
		"/upcoming [page] - coming soon\n" +
		"/movie <id> - movie details\n" +
		"/search <title> - search by title\n" +
		"/fav <id> - add to favorites\n" +
		"/unfav <id> - remove from favorites\n" +
		"/favorites - your favorites\n" +
		"Any other text is searched as a title."

	favoritesOffMsg = "Favorites are not enabled on this bot."
)

// reply is what the bot sends back for one message.
type reply struct {
	text     string // MarkdownV2
	photoURL string // optional poster sent before the text
}

// handleMessage processes an incoming text message.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID

	b.logger.Debug("received message",
		slog.Int64("user_id", userID),
	)

	if !b.sessions.isAllowed(userID) {
		b.sendText(chatID, unauthorizedMsg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if !b.sessions.begin(userID) {
		b.sendText(chatID, busyMsg)
		return
	}
	defer b.sessions.end(userID)

	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	b.api.Send(typing) //nolint:errcheck // best-effort typing indicator

	b.sendReply(chatID, b.respond(ctx, userID, text))
}

// respond maps one message onto a catalog query and renders the outcome.
func (b *Bot) respond(ctx context.Context, userID int64, text string) reply {
	cmd, args := parseCommand(text)
	switch cmd {
	case "start", "help":
		return reply{text: EscapeMdV2("Welcome to MovApp! " + helpMsg)}
	case "trending":
		return listReply("Trending this week", b.repo.Trending(ctx))
	case "popular":
		return listReply("Popular movies", b.repo.Popular(ctx))
	case "upcoming":
		page := 0
		if args != "" {
			n, err := strconv.Atoi(args)
			if err != nil {
				return reply{text: EscapeMdV2("Usage: /upcoming [page]")}
			}
			page = n
		}
		heading := "Upcoming movies"
		if page > 1 {
			heading = fmt.Sprintf("Upcoming movies, page %d", page)
		}
		return listReply(heading, b.repo.Upcoming(ctx, catalog.UpcomingQuery{Page: page}))
	case "movie":
		id, err := strconv.Atoi(args)
		if err != nil {
			return reply{text: EscapeMdV2("Usage: /movie <id>")}
		}
		out := b.repo.Details(ctx, catalog.DetailsQuery{MovieID: id})
		m, ok := out.Value()
		if !ok {
			return reply{text: FormatFailure(out.Failure())}
		}
		r := reply{text: FormatMovie(m)}
		if m.PosterURL != nil {
			r.photoURL = *m.PosterURL
		}
		return r
	case "fav", "unfav", "favorites":
		return b.favoriteCommand(ctx, userID, cmd, args)
	case "search":
		if args == "" {
			return reply{text: EscapeMdV2("Usage: /search <title>")}
		}
		return b.search(ctx, args)
	case "":
		return b.search(ctx, args)
	default:
		return reply{text: EscapeMdV2("Unknown command. " + helpMsg)}
	}
}

func (b *Bot) favoriteCommand(ctx context.Context, userID int64, cmd, args string) reply {
	if b.favorites == nil {
		return reply{text: EscapeMdV2(favoritesOffMsg)}
	}
	user := fmt.Sprintf("tg:%d", userID)
	if cmd == "favorites" {
		return listReply("Your favorites", b.favorites.List(ctx, user))
	}

	id, err := strconv.Atoi(args)
	if err != nil {
		return reply{text: EscapeMdV2(fmt.Sprintf("Usage: /%s <id>", cmd))}
	}
	if cmd == "fav" {
		out := b.favorites.Add(ctx, user, catalog.DetailsQuery{MovieID: id})
		m, ok := out.Value()
		if !ok {
			return reply{text: FormatFailure(out.Failure())}
		}
		title := fmt.Sprintf("#%d", m.ID)
		if m.Title != nil {
			title = *m.Title
		}
		return reply{text: EscapeMdV2(fmt.Sprintf("Added %s to your favorites.", title))}
	}

	out := b.favorites.Remove(ctx, user, id)
	removed, ok := out.Value()
	switch {
	case !ok:
		return reply{text: FormatFailure(out.Failure())}
	case !removed:
		return reply{text: EscapeMdV2(fmt.Sprintf("Movie %d is not in your favorites.", id))}
	default:
		return reply{text: EscapeMdV2(fmt.Sprintf("Removed movie %d from your favorites.", id))}
	}
}

func (b *Bot) search(ctx context.Context, term string) reply {
	return listReply(fmt.Sprintf("Results for %q", term), b.repo.Search(ctx, catalog.SearchQuery{Term: term}))
}

func listReply(heading string, out catalog.Outcome[[]normalize.Movie]) reply {
	movies, ok := out.Value()
	if !ok {
		return reply{text: FormatFailure(out.Failure())}
	}
	return reply{text: FormatMovieList(heading, movies)}
}

// parseCommand splits "/cmd@bot args" into ("cmd", "args"). Plain text
// yields an empty command and the whole text as args.
func parseCommand(text string) (string, string) {
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	head, args, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), strings.TrimSpace(args)
}

// sendReply sends the poster (if any) and then the MarkdownV2 text,
// falling back to plain text if Telegram rejects the markup.
func (b *Bot) sendReply(chatID int64, r reply) {
	if r.photoURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(r.photoURL))
		if _, err := b.api.Send(photo); err != nil {
			b.logger.Debug("failed to send poster",
				slog.String("url", r.photoURL),
				slog.String("error", err.Error()),
			)
		}
	}

	msg := tgbotapi.NewMessage(chatID, r.text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("failed to send markdown, retrying plain",
			slog.String("error", err.Error()),
		)
		b.sendText(chatID, r.text)
	}
}

// sendText sends a plain text message (no parse mode).
func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send message",
			slog.Int64("chat_id", chatID),
			slog.String("error", err.Error()),
		)
	}
}
