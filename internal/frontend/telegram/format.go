package telegram

import (
	"fmt"
	"strings"

	"github.com/makaraya/movapp/internal/catalog"
	"github.com/makaraya/movapp/internal/catalog/normalize"
)

// maxListItems caps list replies well below Telegram's 4096 character limit.
const maxListItems = 10

// mdV2Replacer escapes special characters for Telegram MarkdownV2.
var mdV2Replacer = strings.NewReplacer(
	`\`, `\\`,
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// EscapeMdV2 escapes a string for safe use in Telegram MarkdownV2.
func EscapeMdV2(s string) string {
	return mdV2Replacer.Replace(s)
}

// FormatBold returns MarkdownV2 bold text.
func FormatBold(s string) string {
	return "*" + EscapeMdV2(s) + "*"
}

// FormatItalic returns MarkdownV2 italic text.
func FormatItalic(s string) string {
	return "_" + EscapeMdV2(s) + "_"
}

// FormatCode returns MarkdownV2 inline code. Only ` and \ need escaping inside.
func FormatCode(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "`" + strings.ReplaceAll(s, "`", "\\`") + "`"
}

// FormatMovieList renders a numbered list with a details command per movie.
func FormatMovieList(heading string, movies []normalize.Movie) string {
	if len(movies) == 0 {
		return FormatBold(heading) + "\n\n" + EscapeMdV2("No movies found.")
	}

	var sb strings.Builder
	sb.WriteString(FormatBold(heading))
	sb.WriteString("\n")
	for i, m := range movies {
		if i == maxListItems {
			fmt.Fprintf(&sb, "\n%s", FormatItalic(fmt.Sprintf("…and %d more", len(movies)-maxListItems)))
			break
		}
		fmt.Fprintf(&sb, "\n%s %s", EscapeMdV2(fmt.Sprintf("%d.", i+1)), FormatBold(deref(m.Title, "Untitled")))
		if m.ReleaseDate != nil {
			sb.WriteString(" " + EscapeMdV2("("+*m.ReleaseDate+")"))
		}
		if m.VoteCount > 0 {
			sb.WriteString(" " + EscapeMdV2(fmt.Sprintf("★ %.1f", m.VoteAverage)))
		}
		sb.WriteString("\n    " + FormatCode(fmt.Sprintf("/movie %d", m.ID)))
	}
	return sb.String()
}

// FormatMovie renders a single movie with overview and genres.
func FormatMovie(m normalize.Movie) string {
	var sb strings.Builder
	sb.WriteString(FormatBold(deref(m.Title, "Untitled")))
	if m.ReleaseDate != nil {
		sb.WriteString("\n" + FormatItalic("Released "+*m.ReleaseDate))
	}
	sb.WriteString("\n" + EscapeMdV2(fmt.Sprintf("★ %.1f/10 from %d votes", m.VoteAverage, m.VoteCount)))

	var genres []string
	for _, g := range m.Genres {
		if g.Name != "" {
			genres = append(genres, g.Name)
		}
	}
	if len(genres) > 0 {
		sb.WriteString("\n" + EscapeMdV2(strings.Join(genres, ", ")))
	}
	if m.Overview != nil && *m.Overview != "" {
		sb.WriteString("\n\n" + EscapeMdV2(*m.Overview))
	}
	return sb.String()
}

// FormatFailure turns a failed query into a user-facing MarkdownV2 message.
func FormatFailure(f *catalog.Failure) string {
	switch f.Kind {
	case catalog.KindInvalidInput:
		return EscapeMdV2("Invalid request: " + f.Message)
	case catalog.KindMalformedDate:
		return EscapeMdV2("The catalog sent data I could not read. Please try another query.")
	case catalog.KindStorage:
		return EscapeMdV2("Could not update your favorites right now. Please try again later.")
	default:
		return EscapeMdV2("The movie catalog is unreachable right now. Please try again later.")
	}
}

func deref(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
