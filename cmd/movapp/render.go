package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/makaraya/movapp/internal/catalog/normalize"
)

const overviewWidth = 72

func renderMovieList(heading string, movies []normalize.Movie) string {
	var sb strings.Builder
	sb.WriteString(styleHeader.Render(heading))
	sb.WriteString("\n")
	if len(movies) == 0 {
		sb.WriteString(styleDim.Render("No movies found."))
		return sb.String()
	}

	label := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	for i, m := range movies {
		if i > 0 {
			sb.WriteString("\n")
		}
		line := fmt.Sprintf("%s %s",
			label.Render(fmt.Sprintf("%2d.", i+1)),
			styleTitle.Render(deref(m.Title, "Untitled")),
		)
		if m.ReleaseDate != nil {
			line += "  " + styleDim.Render(*m.ReleaseDate)
		}
		line += "  " + renderRating(m)
		line += "  " + label.Render(fmt.Sprintf("#%d", m.ID))
		sb.WriteString(line)
	}
	return sb.String()
}

func renderMovie(m normalize.Movie) string {
	var sb strings.Builder
	sb.WriteString(styleHeader.Render(deref(m.Title, "Untitled")))
	sb.WriteString("\n")

	label := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	row := func(name, value string) {
		fmt.Fprintf(&sb, "%s %s\n", label.Render(fmt.Sprintf("%-9s", name)), value)
	}

	row("ID", fmt.Sprintf("%d", m.ID))
	if m.ReleaseDate != nil {
		row("Released", *m.ReleaseDate)
	}
	row("Rating", renderRating(m)+styleDim.Render(fmt.Sprintf(" (%d votes)", m.VoteCount)))

	var genres []string
	for _, g := range m.Genres {
		if g.Name != "" {
			genres = append(genres, g.Name)
		}
	}
	if len(genres) > 0 {
		row("Genres", strings.Join(genres, ", "))
	}
	if m.PosterURL != nil {
		row("Poster", styleInfo.Render(*m.PosterURL))
	}
	if m.Overview != nil && *m.Overview != "" {
		sb.WriteString("\n")
		sb.WriteString(lipgloss.NewStyle().Width(overviewWidth).Render(*m.Overview))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderRating(m normalize.Movie) string {
	if m.VoteCount == 0 {
		return styleDim.Render("★ n/a")
	}
	style := lipgloss.NewStyle().Foreground(ratingColor(m.VoteAverage))
	return style.Render(fmt.Sprintf("★ %.1f", m.VoteAverage))
}

func ratingColor(avg float64) lipgloss.Color {
	switch {
	case avg >= 7.5:
		return lipgloss.Color("10") // green
	case avg >= 6:
		return lipgloss.Color("11") // yellow
	case avg > 0:
		return lipgloss.Color("9") // red
	default:
		return lipgloss.Color("8") // gray
	}
}

func deref(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
