package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/makaraya/movapp/internal/catalog"
	"github.com/makaraya/movapp/internal/catalog/normalize"
	"github.com/makaraya/movapp/internal/config"
)

// queryResult is a finished query ready for display.
type queryResult struct {
	text    string           // styled terminal output
	payload any              // value printed with --json
	failure *catalog.Failure // nil on success
}

// queryFunc runs one repository query.
type queryFunc func(ctx context.Context, repo catalog.Repository) queryResult

func newTrendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trending",
		Short: "List this week's trending movies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, "Fetching trending movies...", listQuery("Trending this week",
				func(ctx context.Context, repo catalog.Repository) catalog.Outcome[[]normalize.Movie] {
					return repo.Trending(ctx)
				}))
		},
	}
}

func newPopularCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "popular",
		Short: "List popular movies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, "Fetching popular movies...", listQuery("Popular movies",
				func(ctx context.Context, repo catalog.Repository) catalog.Outcome[[]normalize.Movie] {
					return repo.Popular(ctx)
				}))
		},
	}
}

func newUpcomingCmd() *cobra.Command {
	var (
		page     int
		language string
	)
	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List upcoming movies",
		Example: `  movapp upcoming
  movapp upcoming --page 2 --language fr_FR`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := catalog.UpcomingQuery{Language: language, Page: page}
			heading := "Upcoming movies"
			if page > 1 {
				heading = fmt.Sprintf("Upcoming movies (page %d)", page)
			}
			return runQuery(cmd, "Fetching upcoming movies...", listQuery(heading,
				func(ctx context.Context, repo catalog.Repository) catalog.Outcome[[]normalize.Movie] {
					return repo.Upcoming(ctx, q)
				}))
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number, starting at 1")
	cmd.Flags().StringVar(&language, "language", "", "language tag, e.g. en_US (default from config)")
	return cmd
}

func newMovieCmd() *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:     "movie <id>",
		Short:   "Show details for a movie",
		Example: `  movapp movie 603`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid movie id %q: must be a number", args[0])
			}
			q := catalog.DetailsQuery{MovieID: id, Language: language}
			return runQuery(cmd, "Fetching movie details...", detailQuery(q))
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "language tag, e.g. en_US (default from config)")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "search <term...>",
		Short: "Search movies by title",
		Example: `  movapp search the matrix
  movapp search "amélie" --language fr_FR`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term := strings.Join(args, " ")
			q := catalog.SearchQuery{Term: term, Language: language}
			return runQuery(cmd, "Searching...", listQuery(fmt.Sprintf("Results for %q", term),
				func(ctx context.Context, repo catalog.Repository) catalog.Outcome[[]normalize.Movie] {
					return repo.Search(ctx, q)
				}))
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "language tag, e.g. en_US (default from config)")
	return cmd
}

func listQuery(heading string, run func(context.Context, catalog.Repository) catalog.Outcome[[]normalize.Movie]) queryFunc {
	return func(ctx context.Context, repo catalog.Repository) queryResult {
		out := run(ctx, repo)
		movies, ok := out.Value()
		if !ok {
			return queryResult{failure: out.Failure()}
		}
		return queryResult{
			text:    renderMovieList(heading, movies),
			payload: map[string]any{"results": movies},
		}
	}
}

func detailQuery(q catalog.DetailsQuery) queryFunc {
	return func(ctx context.Context, repo catalog.Repository) queryResult {
		out := repo.Details(ctx, q)
		m, ok := out.Value()
		if !ok {
			return queryResult{failure: out.Failure()}
		}
		return queryResult{
			text:    renderMovie(m),
			payload: map[string]any{"movie": m},
		}
	}
}

func runQuery(cmd *cobra.Command, label string, fn queryFunc) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := config.SetupLogger(cfg.App.LogLevel)
	repo, err := buildRepository(cfg, nil, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), fn(ctx, repo))
	}

	p := tea.NewProgram(newQueryModel(ctx, repo, label, fn), tea.WithOutput(os.Stdout))
	m, err := p.Run()
	if err != nil {
		return fmt.Errorf("run query: %w", err)
	}

	qm, ok := m.(queryModel)
	if !ok {
		return fmt.Errorf("unexpected model type from tea program")
	}
	if !qm.done {
		return nil // interrupted
	}
	return qm.result.err()
}

// printJSON writes the payload, or the failure in the HTTP API's error shape.
func printJSON(w io.Writer, res queryResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if res.failure != nil {
		if err := enc.Encode(map[string]any{"error": res.failure}); err != nil {
			return fmt.Errorf("encode failure: %w", err)
		}
		return res.err()
	}
	if err := enc.Encode(res.payload); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

func (r queryResult) err() error {
	if r.failure == nil {
		return nil
	}
	return r.failure
}

// queryResultMsg carries the finished query back to the TUI.
type queryResultMsg queryResult

type queryModel struct {
	ctx     context.Context
	repo    catalog.Repository
	label   string
	fetch   queryFunc
	spinner spinner.Model
	result  queryResult
	done    bool
}

func newQueryModel(ctx context.Context, repo catalog.Repository, label string, fetch queryFunc) queryModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styleInfo
	return queryModel{
		ctx:     ctx,
		repo:    repo,
		label:   label,
		fetch:   fetch,
		spinner: s,
	}
}

func (m queryModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runFetch())
}

func (m queryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case queryResultMsg:
		m.result = queryResult(msg)
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the spinner, then the result. Failures render nothing here;
// the command returns them as errors.
func (m queryModel) View() string {
	if m.done {
		if m.result.failure != nil {
			return ""
		}
		return m.result.text + "\n"
	}
	return m.spinner.View() + styleDim.Render(" "+m.label) + "\n"
}

func (m queryModel) runFetch() tea.Cmd {
	return func() tea.Msg {
		return queryResultMsg(m.fetch(m.ctx, m.repo))
	}
}
