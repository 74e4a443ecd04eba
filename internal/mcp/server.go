// Package mcp exposes catalog queries as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/makaraya/movapp/internal/catalog"
)

// Server wraps an MCP SDK server with catalog tool handlers.
type Server struct {
	server *mcpsdk.Server
	repo   catalog.Repository
	logger *slog.Logger
}

// NewServer creates an MCP server with all catalog tools registered.
func NewServer(repo catalog.Repository, version string, logger *slog.Logger) *Server {
	if repo == nil {
		panic("mcp.NewServer: repository must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = "dev"
	}

	s := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "movapp",
			Version: version,
		},
		&mcpsdk.ServerOptions{Logger: logger},
	)

	srv := &Server{server: s, repo: repo, logger: logger}
	srv.registerTools()
	return srv
}

// ServeStdio runs the MCP server over stdin/stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.server.Run(ctx, &mcpsdk.StdioTransport{})
}

// MCPServer returns the underlying MCP SDK server (for testing).
func (s *Server) MCPServer() *mcpsdk.Server {
	return s.server
}

func (s *Server) registerTools() {
	s.server.AddTool(listTool("trending_movies",
		"List this week's trending movies. Entries without a title or poster are omitted."), s.handleTrending)
	s.server.AddTool(listTool("popular_movies",
		"List currently popular movies. Entries without a title or poster are omitted."), s.handlePopular)
	s.server.AddTool(upcomingTool(), s.handleUpcoming)
	s.server.AddTool(movieDetailsTool(), s.handleMovieDetails)
	s.server.AddTool(searchMoviesTool(), s.handleSearchMovies)
}

func listTool(name, desc string) *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        name,
		Description: desc,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}
}

func upcomingTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "upcoming_movies",
		Description: "List one page of upcoming movies. Release dates are formatted MM/DD/YYYY.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"language": languageProperty(),
				"page": map[string]any{
					"type":        "integer",
					"description": "Page number, starting at 1 (default 1)",
				},
			},
		},
	}
}

func movieDetailsTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "movie_details",
		Description: "Get one movie by its TMDb ID, including overview, genres and ratings.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"movie_id": map[string]any{
					"type":        "integer",
					"description": "The TMDb ID of the movie",
				},
				"language": languageProperty(),
			},
			"required": []any{"movie_id"},
		},
	}
}

func searchMoviesTool() *mcpsdk.Tool {
	return &mcpsdk.Tool{
		Name:        "search_movies",
		Description: "Search movies by title. No match returns an empty list.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Free-text search term",
				},
				"language": languageProperty(),
			},
			"required": []any{"query"},
		},
	}
}

func languageProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Language tag such as en_US (default from configuration)",
	}
}

func (s *Server) handleTrending(ctx context.Context, _ *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	return outcomeResult(s.repo.Trending(ctx))
}

func (s *Server) handlePopular(ctx context.Context, _ *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	return outcomeResult(s.repo.Popular(ctx))
}

func (s *Server) handleUpcoming(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var args struct {
		Language string `json:"language"`
	}
	if err := decodeArgs(req.Params.Arguments, &args); err != nil {
		return toolError(err.Error()), nil
	}
	page, err := optionalIntFromArgs(req.Params.Arguments, "page")
	if err != nil {
		return toolError(err.Error()), nil
	}
	return outcomeResult(s.repo.Upcoming(ctx, catalog.UpcomingQuery{Language: args.Language, Page: page}))
}

func (s *Server) handleMovieDetails(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	id, err := extractIntFromArgs(req.Params.Arguments, "movie_id")
	if err != nil {
		return toolError(err.Error()), nil
	}
	var args struct {
		Language string `json:"language"`
	}
	if err := decodeArgs(req.Params.Arguments, &args); err != nil {
		return toolError(err.Error()), nil
	}
	return outcomeResult(s.repo.Details(ctx, catalog.DetailsQuery{MovieID: id, Language: args.Language}))
}

func (s *Server) handleSearchMovies(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var args struct {
		Query    *string `json:"query"`
		Language string  `json:"language"`
	}
	if err := decodeArgs(req.Params.Arguments, &args); err != nil {
		return toolError(err.Error()), nil
	}
	if args.Query == nil {
		return toolError("search_movies requires a 'query' string argument"), nil
	}
	return outcomeResult(s.repo.Search(ctx, catalog.SearchQuery{Term: *args.Query, Language: args.Language}))
}

// outcomeResult renders a success as JSON text and a failure as a tool error.
func outcomeResult[T any](out catalog.Outcome[T]) (*mcpsdk.CallToolResult, error) {
	if v, ok := out.Value(); ok {
		return toolJSON(v)
	}
	f := out.Failure()
	return toolError(fmt.Sprintf("%s: %s", f.Kind, f.Message)), nil
}

// toolJSON marshals v to JSON and returns it as text content.
func toolJSON(v any) (*mcpsdk.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return toolError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, nil
}

// toolError returns a tool result indicating an error.
func toolError(msg string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: msg}},
		IsError: true,
	}
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// extractIntFromArgs extracts a required integer argument from raw JSON arguments.
func extractIntFromArgs(raw json.RawMessage, key string) (int, error) {
	var args map[string]any
	if err := decodeArgs(raw, &args); err != nil {
		return 0, err
	}

	val, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	return toInt(key, val)
}

// optionalIntFromArgs is extractIntFromArgs with zero for a missing key.
func optionalIntFromArgs(raw json.RawMessage, key string) (int, error) {
	var args map[string]any
	if err := decodeArgs(raw, &args); err != nil {
		return 0, err
	}
	val, ok := args[key]
	if !ok || val == nil {
		return 0, nil
	}
	return toInt(key, val)
}

func toInt(key string, val any) (int, error) {
	switch v := val.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%s must be a whole number", key)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be a number: %w", key, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", key, val)
	}
}
