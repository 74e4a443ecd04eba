package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

var (
	configPath string
	jsonOutput bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styleError.Render(err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "movapp",
		Short: "Movie catalog browser",
		Long: "MovApp browses the TMDb movie catalog: trending, popular and upcoming movies,\n" +
			"details and search. It can also serve the catalog over HTTP, MCP or Telegram.",
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/movapp.yaml", "path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON instead of formatted output")

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(
		newVersionCmd(),
		newTrendingCmd(),
		newPopularCmd(),
		newUpcomingCmd(),
		newMovieCmd(),
		newSearchCmd(),
		newServeCmd(),
		newBotCmd(),
		newMCPServeCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "MovApp v%s\n", version)
		},
	}
}
