// Package cli wires the cobra command tree: serve for the HTTP API, ask for
// one-shot questions from the terminal.
package cli

import (
	"fmt"
	"os"

	"github.com/querypilot/querypilot/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	rootCmd = &cobra.Command{
		Use:   "querypilot",
		Short: "Natural-language querying over SQL and search backends",
		Long: `QueryPilot turns natural-language questions into SQL, reviews every
candidate before it runs, and executes the survivor against Postgres,
BigQuery, or Elasticsearch.

Run the HTTP API:
  querypilot serve

Ask from the terminal:
  querypilot ask "total revenue by month"`,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
