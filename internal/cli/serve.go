package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/querypilot/querypilot/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := server.New(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Info().
			Str("host", cfg.Host).
			Int("port", cfg.Port).
			Str("environment", cfg.Environment).
			Msg("starting server")
		return srv.Run(ctx)
	},
}
