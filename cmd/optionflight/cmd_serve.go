package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	simhttp "github.com/sawpanic/optionflight/internal/http"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored runs over HTTP",
		Long: `Start the local read-only telemetry server:
  GET /health, /metrics, /runs, /runs/{id}, /runs/{id}/regimes,
  /runs/{id}/view (HTML viewer) and /runs/{id}/stream (websocket replay).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			serverCfg := opts.cfg.Server
			if cmd.Flags().Changed("addr") {
				serverCfg.Addr = addr
			}

			a, err := newApp(ctx, opts.cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := simhttp.NewServer(serverCfg, a.repo, a.metrics, a.renderer)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("Graceful shutdown failed")
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
