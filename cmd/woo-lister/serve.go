package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ArtemZhigarev/woo-lister/internal/server"
	"github.com/ArtemZhigarev/woo-lister/pkg/logging"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the order and customer lists as a JSON API",
		Long: `Starts an HTTP server with one pair of list loaders per client session.

Routes:
  GET  /health
  GET  /metrics
  GET  /api/{orders|customers}
  POST /api/{orders|customers}/reset?filter=
  POST /api/{orders|customers}/more
  POST /api/{orders|customers}/retry

Clients keep their session by echoing the X-Session-ID response header.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := logging.NewLogger("server")

			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}

			provider, release, err := a.provider(ctx)
			if err != nil {
				return err
			}
			defer release()

			c, err := a.newClient()
			if err != nil {
				return err
			}
			defer c.Close()

			srv, err := server.New(provider, c, server.Config{
				SessionTTL:  a.cfg.Server.SessionTTL,
				MaxSessions: a.cfg.Server.MaxSessions,
			})
			if err != nil {
				return err
			}
			defer srv.Close()

			httpServer := &http.Server{
				Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().
					Str("addr", httpServer.Addr).
					Str("settings_backend", a.cfg.Settings.Backend).
					Msg("Starting server")
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info().Msg("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			logger.Info().Msg("Server stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides server.port)")
	return cmd
}
