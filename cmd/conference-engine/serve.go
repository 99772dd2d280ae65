// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/conference-engine/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the submission and review HTTP API",
	Long: `Serve starts the HTTP API. Submitters POST to /submissions; administrators
list, approve, and reject pending submissions under /admin. Prometheus
metrics are exposed at /metrics and readiness at /healthz.

SIGINT or SIGTERM stops accepting connections and waits up to
server.shutdown_timeout for in-flight requests.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		api := httpapi.New(a.service,
			httpapi.WithCacheAdmin(a.lookup),
			httpapi.WithReadiness(a.store),
			httpapi.WithRegistry(a.registry),
			httpapi.WithLogger(a.logger),
			httpapi.WithVersion(version))

		srv := &http.Server{
			Addr:              a.cfg.Server.Addr,
			Handler:           api.Handler(),
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		errc := make(chan error, 1)
		go func() {
			a.logger.Info("listening", slog.String("addr", srv.Addr), slog.String("version", version))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
			close(errc)
		}()

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}

		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errc
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	mustBind("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}
