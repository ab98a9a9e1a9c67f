package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/messagemind/automaton"
	"github.com/messagemind/automaton/internal/metrics"
	httpAdapter "github.com/messagemind/automaton/pkg/adapters/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serves the automation API under /api/{API_VERSION}: CRUD for automations,
background test runs, validation, health and Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		sender := a.sender(dryRun)
		collector := metrics.New()

		engine := automaton.New(a.repo, sender,
			append(a.engineOptions(), automaton.WithLifecycleHooks(collector.Hooks()))...)

		handler := httpAdapter.NewHandler(a.service(), engine,
			httpAdapter.WithLogger(a.logger),
			httpAdapter.WithCORSOrigin(a.cfg.CORSOrigin),
			httpAdapter.WithAPIVersion(a.cfg.APIVersion),
			httpAdapter.WithNotifier(sender),
			httpAdapter.WithMetrics(collector),
		)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", a.cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			a.logger.Info("server listening",
				"address", srv.Addr,
				"api", "/api/"+a.cfg.APIVersion,
				"env", a.cfg.Env,
				"store", a.cfg.Store)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			a.logger.Info("shutdown started", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				a.logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
				_ = srv.Close()
			}
			// Runs still waiting in a delay are canceled; they are not resumed on restart.
			if err := engine.Close(ctx); err != nil {
				a.logger.Warn("background runs did not stop in time", "error", err)
			}
			a.logger.Info("server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 5001, "Port to listen on (env PORT)")
	serveCmd.Flags().Bool("dry-run", false, "Log messages instead of sending them")
}
