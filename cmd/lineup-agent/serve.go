package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/metrics"
	chiTransport "github.com/aronetommaso/Fanta-Calcio-Agent/internal/transport/chi"
	"github.com/aronetommaso/Fanta-Calcio-Agent/internal/version"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Ingest the source document and serve questions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, flags.env, cfg, buildOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			logger := a.logger
			logger.Info("Starting lineup agent API server",
				zap.String("version", version.Version),
				zap.String("commit", version.Commit),
				zap.String("env", flags.env),
				zap.Int("http_port", cfg.HTTP.Port),
				zap.String("embedding_provider", cfg.Embedding.Provider),
				zap.String("generation_model", cfg.Generation.Model),
			)

			if err := a.prepare(ctx, source); err != nil {
				logger.Error("Startup failed", zap.Error(err))
				return err
			}

			metrics.RegisterHTTPMetrics()
			server := chiTransport.NewServer(a.query, a.health, cfg.Retrieval.K, logger)

			addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
			srv := &http.Server{
				Addr:         addr,
				Handler:      server.Router(),
				ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
				WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			case <-ctx.Done():
				logger.Info("Received shutdown signal")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error during shutdown", zap.Error(err))
				return fmt.Errorf("shutdown: %w", err)
			}

			logger.Info("Server stopped gracefully")
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "document to ingest (overrides ingest.source)")
	return cmd
}
