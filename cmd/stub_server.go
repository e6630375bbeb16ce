package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/isajjim/estimator/internal/stubapi"
)

func newStubServerCmd() *cobra.Command {
	var port string
	var publicURL string
	var stepDelay time.Duration

	cmd := &cobra.Command{
		Use:   "stub-server",
		Short: "Start an in-memory estimate backend",
		Long: `Starts a local backend that implements the estimate API in memory.

Presigned upload slots point back at this server, the analysis job reports a
few progress events before completing, and furniture updates recompute the
truck size. Useful for demos and for trying the client without a real backend.`,
		Example: `  # Start on the default port
  estimator stub-server

  # Slow the analysis down and point clients at it
  estimator stub-server --port 9000 --step-delay 2s
  estimator run --api-url http://localhost:9000 --answers answers.yaml room.jpg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			stub := stubapi.New(stubapi.Options{
				PublicURL:       publicURL,
				StepDelay:       stepDelay,
				EventName:       cfg.EventName,
				CompletionToken: cfg.CompletionToken,
			})

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: stub.Router(),
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Stub estimate API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8080", "Port to listen on")
	cmd.Flags().StringVar(&publicURL, "public-url", "", "Base URL written into presigned upload slots (default: request host)")
	cmd.Flags().DurationVar(&stepDelay, "step-delay", 500*time.Millisecond, "Delay before each analysis progress event")

	return cmd
}
