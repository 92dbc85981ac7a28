package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/tourlens/internal/guide"
	"github.com/lehigh-university-libraries/tourlens/internal/handlers"
	"github.com/lehigh-university-libraries/tourlens/internal/oracle"
	"github.com/lehigh-university-libraries/tourlens/internal/storage"
	"github.com/spf13/cobra"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var port int
	var staticDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the tour guide API server",
		Long: `Starts the tourlens HTTP API on the specified port.

The browser client posts camera frames to /analyze and questions to /ask.
Sessions live in memory for the lifetime of the process unless a
session TTL is configured.`,
		Example: `  # Start server on default port 8888
  tourlens serve

  # Serve the client from ./web with the OpenAI provider
  tourlens serve --static ./web --provider openai`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if staticDir != "" {
				cfg.Server.StaticDir = staticDir
			}

			p, err := oracle.New(cfg)
			if err != nil {
				return err
			}

			store := storage.New(storage.WithTTL(cfg.Session.TTL, 0))
			svc := guide.NewService(store, p, cfg.GuideOptions())
			handler := handlers.New(store, svc, handlers.Options{
				StaticDir:    cfg.Server.StaticDir,
				MaxBodyBytes: cfg.Server.MaxBodyBytes,
			})

			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			server := &http.Server{
				Addr:    addr,
				Handler: handler.Routes(),
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Tourlens API available", "addr", addr, "url", "http://localhost"+addr, "provider", p.Name())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped", "sessions", store.Len())
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8888, "Port to listen on")
	cmd.Flags().StringVar(&staticDir, "static", "", "Directory holding the browser client")

	return cmd
}
