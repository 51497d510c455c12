package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/catalog"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/config"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/handlers"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/metrics"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/opensea"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/proxy"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/resolver"
	"github.com/bryanbrinkman/brinkman-nft-catalog/internal/storage"
)

func newServeCmd() *cobra.Command {
	var port string
	var configPath string
	var datasetPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the catalog viewer server",
		Long: `Starts the catalog API, image resolution endpoints and the same-origin
marketplace proxy on the specified port.

The marketplace proxy forwards to the upstream API with the key from the
OPENSEA_API_KEY environment variable attached.`,
		Example: `  # Start server on default port 3001
  brinkman-catalog serve

  # Custom port and dataset
  brinkman-catalog serve --port 8080 --dataset data/catalog.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if datasetPath != "" {
				cfg.Dataset.Path = datasetPath
			}
			if port != "" {
				cfg.Server.Port = port
			} else if envPort := os.Getenv("PORT"); envPort != "" {
				cfg.Server.Port = envPort
			}

			records, err := catalog.NewLoader(cfg.Dataset.Path).Load()
			if err != nil {
				return err
			}
			slog.Info("Catalog loaded", "records", len(records), "dataset", cfg.Dataset.Path)

			addr := ":" + cfg.Server.Port

			// Composition root: every component is constructed and wired
			// here rather than living as package-level state.
			m := metrics.New()
			marketProxy := proxy.New(cfg.Marketplace, cfg.APIKey(), m)
			market := opensea.NewClient("http://localhost" + addr)
			res := resolver.New(cfg.Resolver, market, m)
			tracker := resolver.NewTracker(res, storage.New(), cfg.Resolver.MaxRetries, cfg.Resolver.UnavailableURL, m)
			handler := handlers.New(records, tracker, market, cfg.Server.StaticDir)

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/records", handler.HandleRecords)
			mux.HandleFunc("/api/records/", handler.HandleRecordDetail)
			mux.HandleFunc("/api/price/", marketProxy.HandlePrice)
			mux.HandleFunc("/api/events/", marketProxy.HandleEvents)
			mux.HandleFunc("/api/collection-events/", marketProxy.HandleCollectionEvents)
			mux.Handle("/metrics", m.Handler())
			mux.HandleFunc("/", handler.HandleStatic)
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Catalog viewer available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
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

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (default 3001, or PORT env)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	cmd.Flags().StringVarP(&datasetPath, "dataset", "d", "", "Path to the catalog dataset (.csv or .parquet)")

	return cmd
}
