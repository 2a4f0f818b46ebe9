package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gilchrisn/graph-motif-service/pkg/api"
)

var serveAddress string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve cached corpora over HTTP",
	Long: `Start a read-only JSON API over the corpus cache.

Routes:
  GET /api/v1/health
  GET /api/v1/corpora
  GET /api/v1/corpora/{key}/top?n=10
  GET /api/v1/corpora/{key}/motifs/{id}
  GET /api/v1/compare?a=KEY&b=KEY&motif=ID[&kmax=N]`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "Listen address (default server.address)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddress != "" {
		cfg.Set("server.address", serveAddress)
	}
	log.Logger = logger

	store, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	catalog := api.NewCatalog(store)
	n, err := catalog.Refresh()
	if err != nil {
		logger.Warn().Err(err).Msg("Cache cannot be listed, corpora load on demand")
	}
	logger.Info().Int("corpora", n).Msg("Catalog loaded")

	handlers := api.NewHandlers(catalog, newEngine(0))
	server := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      api.NewRouter(handlers),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("address", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "failed to start server")
		}
		return nil
	case <-quit:
		logger.Info().Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}
	logger.Info().Msg("Server shutdown complete")
	return nil
}
