package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marbleworks/ankigen/internal/api"
	"github.com/marbleworks/ankigen/internal/config"
	"github.com/marbleworks/ankigen/internal/generate"
	"github.com/marbleworks/ankigen/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Starts a long-running server that accepts document uploads, generates
decks in the background, and serves the finished .apkg files for
download. Requires ANKIGEN_API_KEY for client authentication.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if cfg.ServeAPIKey == "" {
		return fmt.Errorf("ANKIGEN_API_KEY is required in serve mode")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stats := generate.NewCallStats(time.Hour)
	be, err := buildBackend(ctx, cfg, stats)
	if err != nil {
		return err
	}

	orch := pipeline.NewOrchestrator(cfg, be.gen, be.completer, log)
	orch.Start(ctx)

	srv := api.NewServer(orch, stats, be.model, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		be.close()
	}()

	log.Info("starting ankigen server", "port", cfg.Port, "provider", cfg.Provider)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
