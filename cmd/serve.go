package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/knapsackanneal/internal/config"
	"github.com/cwbudde/knapsackanneal/internal/metrics"
	"github.com/cwbudde/knapsackanneal/internal/server"
	"github.com/cwbudde/knapsackanneal/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP job server",
	Long: `Starts an HTTP server that accepts optimization jobs, streams their
progress over Server-Sent Events and exposes Prometheus metrics on /metrics.`,
	RunE: runServe,
}

func init() {
	d := config.Default()
	f := serveCmd.Flags()
	f.String("addr", d.Server.Addr, "Listen host")
	f.Int("port", d.Server.Port, "Listen port")
	f.String("data-dir", d.Store.DataDir, "Directory for run records and traces")
	f.String("log", d.Run.LogPath, "Result log path (empty disables)")
	f.Int("mayfly-iters", d.Mayfly.Iterations, "Mayfly iterations (solver mayfly)")
	f.Int("mayfly-pop", d.Mayfly.Population, "Mayfly population (solver mayfly)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	fs, err := store.NewFSStore(cfg.Store.DataDir)
	if err != nil {
		return err
	}

	opts := server.Options{
		Store:            fs,
		Metrics:          metrics.NewPrometheus(nil, ""),
		MayflyIterations: cfg.Mayfly.Iterations,
		MayflyPopulation: cfg.Mayfly.Population,
	}
	if cfg.Run.LogPath != "" {
		opts.Log = store.NewResultLog(cfg.Run.LogPath)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Addr, cfg.Server.Port)
	srv := server.NewServer(addr, opts)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
