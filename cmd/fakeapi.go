package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agrotrace/bfsa-extractor/internal/fakeapi"
	"github.com/agrotrace/bfsa-extractor/pkg/output"
)

var fakeAPICmd = &cobra.Command{
	Use:   "fake-api",
	Short: "Serve generated events for a dry run",
	Long: `Serves GET /api/events with deterministic generated data. Point base_url
(or BFSA_BASE_URL) at it and use any non-empty token.`,
	Example: `  bfsa fake-api --addr :8089 --seed 42 --per-window 5
  BFSA_BASE_URL=http://localhost:8089 bfsa`,
	RunE: runFakeAPI,
}

func init() {
	rootCmd.AddCommand(fakeAPICmd)

	fakeAPICmd.Flags().String("addr", ":8089", "listen address")
	fakeAPICmd.Flags().Int64("seed", 42, "seed for generated data")
	fakeAPICmd.Flags().Int("per-window", 5, "events returned per request")
}

func runFakeAPI(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	seed, _ := cmd.Flags().GetInt64("seed")
	perWindow, _ := cmd.Flags().GetInt("per-window")

	log, _, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	srv := &http.Server{
		Addr:              addr,
		Handler:           fakeapi.New(fakeapi.Options{Seed: seed, PerWindow: perWindow}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("fake api listening", zap.String("addr", addr), zap.Int64("seed", seed))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	output.New(cmd.OutOrStdout(), cmd.ErrOrStderr()).
		Info("Fake API on %s (Ctrl+C to stop)", addr)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("fake api: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("fake api shutdown: %w", err)
	}
	log.Info("fake api stopped")
	return nil
}
