package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/metrics"
	"github.com/hyperjump/kensaku/internal/server"
	"github.com/hyperjump/kensaku/internal/session"
	"github.com/hyperjump/kensaku/internal/storage"
	"github.com/hyperjump/kensaku/internal/watcher"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API over HTTP",
		Long: `Serve opens the index once and answers search, statistics and document
requests over HTTP until interrupted. Prometheus metrics are exposed at
/metrics. When watch.enabled is set, changes to the index directory are
reported as staleness warnings; restart the server to pick them up.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().Bool("archive", true, "archive runs requested with run_id")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	m := metrics.New()
	e, sess, err := openSession(cmd, session.WithMetrics(m))
	if err != nil {
		return err
	}
	defer e.close()
	defer sess.Close()
	logger := e.logger
	logger.Info("config loaded", zap.String("config_path", e.configPath), zap.Bool("debug", e.debug))

	var archive storage.Archive
	if enabled, _ := cmd.Flags().GetBool("archive"); enabled {
		a, err := e.openArchive()
		if err != nil {
			logger.Warn("run archive disabled", zap.Error(err))
		} else {
			defer a.Close()
			archive = a
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if e.cfg.Watch.EnabledOrDefault() {
		w := watcher.New(e.cfg.Index.Path, nil,
			watcher.WithLogger(logger),
			watcher.WithDebounce(e.cfg.Watch.Debounce),
			watcher.WithMetrics(m),
		)
		if err := w.Start(ctx); err != nil {
			logger.Warn("index watcher not started", zap.Error(err))
		} else {
			defer w.Stop()
		}
	}

	srv := server.NewServer(sess, archive, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	select {
	case <-sigChan:
	case err := <-errCh:
		return err
	}

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Stop(shutdownCtx)
}
