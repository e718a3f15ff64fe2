package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchgate/internal/metrics"
	chiTransport "github.com/kailas-cloud/searchgate/internal/transport/chi"
	healthuc "github.com/kailas-cloud/searchgate/internal/usecase/health"
	queryuc "github.com/kailas-cloud/searchgate/internal/usecase/query"
	"github.com/kailas-cloud/searchgate/internal/version"
)

func runServe(ctx context.Context, flags *rootFlags) error {
	a, err := bootstrap(ctx, flags)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, logger := a.cfg, a.logger
	logger.Info("Starting searchgate",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
		zap.String("addr", cfg.Addr()),
		zap.String("opensearch_url", cfg.OpenSearch.URL),
		zap.String("index", cfg.OpenSearch.Index),
	)

	metrics.RegisterBackendMetrics()

	querySvc := queryuc.New(a.store, cfg.OpenSearch.Index)
	healthSvc := healthuc.New(a.store)
	server := chiTransport.NewServer(querySvc, healthSvc, logger)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           chiTransport.NewRouter(server, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server error", zap.Error(err))
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
		return fmt.Errorf("http shutdown: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}
