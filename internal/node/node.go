// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/claimsd"
	"github.com/blinklabs-io/claimsd/internal/config"
	"github.com/blinklabs-io/claimsd/internal/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NodeConfig converts the file/env config into node options
func NodeConfig(cfg *config.Config, logger *slog.Logger) claimsd.Config {
	return claimsd.NewConfig(
		claimsd.WithLogger(logger),
		claimsd.WithDatabasePath(cfg.DatabasePath),
		claimsd.WithApiListenAddress(
			fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.ApiPort),
		),
		claimsd.WithCorsOrigins(cfg.CorsOrigins...),
		claimsd.WithAddressPrefix(cfg.AddressPrefix),
		claimsd.WithBatchLimit(cfg.BatchLimit),
		claimsd.WithSubmsgLimit(cfg.SubmsgLimit),
		claimsd.WithPageLimit(cfg.PageLimit),
		claimsd.WithBadgerCacheSize(cfg.BadgerCacheSize),
		claimsd.WithPayoutInterval(cfg.PayoutIntervalDuration()),
		claimsd.WithPayoutMaxRetries(cfg.PayoutMaxRetries),
		claimsd.WithPayoutRetention(cfg.PayoutRetentionDuration()),
		claimsd.WithShutdownTimeout(cfg.ShutdownTimeoutDuration()),
		claimsd.WithTracing(cfg.Tracing),
		claimsd.WithTracingStdout(cfg.TracingStdout),
		claimsd.WithVersion(version.GetVersionString()),
		// Enable metrics with default prometheus registry
		claimsd.WithPrometheusRegistry(prometheus.DefaultRegisterer),
	)
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	shutdownTimeout := cfg.ShutdownTimeoutDuration()

	n, err := claimsd.New(NodeConfig(cfg, logger))
	if err != nil {
		return err
	}
	// Metrics and debug listener
	metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	// Expose pprof handlers registered on the default mux
	metricsMux.Handle("/debug/pprof/", http.DefaultServeMux)
	logger.Info(
		"serving prometheus metrics on "+metricsAddr,
		"component",
		"node",
	)
	metricsServer := &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	metricsErrChan := make(chan error, 1)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			metricsErrChan <- fmt.Errorf(
				"failed to start metrics listener: %w",
				err,
			)
		}
	}()
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Run node in goroutine
	errChan := make(chan error, 1)
	go func() {
		//nolint:contextcheck
		errChan <- n.Run(signalCtx)
	}()

	shutdownMetrics := func() {
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}

	// Wait for signal or error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown")
		shutdownMetrics()
		// Shutdown node
		if err := n.Stop(); err != nil {
			logger.Error("shutdown errors occurred", "error", err)
			return err
		}
		logger.Info("shutdown complete")
		return nil

	case err := <-metricsErrChan:
		logger.Error("metrics listener error", "error", err)
		if stopErr := n.Stop(); stopErr != nil {
			logger.Error(
				"shutdown errors occurred during error cleanup",
				"error",
				stopErr,
			)
		}
		return err

	case err := <-errChan:
		shutdownMetrics()
		if err == nil {
			logger.Info("node stopped")
			return nil
		}
		logger.Error("node error", "error", err)
		return err
	}
}
