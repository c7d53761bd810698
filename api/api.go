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

// Package api serves the claims ledger over HTTP with JSON bodies.
//
// The execute endpoints trust the sender and funds fields of each request.
// The server is meant to sit behind a host gateway that authenticates the
// sender and settles the attached funds before forwarding the call; it must
// not be exposed to untrusted clients directly.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultListenAddress   = ":8080"
	DefaultShutdownTimeout = 30 * time.Second
	// Upper bound on request bodies
	maxRequestBodySize = 1 << 20
)

type ApiConfig struct {
	ListenAddress   string
	CorsOrigins     []string
	PromRegistry    prometheus.Registerer
	ShutdownTimeout time.Duration
	Version         string
}

// Api is the claims ledger REST API server.
type Api struct {
	config     ApiConfig
	logger     *slog.Logger
	ledger     LedgerService
	payouts    PayoutService
	metrics    apiMetrics
	handler    http.Handler
	httpServer *http.Server
	listenAddr net.Addr
	doneCh     chan struct{}
	mu         sync.Mutex
}

// New creates a new API server instance. payouts may be nil, in which case
// the payouts route is not served.
func New(
	cfg ApiConfig,
	ledger LedgerService,
	payouts PayoutService,
	logger *slog.Logger,
) *Api {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if len(cfg.CorsOrigins) == 0 {
		cfg.CorsOrigins = []string{"*"}
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	a := &Api{
		config:  cfg,
		logger:  logger,
		ledger:  ledger,
		payouts: payouts,
	}
	a.metrics.init(cfg.PromRegistry)
	a.handler = a.newRouter()
	return a
}

// Handler returns the API's HTTP handler
func (a *Api) Handler() http.Handler {
	return a.handler
}

func (a *Api) newRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.instrument)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.config.CorsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestSize(maxRequestBodySize))
	r.NotFound(a.handleNotFound)
	r.MethodNotAllowed(a.handleMethodNotAllowed)

	r.Get("/", a.handleRoot)
	r.Get("/health", a.handleHealth)
	r.Route("/api/v0", func(r chi.Router) {
		r.Get("/config", a.handleConfig)
		r.Route("/execute", func(r chi.Router) {
			r.Post("/upsert", a.handleUpsert)
			r.Post("/receive", a.handleReceive)
			r.Post("/claim", a.handleClaim)
			r.Post("/set_config", a.handleSetConfig)
		})
		r.Get("/claims/{address}", a.handleClaims)
		if a.payouts != nil {
			r.Get("/payouts/{address}", a.handlePayouts)
		}
	})
	return r
}

// Start binds the listener and serves in a background goroutine. The server
// is shut down when ctx is done or Stop is called.
func (a *Api) Start(
	ctx context.Context,
) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.httpServer != nil {
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              a.config.ListenAddress,
		Handler:           a.handler,
		ReadHeaderTimeout: 60 * time.Second,
	}
	// Bind first so port conflicts are reported to the caller
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf(
			"failed to listen for API server: %w",
			err,
		)
	}
	doneCh := make(chan struct{})
	a.httpServer = server
	a.listenAddr = ln.Addr()
	a.doneCh = doneCh
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()
	a.logger.Info(
		"API listener started on " + ln.Addr().String(),
	)

	// Monitor context for cancellation
	go func() {
		select {
		case <-ctx.Done():
		case <-doneCh:
			return
		}
		a.logger.Debug(
			"context cancelled, shutting down API server",
		)
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			a.config.ShutdownTimeout,
		)
		defer cancel()
		//nolint:contextcheck
		if err := a.Stop(shutdownCtx); err != nil {
			a.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()
	return nil
}

// Addr returns the address the server is listening on, or nil when stopped
func (a *Api) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listenAddr
}

// Stop gracefully shuts down the HTTP server.
func (a *Api) Stop(
	ctx context.Context,
) error {
	a.mu.Lock()
	srv := a.httpServer
	doneCh := a.doneCh
	a.httpServer = nil
	a.listenAddr = nil
	a.doneCh = nil
	a.mu.Unlock()

	if srv == nil {
		return nil
	}
	close(doneCh)
	a.logger.Debug(
		"shutting down API server",
	)
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf(
			"failed to shutdown API server: %w",
			err,
		)
	}
	return nil
}
