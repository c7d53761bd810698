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

package claimsd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/blinklabs-io/claimsd/api"
	"github.com/blinklabs-io/claimsd/database"
	"github.com/blinklabs-io/claimsd/event"
	"github.com/blinklabs-io/claimsd/ledger"
	"github.com/blinklabs-io/claimsd/payout"
)

type Node struct {
	eventBus      *event.EventBus
	db            *database.Database
	ledgerState   *ledger.LedgerState
	dispatcher    *payout.Dispatcher
	api           *api.Api
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	ready         chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
		ready:    make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

// Run opens the database and starts all services. It blocks until Stop is
// called or ctx is done.
func (n *Node) Run(ctx context.Context) error {
	if err := n.start(ctx); err != nil {
		if stopErr := n.Stop(); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
		return err
	}
	close(n.ready)
	// Wait for shutdown signal
	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return n.Stop()
	}
}

func (n *Node) start(ctx context.Context) error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	dbNeedsRecovery := false
	dbConfig := &database.Config{
		DataDir:         n.config.dataDir,
		Logger:          n.config.logger,
		PromRegistry:    n.config.promRegistry,
		PayoutRetention: n.config.payoutRetention,
	}
	if n.config.badgerCacheSize > 0 {
		dbConfig.BlockCacheSize = n.config.badgerCacheSize / 4 * 3
		dbConfig.IndexCacheSize = n.config.badgerCacheSize - dbConfig.BlockCacheSize
	}
	db, err := database.New(dbConfig)
	if db == nil {
		if err == nil {
			err = errors.New("empty database returned")
		}
		n.config.logger.Error(
			"failed to create database",
			"error",
			err,
		)
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	if err != nil {
		var dbErr database.CommitTimestampError
		if !errors.As(err, &dbErr) {
			return fmt.Errorf("failed to open database: %w", err)
		}
		n.config.logger.Warn(
			"database initialization error, needs recovery",
			"error",
			err,
		)
		dbNeedsRecovery = true
	}
	// Run DB recovery if needed
	if dbNeedsRecovery {
		if err := n.db.RecoverCommitTimestamp(); err != nil {
			return fmt.Errorf("failed to recover database: %w", err)
		}
	}
	// Load ledger
	state, err := ledger.NewLedgerState(
		ledger.LedgerStateConfig{
			Logger:        n.config.logger,
			Database:      n.db,
			EventBus:      n.eventBus,
			PromRegistry:  n.config.promRegistry,
			AddressPrefix: n.config.addressPrefix,
			BatchLimit:    n.config.batchLimit,
			SubmsgLimit:   n.config.submsgLimit,
			PageLimit:     n.config.pageLimit,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}
	n.ledgerState = state
	// Configure payout dispatcher
	dispatcher, err := payout.NewDispatcher(
		payout.DispatcherConfig{
			Logger:       n.config.logger,
			Database:     n.db,
			EventBus:     n.eventBus,
			PromRegistry: n.config.promRegistry,
			Sink:         n.config.payoutSink,
			Interval:     n.config.payoutInterval,
			MaxRetries:   n.config.payoutMaxRetries,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create payout dispatcher: %w", err)
	}
	n.dispatcher = dispatcher
	if n.config.payoutDisabled {
		n.config.logger.Info("payout delivery disabled")
	} else {
		if err := n.dispatcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start payout dispatcher: %w", err)
		}
	}
	// Configure REST API
	n.api = api.New(
		api.ApiConfig{
			ListenAddress:   n.config.apiListenAddress,
			CorsOrigins:     n.config.corsOrigins,
			PromRegistry:    n.config.promRegistry,
			ShutdownTimeout: n.config.shutdownTimeout,
			Version:         n.config.version,
		},
		n.ledgerState,
		n.dispatcher,
		n.config.logger,
	)
	if err := n.api.Start(ctx); err != nil {
		return err
	}
	return nil
}

// Ready returns a channel that is closed once all services have started
func (n *Node) Ready() <-chan struct{} {
	return n.ready
}

// ApiAddr returns the address the REST API is listening on, or nil if it is
// not running
func (n *Node) ApiAddr() net.Addr {
	select {
	case <-n.ready:
	default:
		return nil
	}
	return n.api.Addr()
}

// LedgerState returns the node's ledger, or nil before Run
func (n *Node) LedgerState() *ledger.LedgerState {
	select {
	case <-n.ready:
		return n.ledgerState
	default:
		return nil
	}
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := DefaultShutdownTimeout
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping new work")

	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	// Phase 2: Drain in-flight payouts
	n.config.logger.Debug("shutdown phase 2: draining payouts")

	if n.dispatcher != nil {
		n.dispatcher.Stop()
	}

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	// Phase 3: Close database
	n.config.logger.Debug("shutdown phase 3: closing database")

	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("database close: %w", closeErr),
			)
		}
	}

	// Phase 4: Cleanup resources
	n.config.logger.Debug("shutdown phase 4: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}
