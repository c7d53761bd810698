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

// Package ledger implements the indexed claim ledger: stable claim identities,
// merging of repeated contributions, four synchronized secondary indexes and
// descending range pagination over them.
package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/claimsd/database"
	"github.com/blinklabs-io/claimsd/event"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBatchLimit  = 100
	DefaultSubmsgLimit = 30
	DefaultPageLimit   = 100
)

const tracerName = "github.com/blinklabs-io/claimsd/ledger"

type LedgerStateConfig struct {
	Logger       *slog.Logger
	Database     *database.Database
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	// Clock used when a request carries no time
	Now func() time.Time
	// Bech32 prefix required for addresses. Empty accepts any prefix.
	AddressPrefix string
	// Maximum number of claim IDs processed by one claim
	BatchLimit int
	// Maximum number of distinct tokens paid out by one claim
	SubmsgLimit int
	// Number of claims returned per query page
	PageLimit int
}

type LedgerState struct {
	// Serializes all mutations
	sync.Mutex
	config  LedgerStateConfig
	db      *database.Database
	metrics stateMetrics
	tracer  trace.Tracer
}

func NewLedgerState(cfg LedgerStateConfig) (*LedgerState, error) {
	if cfg.Database == nil {
		return nil, errors.New("ledger: no database provided")
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = DefaultBatchLimit
	}
	if cfg.SubmsgLimit <= 0 {
		cfg.SubmsgLimit = DefaultSubmsgLimit
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = DefaultPageLimit
	}
	ls := &LedgerState{
		config: cfg,
		db:     cfg.Database,
		tracer: otel.Tracer(tracerName),
	}
	// Init metrics
	ls.metrics.init(cfg.PromRegistry)
	return ls, nil
}

// Database returns the underlying database
func (ls *LedgerState) Database() *database.Database {
	return ls.db
}

// LastClaimID returns the most recently allocated claim ID, 0 if none
func (ls *LedgerState) LastClaimID() (uint64, error) {
	var ret uint64
	err := ls.db.View(func(txn *database.Txn) error {
		var err error
		ret, err = ls.lastClaimID(txn)
		return err
	})
	return ret, err
}

// update runs fn in one read-write transaction while holding the mutation
// lock. The lock is released even if fn panics.
func (ls *LedgerState) update(fn func(*database.Txn) error) error {
	ls.Lock()
	defer ls.Unlock()
	return ls.db.Update(fn)
}

// startOp opens a tracing span for a ledger operation and returns a function
// that records its outcome
func (ls *LedgerState) startOp(
	ctx context.Context,
	op string,
	attrs ...attribute.KeyValue,
) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := ls.tracer.Start(
		ctx,
		"ledger."+op,
		trace.WithAttributes(attrs...),
	)
	return ctx, func(err error) {
		ls.metrics.opDuration.WithLabelValues(op).Observe(
			time.Since(start).Seconds(),
		)
		if err != nil {
			ls.metrics.errorsTotal.WithLabelValues(op).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// reject counts a request refused before it reaches the store
func (ls *LedgerState) reject(op string, err error) error {
	ls.metrics.errorsTotal.WithLabelValues(op).Inc()
	return err
}

// requestTime returns the time of a request, falling back to the ledger clock
func (ls *LedgerState) requestTime(ec ExecContext) (time.Time, error) {
	now := ec.Time
	if now.IsZero() {
		now = ls.config.Now()
	}
	if now.Before(time.Unix(0, 0)) {
		return time.Time{}, validationError("request time %s is before the epoch", now)
	}
	return now.UTC(), nil
}
