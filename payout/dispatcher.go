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

// Package payout delivers the transfer instructions queued by claims. Pending
// payout rows are handed to a Sink with exponential backoff and marked sent
// or failed.
package payout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/claimsd/database"
	"github.com/blinklabs-io/claimsd/database/models"
	"github.com/blinklabs-io/claimsd/event"
	"github.com/blinklabs-io/claimsd/ledger"
	"github.com/blinklabs-io/claimsd/token"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultInterval       = 30 * time.Second
	DefaultMaxRetries     = 5
	DefaultBatchSize      = 100
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 30 * time.Second
)

var ErrNoDatabase = errors.New("payout: no database provided")

type DispatcherConfig struct {
	Logger       *slog.Logger
	Database     *database.Database
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	Sink         Sink
	// Interval between dispatch passes when no claim event arrives
	Interval time.Duration
	// Retries after the first failed attempt before a payout is marked failed.
	// 0 selects DefaultMaxRetries.
	MaxRetries uint64
	// Maximum number of pending payouts handled per pass
	BatchSize      int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type Dispatcher struct {
	config  DispatcherConfig
	db      *database.Database
	metrics dispatcherMetrics
	// Serializes dispatch passes
	dispatchMu sync.Mutex
	mu         sync.Mutex
	wakeCh     chan struct{}
	cancel     context.CancelFunc
	subId      event.EventSubscriberId
	wg         sync.WaitGroup
}

func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Database == nil {
		return nil, ErrNoDatabase
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Sink == nil {
		cfg.Sink = NewLogSink(cfg.Logger)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	d := &Dispatcher{
		config: cfg,
		db:     cfg.Database,
		wakeCh: make(chan struct{}, 1),
	}
	d.metrics.init(cfg.PromRegistry)
	return d, nil
}

// Start runs the dispatch loop until Stop is called or ctx is done. The loop
// wakes on every interval tick and on every committed claim.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return errors.New("payout: dispatcher already started")
	}
	// Stop cancels in-flight deliveries
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if d.config.EventBus != nil {
		d.subId = d.config.EventBus.SubscribeFunc(
			ledger.ClaimEventType,
			d.handleClaimEvent,
		)
	}
	ticker := time.NewTicker(d.config.Interval)
	d.wg.Add(1)
	go func(t *time.Ticker) {
		defer d.wg.Done()
		defer t.Stop()
		// Deliver whatever was left pending by a previous run
		d.runOnce(runCtx)
		for {
			select {
			case <-t.C:
				d.runOnce(runCtx)
			case <-d.wakeCh:
				d.runOnce(runCtx)
			case <-runCtx.Done():
				return
			}
		}
	}(ticker)
	d.config.Logger.Info(
		"payout dispatcher started",
		"component", "payout",
		"interval", d.config.Interval.String(),
	)
	return nil
}

// Stop shuts down the dispatch loop and waits for it to exit
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	subId := d.subId
	d.cancel = nil
	d.subId = 0
	d.mu.Unlock()
	if cancel == nil {
		return
	}
	if d.config.EventBus != nil && subId != 0 {
		d.config.EventBus.Unsubscribe(ledger.ClaimEventType, subId)
	}
	cancel()
	d.wg.Wait()
	d.config.Logger.Debug(
		"payout dispatcher stopped",
		"component", "payout",
	)
}

func (d *Dispatcher) handleClaimEvent(evt event.Event) {
	data, ok := evt.Data.(ledger.ClaimEvent)
	if !ok || len(data.PayoutIDs) == 0 {
		return
	}
	d.Wake()
}

// Wake requests a dispatch pass without waiting for the next tick
func (d *Dispatcher) Wake() {
	select {
	case d.wakeCh <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) runOnce(ctx context.Context) {
	if _, err := d.DispatchPending(ctx); err != nil &&
		!errors.Is(err, context.Canceled) {
		d.config.Logger.Error(
			"payout dispatch failed",
			"component", "payout",
			"error", err,
		)
	}
}

// DispatchPending delivers up to one batch of pending payouts, oldest first,
// and returns the number that were marked sent
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()
	d.metrics.runsTotal.Inc()
	pending, err := d.db.Metadata().GetPendingPayouts(d.config.BatchSize, nil)
	if err != nil {
		return 0, fmt.Errorf("load pending payouts: %w", err)
	}
	sent := 0
	for i := range pending {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		ok, err := d.dispatch(ctx, &pending[i])
		if err != nil {
			return sent, err
		}
		if ok {
			sent++
		}
	}
	return sent, nil
}

// dispatch delivers one payout and records the outcome. A delivery cut short
// by ctx leaves the payout pending.
func (d *Dispatcher) dispatch(ctx context.Context, payout *models.Payout) (bool, error) {
	instruction, err := instructionFromPayout(payout)
	if err != nil {
		// Undeliverable as stored
		return false, d.markFailed(payout, err)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.config.InitialBackoff
	b.MaxInterval = d.config.MaxBackoff
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(
		backoff.WithMaxRetries(b, d.config.MaxRetries),
		ctx,
	)
	operation := func() error {
		payout.Attempts++
		d.metrics.attemptsTotal.Inc()
		return d.config.Sink.Deliver(ctx, payout.PayoutID, instruction)
	}
	notify := func(err error, next time.Duration) {
		d.config.Logger.Warn(
			"payout delivery failed, retrying",
			"component", "payout",
			"payout_id", payout.PayoutID,
			"attempts", payout.Attempts,
			"retry_in", next.String(),
			"error", err,
		)
	}
	err = backoff.RetryNotify(operation, policy, notify)
	if err != nil {
		if ctx.Err() != nil {
			// Keep the attempts made so far and retry on the next run
			if updateErr := d.updateStatus(payout, models.PayoutStatusPending, err); updateErr != nil {
				return false, updateErr
			}
			return false, ctx.Err()
		}
		return false, d.markFailed(payout, err)
	}
	if err := d.updateStatus(payout, models.PayoutStatusSent, nil); err != nil {
		return false, err
	}
	d.metrics.sentTotal.Inc()
	d.config.Logger.Debug(
		"payout sent",
		"component", "payout",
		"payout_id", payout.PayoutID,
		"recipient", payout.Recipient,
		"attempts", payout.Attempts,
	)
	return true, nil
}

func (d *Dispatcher) markFailed(payout *models.Payout, cause error) error {
	d.metrics.failedTotal.Inc()
	d.config.Logger.Error(
		"payout failed",
		"component", "payout",
		"payout_id", payout.PayoutID,
		"recipient", payout.Recipient,
		"attempts", payout.Attempts,
		"error", cause,
	)
	return d.updateStatus(payout, models.PayoutStatusFailed, cause)
}

func (d *Dispatcher) updateStatus(
	payout *models.Payout,
	status models.PayoutStatus,
	cause error,
) error {
	now := time.Now().UTC()
	payout.Status = status
	payout.UpdatedAt = now
	payout.LastError = ""
	if cause != nil {
		payout.LastError = cause.Error()
	}
	if status == models.PayoutStatusSent {
		payout.SentAt = &now
	}
	if err := d.db.Metadata().UpdatePayoutStatus(payout, nil); err != nil {
		return fmt.Errorf("update payout %s: %w", payout.PayoutID, err)
	}
	return nil
}

// Payouts returns up to limit of a recipient's payouts, newest first
func (d *Dispatcher) Payouts(recipient string, limit int) ([]models.Payout, error) {
	if limit <= 0 {
		limit = d.config.BatchSize
	}
	return d.db.Metadata().GetPayoutsByRecipient(recipient, limit, nil)
}

// Payout returns a payout by ID, or nil if there is none
func (d *Dispatcher) Payout(payoutId string) (*models.Payout, error) {
	return d.db.Metadata().GetPayout(payoutId, nil)
}

func instructionFromPayout(payout *models.Payout) (token.Instruction, error) {
	tok, err := token.ParseKey(payout.TokenKey)
	if err != nil {
		return token.Instruction{}, err
	}
	return token.Instruction{
		Kind:      token.InstructionKind(payout.Kind),
		Token:     tok,
		Recipient: payout.Recipient,
		Amount:    payout.Amount.Uint128,
		Payload:   payout.Payload,
	}, nil
}
