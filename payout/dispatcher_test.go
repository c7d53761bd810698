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

package payout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/claimsd/database"
	"github.com/blinklabs-io/claimsd/database/models"
	"github.com/blinklabs-io/claimsd/event"
	"github.com/blinklabs-io/claimsd/internal/test/testutil"
	"github.com/blinklabs-io/claimsd/ledger"
	"github.com/blinklabs-io/claimsd/safemath"
	"github.com/blinklabs-io/claimsd/token"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// recordingSink fails the first failures deliveries and records the rest
type recordingSink struct {
	mu        sync.Mutex
	failures  int
	err       error
	calls     int
	delivered []token.Instruction
}

func (s *recordingSink) Deliver(
	_ context.Context,
	_ string,
	instruction token.Instruction,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures != 0 {
		if s.failures > 0 {
			s.failures--
		}
		return s.err
	}
	s.delivered = append(s.delivered, instruction)
	return nil
}

func (s *recordingSink) Delivered() []token.Instruction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]token.Instruction(nil), s.delivered...)
}

type testEnv struct {
	db         *database.Database
	ledger     *ledger.LedgerState
	dispatcher *Dispatcher
	sink       *recordingSink
	registry   *prometheus.Registry
}

func newTestEnv(
	t *testing.T,
	eb *event.EventBus,
	opts ...func(*DispatcherConfig),
) *testEnv {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	ls, err := ledger.NewLedgerState(ledger.LedgerStateConfig{
		Database:      db,
		EventBus:      eb,
		AddressPrefix: testutil.TestAddressPrefix,
	})
	require.NoError(t, err)
	env := &testEnv{
		db:       db,
		ledger:   ls,
		sink:     &recordingSink{err: errors.New("sink unavailable")},
		registry: prometheus.NewRegistry(),
	}
	cfg := DispatcherConfig{
		Database:       db,
		EventBus:       eb,
		PromRegistry:   env.registry,
		Sink:           env.sink,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	env.dispatcher, err = NewDispatcher(cfg)
	require.NoError(t, err)
	return env
}

// claim creates one claim per token for recipient and withdraws them,
// returning the queued payout IDs
func (e *testEnv) claim(t *testing.T, recipient string, tokens ...token.Token) []string {
	t.Helper()
	ctx := context.Background()
	for _, tok := range tokens {
		_, err := e.ledger.Upsert(
			ctx,
			ledger.UpsertMsg{
				Name:  "batch",
				Token: tok,
				Amounts: []ledger.Contribution{
					{Recipient: recipient, Amount: safemath.NewUint128(25)},
				},
			},
			time.Now(),
		)
		require.NoError(t, err)
	}
	res, err := e.ledger.Claim(ctx, ledger.ExecContext{Sender: recipient}, ledger.ClaimMsg{})
	require.NoError(t, err)
	require.Len(t, res.PayoutIDs, len(tokens))
	return res.PayoutIDs
}

func (e *testEnv) payout(t *testing.T, payoutId string) *models.Payout {
	t.Helper()
	payout, err := e.dispatcher.Payout(payoutId)
	require.NoError(t, err)
	require.NotNil(t, payout)
	return payout
}

func TestNewDispatcherRequiresDatabase(t *testing.T) {
	_, err := NewDispatcher(DispatcherConfig{})
	require.ErrorIs(t, err, ErrNoDatabase)
}

func TestDispatchPendingSends(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sink.failures = 0
	alice := testutil.Address(t, 1)
	contract := testutil.Address(t, 0xaa)
	payoutIds := env.claim(t, alice, token.Denom("uatom"), token.Address(contract))
	sent, err := env.dispatcher.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	delivered := env.sink.Delivered()
	require.Len(t, delivered, 2)
	// Payouts are delivered in creation order, which follows token key order
	assert.Equal(t, token.InstructionContractExecute, delivered[0].Kind)
	assert.Equal(t, token.Address(contract), delivered[0].Token)
	assert.Equal(t, token.InstructionBankSend, delivered[1].Kind)
	assert.Equal(t, alice, delivered[1].Recipient)
	assert.True(t, safemath.NewUint128(25).Equal(delivered[1].Amount))
	for _, payoutId := range payoutIds {
		payout := env.payout(t, payoutId)
		assert.Equal(t, models.PayoutStatusSent, payout.Status)
		assert.Equal(t, uint32(1), payout.Attempts)
		assert.NotNil(t, payout.SentAt)
		assert.Empty(t, payout.LastError)
	}
	assert.InDelta(t, 2, promtestutil.ToFloat64(env.dispatcher.metrics.sentTotal), 0)
	// Nothing left to do
	sent, err = env.dispatcher.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Len(t, env.sink.Delivered(), 2)
}

func TestDispatchRetriesThenSucceeds(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sink.failures = 2
	payoutIds := env.claim(t, testutil.Address(t, 1), token.Denom("uatom"))
	sent, err := env.dispatcher.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	payout := env.payout(t, payoutIds[0])
	assert.Equal(t, models.PayoutStatusSent, payout.Status)
	assert.Equal(t, uint32(3), payout.Attempts)
}

func TestDispatchMarksFailed(t *testing.T) {
	env := newTestEnv(t, nil, func(cfg *DispatcherConfig) {
		cfg.MaxRetries = 2
	})
	env.sink.failures = -1
	payoutIds := env.claim(t, testutil.Address(t, 1), token.Denom("uatom"))
	sent, err := env.dispatcher.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	payout := env.payout(t, payoutIds[0])
	assert.Equal(t, models.PayoutStatusFailed, payout.Status)
	assert.Equal(t, uint32(3), payout.Attempts)
	assert.Equal(t, "sink unavailable", payout.LastError)
	assert.Nil(t, payout.SentAt)
	assert.InDelta(t, 1, promtestutil.ToFloat64(env.dispatcher.metrics.failedTotal), 0)
	// Failed payouts are not picked up again
	sent, err = env.dispatcher.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Equal(t, 3, env.sink.calls)
}

func TestDispatchPermanentError(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sink.failures = -1
	env.sink.err = backoff.Permanent(errors.New("rejected"))
	payoutIds := env.claim(t, testutil.Address(t, 1), token.Denom("uatom"))
	_, err := env.dispatcher.DispatchPending(context.Background())
	require.NoError(t, err)
	payout := env.payout(t, payoutIds[0])
	assert.Equal(t, models.PayoutStatusFailed, payout.Status)
	assert.Equal(t, uint32(1), payout.Attempts)
	assert.Equal(t, "rejected", payout.LastError)
}

func TestDispatchCanceledLeavesPending(t *testing.T) {
	env := newTestEnv(t, nil)
	env.sink.failures = -1
	payoutIds := env.claim(t, testutil.Address(t, 1), token.Denom("uatom"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := env.dispatcher.DispatchPending(ctx)
	require.ErrorIs(t, err, context.Canceled)
	payout := env.payout(t, payoutIds[0])
	assert.Equal(t, models.PayoutStatusPending, payout.Status)
}

func TestDispatcherWakesOnClaim(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	env := newTestEnv(t, eb, func(cfg *DispatcherConfig) {
		// Only a claim event can trigger delivery within the test
		cfg.Interval = time.Hour
	})
	env.sink.failures = 0
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	defer eb.Stop()
	require.NoError(t, env.dispatcher.Start(context.Background()))
	defer env.dispatcher.Stop()
	require.Error(t, env.dispatcher.Start(context.Background()))

	alice := testutil.Address(t, 1)
	payoutIds := env.claim(t, alice, token.Denom("uatom"))
	testutil.WaitForCondition(
		t,
		func() bool {
			payout, err := env.dispatcher.Payout(payoutIds[0])
			return err == nil && payout != nil &&
				payout.Status == models.PayoutStatusSent
		},
		5*time.Second,
		"payout was not delivered",
	)
	payouts, err := env.dispatcher.Payouts(alice, 0)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.Equal(t, payoutIds[0], payouts[0].PayoutID)
}

func TestDispatcherStop(t *testing.T) {
	env := newTestEnv(t, nil)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	// Stop before Start is a no-op
	env.dispatcher.Stop()
	require.NoError(t, env.dispatcher.Start(context.Background()))
	env.dispatcher.Stop()
	env.dispatcher.Stop()
	// The dispatcher can be restarted
	require.NoError(t, env.dispatcher.Start(context.Background()))
	env.dispatcher.Stop()
}

func TestLogSink(t *testing.T) {
	instruction, err := token.Denom("uatom").Transfer(
		testutil.Address(t, 1),
		safemath.NewUint128(5),
	)
	require.NoError(t, err)
	require.NoError(t, NewLogSink(nil).Deliver(context.Background(), "id", instruction))
}
