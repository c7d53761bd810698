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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/claimsd/internal/test/testutil"
	"github.com/blinklabs-io/claimsd/payout"
	"github.com/blinklabs-io/claimsd/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deliveredPayout struct {
	payoutId    string
	instruction token.Instruction
}

func startTestNode(
	t *testing.T,
	ctx context.Context,
	opts ...ConfigOptionFunc,
) (*Node, <-chan error) {
	t.Helper()
	opts = append(
		[]ConfigOptionFunc{
			WithDatabasePath(t.TempDir()),
			WithApiListenAddress("127.0.0.1:0"),
			WithPrometheusRegistry(prometheus.NewRegistry()),
			WithAddressPrefix(testutil.TestAddressPrefix),
			WithShutdownTimeout(5 * time.Second),
		},
		opts...,
	)
	n, err := New(NewConfig(opts...))
	require.NoError(t, err)
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Run(ctx)
	}()
	select {
	case <-n.Ready():
	case err := <-errCh:
		t.Fatalf("node exited before becoming ready: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for node to start")
	}
	return n, errCh
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	resp, err := http.Post(url, "application/json", &buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestNodeUpsertClaimDeliversPayout(t *testing.T) {
	var mu sync.Mutex
	var delivered []deliveredPayout
	sink := payout.SinkFunc(
		func(_ context.Context, payoutId string, instruction token.Instruction) error {
			mu.Lock()
			defer mu.Unlock()
			delivered = append(delivered, deliveredPayout{payoutId, instruction})
			return nil
		},
	)
	n, errCh := startTestNode(
		t,
		t.Context(),
		WithPayoutSink(sink),
		WithPayoutInterval(time.Hour),
	)
	base := "http://" + n.ApiAddr().String()
	alice := testutil.Address(t, 1)
	bob := testutil.Address(t, 2)

	resp := postJSON(t, base+"/api/v0/execute/upsert", map[string]any{
		"sender": bob,
		"funds":  []map[string]string{{"denom": "uatom", "amount": "25"}},
		"msg": map[string]any{
			"name":    "airdrop",
			"token":   map[string]string{"denom": "uatom"},
			"amounts": [][]string{{alice, "25"}},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, base+"/api/v0/execute/claim", map[string]any{
		"sender": alice,
		"msg":    map[string]any{},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	testutil.WaitForCondition(
		t,
		func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(delivered) == 1
		},
		5*time.Second,
		"payout was not delivered",
	)
	mu.Lock()
	got := delivered[0]
	mu.Unlock()
	assert.NotEmpty(t, got.payoutId)
	assert.Equal(t, token.InstructionBankSend, got.instruction.Kind)
	assert.Equal(t, alice, got.instruction.Recipient)
	assert.Equal(t, "25", got.instruction.Amount.String())

	require.NoError(t, n.Stop())
	require.NoError(t, <-errCh)
	assert.Nil(t, n.ApiAddr())
	// Stop is idempotent
	require.NoError(t, n.Stop())
}

func TestNodeStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	n, errCh := startTestNode(t, ctx, WithPayoutDisabled(true))
	require.NotNil(t, n.LedgerState())
	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("node did not stop after context cancellation")
	}
}

func TestNodeReopensDatabase(t *testing.T) {
	dataDir := t.TempDir()
	n, errCh := startTestNode(
		t,
		t.Context(),
		WithDatabasePath(dataDir),
		WithPayoutDisabled(true),
	)
	base := "http://" + n.ApiAddr().String()
	alice := testutil.Address(t, 1)
	resp := postJSON(t, base+"/api/v0/execute/upsert", map[string]any{
		"sender": alice,
		"funds":  []map[string]string{{"denom": "uatom", "amount": "7"}},
		"msg": map[string]any{
			"name":    "airdrop",
			"token":   map[string]string{"denom": "uatom"},
			"amounts": [][]string{{alice, "7"}},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, n.Stop())
	require.NoError(t, <-errCh)

	n, errCh = startTestNode(
		t,
		t.Context(),
		WithDatabasePath(dataDir),
		WithPayoutDisabled(true),
	)
	lastId, err := n.LedgerState().LastClaimID()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), lastId)
	require.NoError(t, n.Stop())
	require.NoError(t, <-errCh)
}
