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

package ledger

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/claimsd/database"
	"github.com/blinklabs-io/claimsd/database/types"
	"github.com/blinklabs-io/claimsd/internal/test/testutil"
	"github.com/blinklabs-io/claimsd/safemath"
	"github.com/blinklabs-io/claimsd/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStartTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// testClock returns a clock that advances by one second on every call
func testClock() func() time.Time {
	var mu sync.Mutex
	now := testStartTime
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newTestLedger(t *testing.T, opts ...func(*LedgerStateConfig)) *LedgerState {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	cfg := LedgerStateConfig{
		Database:      db,
		Now:           testClock(),
		AddressPrefix: testutil.TestAddressPrefix,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	ls, err := NewLedgerState(cfg)
	require.NoError(t, err)
	return ls
}

func amount(v uint64) safemath.Uint128 {
	return safemath.NewUint128(v)
}

func upsertMsg(name string, tok token.Token, amounts ...Contribution) UpsertMsg {
	return UpsertMsg{Name: name, Token: tok, Amounts: amounts}
}

func mustUpsert(t *testing.T, ls *LedgerState, msg UpsertMsg) *UpsertResult {
	t.Helper()
	res, err := ls.Upsert(context.Background(), msg, ls.config.Now())
	require.NoError(t, err)
	return res
}

func indexKeysUnder(t *testing.T, ls *LedgerState, table byte, recipient string) [][]byte {
	t.Helper()
	keys, err := ls.db.BlobKeys(
		nil,
		database.BlobKeyRange{Prefix: types.ClaimIndexPrefix(table, recipient)},
	)
	require.NoError(t, err)
	return keys
}

// requireIndexConsistent checks that every live claim of recipient has exactly
// one entry in each index, carrying the record's current sort values
func requireIndexConsistent(t *testing.T, ls *LedgerState, recipient string) []ClaimRecord {
	t.Helper()
	txn := ls.db.Transaction(false)
	defer txn.Release()
	recipientPrefix := types.ClaimIndexPrefix(types.ClaimByRecipientKeyPrefix, recipient)
	records := make(map[uint64]ClaimRecord)
	var ret []ClaimRecord
	for _, key := range indexKeysUnder(t, ls, types.ClaimByRecipientKeyPrefix, recipient) {
		id, err := decodeRecipientIndexKey(recipientPrefix, key)
		require.NoError(t, err)
		rec, err := ls.loadRecord(txn, id)
		require.NoError(t, err)
		require.NotNil(t, rec, "by-recipient entry %d has no record", id)
		assert.False(t, rec.Amount.IsZero(), "record %d has zero amount", id)
		assert.Equal(t, recipient, rec.Recipient)
		records[id] = *rec
		ret = append(ret, *rec)
	}
	for _, orderBy := range []OrderKey{OrderByUpdatedAt, OrderByAmount, OrderByToken} {
		table, err := orderIndexPrefix(orderBy)
		require.NoError(t, err)
		prefix := types.ClaimIndexPrefix(table, recipient)
		keys := indexKeysUnder(t, ls, table, recipient)
		require.Len(t, keys, len(records), "%s index size", orderBy)
		seen := make(map[uint64]bool)
		for _, key := range keys {
			pos, err := decodeIndexKey(orderBy, prefix, key)
			require.NoError(t, err)
			rec, ok := records[pos.ID]
			require.True(t, ok, "%s entry for unknown claim %d", orderBy, pos.ID)
			require.False(t, seen[pos.ID], "duplicate %s entry for %d", orderBy, pos.ID)
			seen[pos.ID] = true
			switch orderBy {
			case OrderByUpdatedAt:
				nanos, err := safemath.UnixNanos(rec.UpdatedAt)
				require.NoError(t, err)
				assert.Equal(t, nanos, pos.Time)
			case OrderByAmount:
				assert.True(t, rec.Amount.Equal(pos.Amount))
			case OrderByToken:
				assert.Equal(t, rec.Token.Key(), pos.Token)
			}
		}
	}
	return ret
}

func TestNewLedgerStateDefaults(t *testing.T) {
	_, err := NewLedgerState(LedgerStateConfig{})
	require.Error(t, err)
	ls := newTestLedger(t)
	assert.Equal(t, DefaultBatchLimit, ls.config.BatchLimit)
	assert.Equal(t, DefaultSubmsgLimit, ls.config.SubmsgLimit)
	assert.Equal(t, DefaultPageLimit, ls.config.PageLimit)
	assert.NotNil(t, ls.config.Logger)
	id, err := ls.LastClaimID()
	require.NoError(t, err)
	assert.Zero(t, id)
}

func TestRecordEncoding(t *testing.T) {
	rec := ClaimRecord{
		ID:        7,
		Name:      "batch",
		Recipient: testutil.Address(t, 1),
		Token:     token.Denom("uatom"),
		Amount:    safemath.MaxUint128(),
		UpdatedAt: testStartTime.Add(123 * time.Nanosecond),
	}
	data, err := encodeClaimRecord(rec)
	require.NoError(t, err)
	decoded, err := decodeClaimRecord(7, data)
	require.NoError(t, err)
	assert.Equal(t, rec.Name, decoded.Name)
	assert.Equal(t, rec.Recipient, decoded.Recipient)
	assert.Equal(t, rec.Token, decoded.Token)
	assert.True(t, rec.Amount.Equal(decoded.Amount))
	assert.True(t, rec.UpdatedAt.Equal(decoded.UpdatedAt))
	_, err = decodeClaimRecord(7, []byte{0xff})
	require.Error(t, err)
	// Pre-epoch times cannot be stored
	rec.UpdatedAt = time.Unix(-1, 0)
	_, err = encodeClaimRecord(rec)
	require.Error(t, err)
}

func TestResolveOrCreate(t *testing.T) {
	ls := newTestLedger(t)
	alice := testutil.Address(t, 1)
	err := ls.db.Update(func(txn *database.Txn) error {
		id1, created, err := ls.resolveOrCreate(txn, "a", "d:uatom", alice)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, uint64(1), id1)
		id2, created, err := ls.resolveOrCreate(txn, "a", "d:uatom", alice)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, id1, id2)
		// Any component change is a different identity
		id3, _, err := ls.resolveOrCreate(txn, "b", "d:uatom", alice)
		require.NoError(t, err)
		id4, _, err := ls.resolveOrCreate(txn, "a", "d:uosmo", alice)
		require.NoError(t, err)
		assert.Equal(t, []uint64{2, 3}, []uint64{id3, id4})
		return nil
	})
	require.NoError(t, err)
	id, err := ls.LastClaimID()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)
}

func TestClaimCounterOverflow(t *testing.T) {
	ls := newTestLedger(t)
	err := ls.db.Update(func(txn *database.Txn) error {
		if err := ls.db.Blob().Set(
			txn.Blob(),
			types.ClaimCounterKey(),
			bytes.Repeat([]byte{0xff}, 8),
		); err != nil {
			return err
		}
		_, _, err := ls.resolveOrCreate(txn, "a", "d:uatom", testutil.Address(t, 1))
		return err
	})
	require.ErrorIs(t, err, ErrOverflow)
}

func TestUpdateReleasesLockOnPanic(t *testing.T) {
	ls := newTestLedger(t)
	alice := testutil.Address(t, 1)
	assert.PanicsWithValue(t, "boom", func() {
		_ = ls.update(func(txn *database.Txn) error {
			if _, _, err := ls.resolveOrCreate(txn, "a", "d:uatom", alice); err != nil {
				return err
			}
			panic("boom")
		})
	})
	// The allocation was rolled back and the next mutation does not block
	done := make(chan *UpsertResult, 1)
	go func() {
		res, err := ls.Upsert(
			context.Background(),
			upsertMsg("a", token.Denom("uatom"), Contribution{alice, amount(1)}),
			ls.config.Now(),
		)
		assert.NoError(t, err)
		done <- res
	}()
	select {
	case res := <-done:
		require.NotNil(t, res)
		require.Len(t, res.Claims, 1)
		assert.Equal(t, uint64(1), res.Claims[0].ID)
	case <-time.After(5 * time.Second):
		t.Fatal("upsert blocked on the ledger lock")
	}
}
