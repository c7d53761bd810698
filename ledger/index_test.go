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
	"testing"
	"time"

	"github.com/blinklabs-io/claimsd/database/types"
	"github.com/blinklabs-io/claimsd/internal/test/testutil"
	"github.com/blinklabs-io/claimsd/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(t *testing.T, id uint64, amt uint64, at time.Time) ClaimRecord {
	return ClaimRecord{
		ID:        id,
		Name:      "batch",
		Recipient: testutil.Address(t, 1),
		Token:     token.Denom("uatom"),
		Amount:    amount(amt),
		UpdatedAt: at,
	}
}

func TestReindexPlanNewRecord(t *testing.T) {
	next := testRecord(t, 1, 10, testStartTime)
	plan, err := reindexPlan(nil, next)
	require.NoError(t, err)
	assert.Empty(t, plan.Deletes)
	keys, err := indexKeysFor(next)
	require.NoError(t, err)
	assert.Equal(t, keys.all(), plan.Inserts)
	assert.Len(t, plan.Inserts, 4)
}

func TestReindexPlanMerge(t *testing.T) {
	prev := testRecord(t, 1, 10, testStartTime)
	next := testRecord(t, 1, 25, testStartTime.Add(time.Second))
	plan, err := reindexPlan(&prev, next)
	require.NoError(t, err)
	prevKeys, err := indexKeysFor(prev)
	require.NoError(t, err)
	nextKeys, err := indexKeysFor(next)
	require.NoError(t, err)
	// Only the keys carrying a changed sort value are removed
	assert.Equal(t, [][]byte{prevKeys.byTime, prevKeys.byAmount}, plan.Deletes)
	assert.Equal(t, nextKeys.all(), plan.Inserts)
}

func TestReindexPlanSameTime(t *testing.T) {
	prev := testRecord(t, 1, 10, testStartTime)
	next := testRecord(t, 1, 11, testStartTime)
	plan, err := reindexPlan(&prev, next)
	require.NoError(t, err)
	prevKeys, err := indexKeysFor(prev)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{prevKeys.byAmount}, plan.Deletes)
}

func TestReindexPlanPreEpoch(t *testing.T) {
	_, err := reindexPlan(nil, testRecord(t, 1, 10, time.Unix(-5, 0)))
	require.Error(t, err)
}

func TestDecodeIndexKey(t *testing.T) {
	recipient := testutil.Address(t, 1)
	rec := testRecord(t, 42, 1000, testStartTime)
	keys, err := indexKeysFor(rec)
	require.NoError(t, err)

	pos, err := decodeIndexKey(
		OrderByUpdatedAt,
		types.ClaimIndexPrefix(types.ClaimByTimeKeyPrefix, recipient),
		keys.byTime,
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(testStartTime.UnixNano()), pos.Time)
	assert.Equal(t, uint64(42), pos.ID)

	pos, err = decodeIndexKey(
		OrderByAmount,
		types.ClaimIndexPrefix(types.ClaimByAmountKeyPrefix, recipient),
		keys.byAmount,
	)
	require.NoError(t, err)
	assert.True(t, amount(1000).Equal(pos.Amount))

	pos, err = decodeIndexKey(
		OrderByToken,
		types.ClaimIndexPrefix(types.ClaimByTokenKeyPrefix, recipient),
		keys.byToken,
	)
	require.NoError(t, err)
	assert.Equal(t, "d:uatom", pos.Token)

	id, err := decodeRecipientIndexKey(
		types.ClaimIndexPrefix(types.ClaimByRecipientKeyPrefix, recipient),
		keys.byRecipient,
	)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	// A key from another table does not decode
	_, err = decodeIndexKey(
		OrderByAmount,
		types.ClaimIndexPrefix(types.ClaimByAmountKeyPrefix, recipient),
		keys.byTime,
	)
	require.ErrorIs(t, err, types.ErrMalformedKey)
	// Trailing bytes are rejected
	_, err = decodeRecipientIndexKey(
		types.ClaimIndexPrefix(types.ClaimByRecipientKeyPrefix, recipient),
		append(keys.byRecipient, 0x00),
	)
	require.ErrorIs(t, err, types.ErrMalformedKey)
}
