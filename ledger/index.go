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
	"fmt"

	"github.com/blinklabs-io/claimsd/database"
	"github.com/blinklabs-io/claimsd/database/types"
	"github.com/blinklabs-io/claimsd/safemath"
)

// claimIndexKeys holds the entry a record has in each of the four indexes
type claimIndexKeys struct {
	byRecipient []byte
	byTime      []byte
	byAmount    []byte
	byToken     []byte
}

func (k claimIndexKeys) all() [][]byte {
	return [][]byte{k.byRecipient, k.byTime, k.byAmount, k.byToken}
}

func indexKeysFor(rec ClaimRecord) (claimIndexKeys, error) {
	nanos, err := safemath.UnixNanos(rec.UpdatedAt)
	if err != nil {
		return claimIndexKeys{}, fmt.Errorf("claim %d: %w", rec.ID, err)
	}
	return claimIndexKeys{
		byRecipient: types.ClaimByRecipientKey(rec.Recipient, rec.ID),
		byTime:      types.ClaimByTimeKey(rec.Recipient, nanos, rec.ID),
		byAmount:    types.ClaimByAmountKey(rec.Recipient, rec.Amount, rec.ID),
		byToken:     types.ClaimByTokenKey(rec.Recipient, rec.Token.Key(), rec.ID),
	}, nil
}

// indexPlan is the set of index writes needed to move from one record state
// to another. Deletes are applied before inserts.
type indexPlan struct {
	Deletes [][]byte
	Inserts [][]byte
}

// reindexPlan computes the index changes for a record going from prev (nil for
// a new record) to next. Entries whose key is unchanged are only re-inserted,
// which is a no-op for the store.
func reindexPlan(prev *ClaimRecord, next ClaimRecord) (indexPlan, error) {
	nextKeys, err := indexKeysFor(next)
	if err != nil {
		return indexPlan{}, err
	}
	plan := indexPlan{
		Inserts: nextKeys.all(),
	}
	if prev == nil {
		return plan, nil
	}
	prevKeys, err := indexKeysFor(*prev)
	if err != nil {
		return indexPlan{}, err
	}
	prevAll := prevKeys.all()
	for i, nextKey := range nextKeys.all() {
		if !bytes.Equal(prevAll[i], nextKey) {
			plan.Deletes = append(plan.Deletes, prevAll[i])
		}
	}
	return plan, nil
}

func (ls *LedgerState) applyIndexPlan(txn *database.Txn, plan indexPlan) error {
	for _, key := range plan.Deletes {
		if err := ls.db.Blob().Delete(txn.Blob(), key); err != nil {
			return fmt.Errorf("delete index entry: %w", err)
		}
	}
	for _, key := range plan.Inserts {
		if err := ls.db.Blob().Set(txn.Blob(), key, nil); err != nil {
			return fmt.Errorf("insert index entry: %w", err)
		}
	}
	return nil
}

// decodeIndexKey returns the sort component and claim ID of an entry in one
// of the ordered indexes, as a cursor
func decodeIndexKey(
	orderBy OrderKey,
	prefix []byte,
	key []byte,
) (Cursor, error) {
	if !bytes.HasPrefix(key, prefix) {
		return Cursor{}, fmt.Errorf("%w: index key outside prefix", types.ErrMalformedKey)
	}
	r := types.NewKeyReader(key)
	if err := r.Skip(len(prefix)); err != nil {
		return Cursor{}, err
	}
	ret := Cursor{Kind: orderBy}
	var err error
	switch orderBy {
	case OrderByUpdatedAt:
		ret.Time, err = r.ReadUint64()
	case OrderByAmount:
		ret.Amount, err = r.ReadUint128()
	case OrderByToken:
		ret.Token, err = r.ReadString()
	default:
		return Cursor{}, validationError("unknown order %q", orderBy)
	}
	if err != nil {
		return Cursor{}, err
	}
	if ret.ID, err = r.ReadUint64(); err != nil {
		return Cursor{}, err
	}
	if r.Len() != 0 {
		return Cursor{}, fmt.Errorf("%w: trailing index key bytes", types.ErrMalformedKey)
	}
	return ret, nil
}

// decodeRecipientIndexKey returns the claim ID of a by-recipient entry
func decodeRecipientIndexKey(prefix []byte, key []byte) (uint64, error) {
	r := types.NewKeyReader(key)
	if err := r.Skip(len(prefix)); err != nil {
		return 0, err
	}
	id, err := r.ReadUint64()
	if err != nil {
		return 0, err
	}
	if r.Len() != 0 {
		return 0, fmt.Errorf("%w: trailing index key bytes", types.ErrMalformedKey)
	}
	return id, nil
}

func orderIndexPrefix(orderBy OrderKey) (byte, error) {
	switch orderBy {
	case OrderByUpdatedAt:
		return types.ClaimByTimeKeyPrefix, nil
	case OrderByAmount:
		return types.ClaimByAmountKeyPrefix, nil
	case OrderByToken:
		return types.ClaimByTokenKeyPrefix, nil
	}
	return 0, validationError("unknown order %q", orderBy)
}
