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
	"errors"
	"fmt"
	"time"

	"github.com/blinklabs-io/claimsd/database"
	"github.com/blinklabs-io/claimsd/database/types"
	"github.com/blinklabs-io/claimsd/safemath"
	"github.com/blinklabs-io/claimsd/token"
	"github.com/fxamacker/cbor/v2"
)

// ClaimRecord is an amount of one token owed to one recipient under one batch
// name. A record exists only while its amount is positive.
type ClaimRecord struct {
	UpdatedAt time.Time        `json:"updated_at"`
	Name      string           `json:"name"`
	Recipient string           `json:"recipient"`
	Token     token.Token      `json:"token"`
	Amount    safemath.Uint128 `json:"amount"`
	ID        uint64           `json:"id"`
}

// storedClaimRecord is the value stored under a record key. The ID is part
// of the key.
type storedClaimRecord struct {
	_         struct{} `cbor:",toarray"`
	Name      string
	Recipient string
	Token     token.Token
	Amount    safemath.Uint128
	UpdatedAt uint64
}

func encodeClaimRecord(rec ClaimRecord) ([]byte, error) {
	nanos, err := safemath.UnixNanos(rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(
		storedClaimRecord{
			Name:      rec.Name,
			Recipient: rec.Recipient,
			Token:     rec.Token,
			Amount:    rec.Amount,
			UpdatedAt: nanos,
		},
	)
}

func decodeClaimRecord(id uint64, data []byte) (ClaimRecord, error) {
	var tmp storedClaimRecord
	if err := cbor.Unmarshal(data, &tmp); err != nil {
		return ClaimRecord{}, fmt.Errorf("decode claim record %d: %w", id, err)
	}
	updatedAt, err := safemath.TimeFromUnixNanos(tmp.UpdatedAt)
	if err != nil {
		return ClaimRecord{}, fmt.Errorf("decode claim record %d: %w", id, err)
	}
	return ClaimRecord{
		ID:        id,
		Name:      tmp.Name,
		Recipient: tmp.Recipient,
		Token:     tmp.Token,
		Amount:    tmp.Amount,
		UpdatedAt: updatedAt,
	}, nil
}

// loadRecord returns the record with the given ID, or nil if there is none
func (ls *LedgerState) loadRecord(
	txn *database.Txn,
	id uint64,
) (*ClaimRecord, error) {
	data, err := ls.db.Blob().Get(txn.Blob(), types.ClaimRecordKey(id))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load claim record %d: %w", id, err)
	}
	rec, err := decodeClaimRecord(id, data)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (ls *LedgerState) storeRecord(txn *database.Txn, rec ClaimRecord) error {
	data, err := encodeClaimRecord(rec)
	if err != nil {
		return err
	}
	if err := ls.db.Blob().Set(txn.Blob(), types.ClaimRecordKey(rec.ID), data); err != nil {
		return fmt.Errorf("store claim record %d: %w", rec.ID, err)
	}
	return nil
}

// upsertContribution merges delta into the record with the given ID, creating
// it when absent, and returns the new and previous states
func (ls *LedgerState) upsertContribution(
	txn *database.Txn,
	id uint64,
	recipient string,
	tok token.Token,
	name string,
	delta safemath.Uint128,
	now time.Time,
) (ClaimRecord, *ClaimRecord, error) {
	prev, err := ls.loadRecord(txn, id)
	if err != nil {
		return ClaimRecord{}, nil, err
	}
	next := ClaimRecord{
		ID:        id,
		Name:      name,
		Recipient: recipient,
		Token:     tok,
		Amount:    delta,
		UpdatedAt: now,
	}
	if prev != nil {
		next.Amount, err = safemath.Add128(prev.Amount, delta)
		if err != nil {
			return ClaimRecord{}, nil, err
		}
	}
	if err := ls.storeRecord(txn, next); err != nil {
		return ClaimRecord{}, nil, err
	}
	return next, prev, nil
}

// removeRecordAndAllIndexes deletes a recipient's record and its four index
// entries. A missing record, or one owned by another recipient, yields nil.
func (ls *LedgerState) removeRecordAndAllIndexes(
	txn *database.Txn,
	recipient string,
	id uint64,
) (*ClaimRecord, error) {
	rec, err := ls.loadRecord(txn, id)
	if err != nil || rec == nil {
		return nil, err
	}
	if rec.Recipient != recipient {
		ls.config.Logger.Debug(
			"skipping claim owned by another recipient",
			"component", "ledger",
			"id", id,
			"claimant", recipient,
		)
		return nil, nil
	}
	if err := ls.db.Blob().Delete(txn.Blob(), types.ClaimRecordKey(id)); err != nil {
		return nil, fmt.Errorf("delete claim record %d: %w", id, err)
	}
	keys, err := indexKeysFor(*rec)
	if err != nil {
		return nil, err
	}
	if err := ls.applyIndexPlan(txn, indexPlan{Deletes: keys.all()}); err != nil {
		return nil, err
	}
	return rec, nil
}
