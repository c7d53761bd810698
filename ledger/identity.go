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
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blinklabs-io/claimsd/database"
	"github.com/blinklabs-io/claimsd/database/types"
	"github.com/blinklabs-io/claimsd/safemath"
)

func decodeClaimID(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf(
			"%w: claim ID must be 8 bytes, got %d",
			types.ErrMalformedKey,
			len(data),
		)
	}
	return binary.BigEndian.Uint64(data), nil
}

// lastClaimID returns the most recently allocated claim ID, 0 if none
func (ls *LedgerState) lastClaimID(txn *database.Txn) (uint64, error) {
	data, err := ls.db.Blob().Get(txn.Blob(), types.ClaimCounterKey())
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("load claim counter: %w", err)
	}
	return decodeClaimID(data)
}

// nextClaimID increments the global counter and returns the new value
func (ls *LedgerState) nextClaimID(txn *database.Txn) (uint64, error) {
	last, err := ls.lastClaimID(txn)
	if err != nil {
		return 0, err
	}
	next, err := safemath.AddUint64(last, 1)
	if err != nil {
		return 0, err
	}
	if err := ls.db.Blob().Set(
		txn.Blob(),
		types.ClaimCounterKey(),
		types.KeyUint64ToBytes(next),
	); err != nil {
		return 0, fmt.Errorf("store claim counter: %w", err)
	}
	return next, nil
}

// resolveOrCreate returns the claim ID for an identity key, allocating one on
// first use. The mapping is never removed.
func (ls *LedgerState) resolveOrCreate(
	txn *database.Txn,
	name string,
	tokenKey string,
	recipient string,
) (uint64, bool, error) {
	key := types.ClaimIdentityKey(name, tokenKey, recipient)
	data, err := ls.db.Blob().Get(txn.Blob(), key)
	if err == nil {
		id, err := decodeClaimID(data)
		return id, false, err
	}
	if !errors.Is(err, types.ErrBlobKeyNotFound) {
		return 0, false, fmt.Errorf("load claim identity: %w", err)
	}
	id, err := ls.nextClaimID(txn)
	if err != nil {
		return 0, false, err
	}
	if err := ls.db.Blob().Set(txn.Blob(), key, types.KeyUint64ToBytes(id)); err != nil {
		return 0, false, fmt.Errorf("store claim identity: %w", err)
	}
	return id, true, nil
}
