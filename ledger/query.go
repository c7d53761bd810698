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
	"context"
	"fmt"

	"github.com/blinklabs-io/claimsd/database"
	"github.com/blinklabs-io/claimsd/database/types"
	"github.com/blinklabs-io/claimsd/token"
	"go.opentelemetry.io/otel/attribute"
)

// Claims returns one page of a recipient's claims in descending order of the
// requested sort key. Without a cursor the page starts at the largest key;
// with one it resumes strictly below the cursor. The returned cursor is set
// only when the page is full.
func (ls *LedgerState) Claims(
	ctx context.Context,
	query ClaimsQuery,
) (res *ClaimsResponse, err error) {
	ctx, done := ls.startOp(
		ctx,
		opQuery,
		attribute.String("address", query.Address),
		attribute.String("order_by", string(query.OrderBy)),
	)
	defer func() { done(err) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := token.ValidateAddress(query.Address, ls.config.AddressPrefix); err != nil {
		return nil, validationError("%s", err)
	}
	table, err := orderIndexPrefix(query.OrderBy)
	if err != nil {
		return nil, err
	}
	if query.Cursor != nil && query.Cursor.Kind != query.OrderBy {
		return nil, validationError(
			"cursor kind %q does not match order %q",
			query.Cursor.Kind,
			query.OrderBy,
		)
	}
	ls.metrics.queriesTotal.Inc()
	err = ls.db.View(func(txn *database.Txn) error {
		var err error
		res, err = ls.scanDescending(txn, query.Address, table, query.OrderBy, query.Cursor)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (ls *LedgerState) scanDescending(
	txn *database.Txn,
	recipient string,
	table byte,
	orderBy OrderKey,
	cursor *Cursor,
) (*ClaimsResponse, error) {
	prefix := types.ClaimIndexPrefix(table, recipient)
	keyRange := database.BlobKeyRange{
		Prefix:  prefix,
		Reverse: true,
		Limit:   ls.config.PageLimit,
	}
	if cursor != nil {
		end, err := cursor.indexKey(recipient)
		if err != nil {
			return nil, err
		}
		keyRange.End = end
	}
	keys, err := ls.db.BlobKeys(txn, keyRange)
	if err != nil {
		return nil, err
	}
	ret := &ClaimsResponse{
		Claims: make([]ClaimRecord, 0, len(keys)),
	}
	var last Cursor
	for _, key := range keys {
		pos, err := decodeIndexKey(orderBy, prefix, key)
		if err != nil {
			return nil, err
		}
		rec, err := ls.loadRecord(txn, pos.ID)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, fmt.Errorf(
				"%w: %s entry for %s points at missing claim %d",
				ErrIndexCorrupt,
				orderBy,
				recipient,
				pos.ID,
			)
		}
		ret.Claims = append(ret.Claims, *rec)
		last = pos
	}
	if len(ret.Claims) >= ls.config.PageLimit {
		ret.Cursor = &last
	}
	return ret, nil
}
