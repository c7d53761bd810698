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
	"encoding/json"
	"slices"
	"time"

	"github.com/blinklabs-io/claimsd/database"
	"github.com/blinklabs-io/claimsd/database/models"
	"github.com/blinklabs-io/claimsd/database/types"
	"github.com/blinklabs-io/claimsd/safemath"
	"github.com/blinklabs-io/claimsd/token"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Claim withdraws the sender's claims with the given IDs, or its oldest
// claims up to the batch limit when no IDs are given. IDs that do not name a
// live claim of the sender are skipped. One transfer instruction per claimed
// token is queued as a pending payout in the same transaction.
func (ls *LedgerState) Claim(
	ctx context.Context,
	ec ExecContext,
	msg ClaimMsg,
) (res *ClaimResult, err error) {
	ctx, done := ls.startOp(
		ctx,
		opClaim,
		attribute.String("claimant", ec.Sender),
		attribute.Int("ids", len(msg.IDs)),
	)
	defer func() { done(err) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recipient := ec.Sender
	if err := token.ValidateAddress(recipient, ls.config.AddressPrefix); err != nil {
		return nil, validationError("%s", err)
	}
	if msg.IDs != nil && len(msg.IDs) > ls.config.BatchLimit {
		return nil, validationError(
			"cannot claim more than %d records per tx",
			ls.config.BatchLimit,
		)
	}
	now, err := ls.requestTime(ec)
	if err != nil {
		return nil, err
	}
	res = &ClaimResult{
		Recipient: recipient,
		Attributes: []Attribute{
			attr("action", "claim"),
			attr("claimant", recipient),
		},
	}
	err = ls.update(func(txn *database.Txn) error {
		ids := msg.IDs
		if ids == nil {
			var err error
			ids, err = ls.recipientClaimIDs(txn, recipient, ls.config.BatchLimit)
			if err != nil {
				return err
			}
		}
		totals, err := ls.claimRecords(txn, recipient, ids)
		if err != nil {
			return err
		}
		// Bound the number of transfers emitted by one request
		if len(totals) > ls.config.SubmsgLimit {
			return validationError(
				"cannot claim more than %d token types per tx",
				ls.config.SubmsgLimit,
			)
		}
		payouts := make([]models.Payout, 0, len(totals))
		for _, total := range totals {
			if total.Amount.IsZero() {
				continue
			}
			instruction, err := total.Token.Transfer(recipient, total.Amount)
			if err != nil {
				return err
			}
			payout, err := newPayout(instruction, total.IDs, now)
			if err != nil {
				return err
			}
			res.Claimed = append(res.Claimed, total)
			res.Instructions = append(res.Instructions, instruction)
			res.ClaimIDs = append(res.ClaimIDs, total.IDs...)
			res.PayoutIDs = append(res.PayoutIDs, payout.PayoutID)
			payouts = append(payouts, payout)
		}
		return ls.db.Metadata().CreatePayouts(payouts, txn.Metadata())
	})
	if err != nil {
		ls.config.Logger.Debug(
			"claim failed",
			"component", "ledger",
			"claimant", recipient,
			"error", err,
		)
		return nil, err
	}
	slices.Sort(res.ClaimIDs)
	ls.metrics.claimsTotal.Inc()
	ls.metrics.claimedRecordsTotal.Add(float64(len(res.ClaimIDs)))
	ls.config.Logger.Info(
		"claimed",
		"component", "ledger",
		"claimant", recipient,
		"records", len(res.ClaimIDs),
		"tokens", len(res.Claimed),
	)
	ls.publish(
		ClaimEventType,
		ClaimEvent{
			Recipient: recipient,
			Claimed:   res.Claimed,
			PayoutIDs: res.PayoutIDs,
		},
	)
	return res, nil
}

// recipientClaimIDs returns up to limit of the recipient's claim IDs in
// ascending order
func (ls *LedgerState) recipientClaimIDs(
	txn *database.Txn,
	recipient string,
	limit int,
) ([]uint64, error) {
	prefix := types.ClaimIndexPrefix(types.ClaimByRecipientKeyPrefix, recipient)
	keys, err := ls.db.BlobKeys(
		txn,
		database.BlobKeyRange{
			Prefix: prefix,
			Limit:  limit,
		},
	)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(keys))
	for _, key := range keys {
		id, err := decodeRecipientIndexKey(prefix, key)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// claimRecords removes the given claims and returns the claimed totals
// grouped by token, ordered by token key
func (ls *LedgerState) claimRecords(
	txn *database.Txn,
	recipient string,
	ids []uint64,
) ([]ClaimedTotal, error) {
	totals := make(map[string]*ClaimedTotal)
	for _, id := range ids {
		rec, err := ls.removeRecordAndAllIndexes(txn, recipient, id)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		key := rec.Token.Key()
		total, ok := totals[key]
		if !ok {
			totals[key] = &ClaimedTotal{
				Token:  rec.Token,
				Amount: rec.Amount,
				IDs:    []uint64{id},
			}
			continue
		}
		total.Amount, err = safemath.Add128(total.Amount, rec.Amount)
		if err != nil {
			return nil, err
		}
		total.IDs = append(total.IDs, id)
	}
	keys := make([]string, 0, len(totals))
	for key := range totals {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	ret := make([]ClaimedTotal, 0, len(keys))
	for _, key := range keys {
		ret = append(ret, *totals[key])
	}
	return ret, nil
}

func newPayout(
	instruction token.Instruction,
	claimIDs []uint64,
	now time.Time,
) (models.Payout, error) {
	claimIDsJson, err := json.Marshal(claimIDs)
	if err != nil {
		return models.Payout{}, err
	}
	return models.Payout{
		PayoutID:  uuid.NewString(),
		Recipient: instruction.Recipient,
		TokenKey:  instruction.Token.Key(),
		Kind:      string(instruction.Kind),
		Status:    models.PayoutStatusPending,
		Amount:    types.Uint128{Uint128: instruction.Amount},
		Payload:   instruction.Payload,
		ClaimIDs:  claimIDsJson,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
