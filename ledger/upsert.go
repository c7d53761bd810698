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
	"time"

	"github.com/blinklabs-io/claimsd/database"
	"github.com/blinklabs-io/claimsd/safemath"
	"github.com/blinklabs-io/claimsd/token"
	"go.opentelemetry.io/otel/attribute"
)

// validateUpsert checks the message and returns the sum of its contributions
func (ls *LedgerState) validateUpsert(msg UpsertMsg) (safemath.Uint128, error) {
	var total safemath.Uint128
	if msg.Name == "" {
		return total, validationError("batch name must not be empty")
	}
	if len(msg.Amounts) == 0 {
		return total, validationError("no amounts to upsert")
	}
	if err := msg.Token.Validate(ls.config.AddressPrefix); err != nil {
		return total, validationError("%s", err)
	}
	for i, c := range msg.Amounts {
		if err := token.ValidateAddress(c.Recipient, ls.config.AddressPrefix); err != nil {
			return total, validationError("amount %d: %s", i, err)
		}
		if c.Amount.IsZero() {
			return total, validationError("amount %d: zero amount for %s", i, c.Recipient)
		}
		var err error
		total, err = safemath.Add128(total, c.Amount)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// UpsertNative applies an upsert paid for with native funds attached to the
// request. The funds must include exactly the total of all contributions in
// the upserted denomination.
func (ls *LedgerState) UpsertNative(
	ctx context.Context,
	ec ExecContext,
	msg UpsertMsg,
) (*UpsertResult, error) {
	total, err := ls.validateUpsert(msg)
	if err != nil {
		return nil, ls.reject(opUpsert, err)
	}
	if _, ok := msg.Token.FindInFunds(ec.Funds, &total); !ok {
		return nil, ls.reject(
			opUpsert,
			insufficientFundsError(
				"insufficient funds to cover total upserted claim amount",
			),
		)
	}
	now, err := ls.requestTime(ec)
	if err != nil {
		return nil, ls.reject(opUpsert, err)
	}
	return ls.Upsert(ctx, msg, now)
}

// UpsertPushed applies an upsert carried by a token contract's receive
// callback. The sender must be the upserted token's contract and the pushed
// amount must equal the total of all contributions.
func (ls *LedgerState) UpsertPushed(
	ctx context.Context,
	ec ExecContext,
	msg ReceiveMsg,
) (*UpsertResult, error) {
	var upsertMsg UpsertMsg
	if err := json.Unmarshal(msg.Msg, &upsertMsg); err != nil {
		return nil, ls.reject(
			opUpsert,
			validationError("invalid upsert message: %s", err),
		)
	}
	contract, ok := upsertMsg.Token.Address()
	if !ok {
		return nil, ls.reject(
			opUpsert,
			notAuthorizedError("upserted token is not a contract token"),
		)
	}
	if ec.Sender != contract {
		return nil, ls.reject(
			opUpsert,
			notAuthorizedError("sender does not match upserted token address"),
		)
	}
	total, err := ls.validateUpsert(upsertMsg)
	if err != nil {
		return nil, ls.reject(opUpsert, err)
	}
	if !total.Equal(msg.Amount) {
		return nil, ls.reject(
			opUpsert,
			insufficientFundsError(
				"insufficient funds to cover total upserted claim amount",
			),
		)
	}
	now, err := ls.requestTime(ec)
	if err != nil {
		return nil, ls.reject(opUpsert, err)
	}
	return ls.Upsert(ctx, upsertMsg, now)
}

// Upsert merges each contribution into its claim, in order. The whole message
// is applied in one transaction: on error nothing is written.
func (ls *LedgerState) Upsert(
	ctx context.Context,
	msg UpsertMsg,
	now time.Time,
) (res *UpsertResult, err error) {
	ctx, done := ls.startOp(
		ctx,
		opUpsert,
		attribute.String("name", msg.Name),
		attribute.String("token", msg.Token.Key()),
		attribute.Int("contributions", len(msg.Amounts)),
	)
	defer func() { done(err) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := ls.validateUpsert(msg); err != nil {
		return nil, err
	}
	tokenKey := msg.Token.Key()
	claims := make([]UpsertedClaim, 0, len(msg.Amounts))
	err = ls.update(func(txn *database.Txn) error {
		for _, c := range msg.Amounts {
			id, _, err := ls.resolveOrCreate(txn, msg.Name, tokenKey, c.Recipient)
			if err != nil {
				return err
			}
			next, prev, err := ls.upsertContribution(
				txn,
				id,
				c.Recipient,
				msg.Token,
				msg.Name,
				c.Amount,
				now,
			)
			if err != nil {
				return err
			}
			plan, err := reindexPlan(prev, next)
			if err != nil {
				return err
			}
			if err := ls.applyIndexPlan(txn, plan); err != nil {
				return err
			}
			claims = append(
				claims,
				UpsertedClaim{
					ID:        id,
					Recipient: c.Recipient,
					Delta:     c.Amount,
					Amount:    next.Amount,
					Created:   prev == nil,
				},
			)
		}
		return nil
	})
	if err != nil {
		ls.config.Logger.Debug(
			"upsert failed",
			"component", "ledger",
			"name", msg.Name,
			"token", tokenKey,
			"error", err,
		)
		return nil, err
	}
	created := 0
	for _, c := range claims {
		if c.Created {
			created++
		}
	}
	ls.metrics.upsertsTotal.Inc()
	ls.metrics.contributionsTotal.Add(float64(len(claims)))
	ls.metrics.claimsCreatedTotal.Add(float64(created))
	ls.config.Logger.Info(
		"upserted claims",
		"component", "ledger",
		"name", msg.Name,
		"token", tokenKey,
		"contributions", len(claims),
		"created", created,
	)
	ls.publish(
		UpsertEventType,
		UpsertEvent{
			Name:   msg.Name,
			Token:  msg.Token,
			Claims: claims,
		},
	)
	return &UpsertResult{
		Attributes: []Attribute{
			attr("action", "upsert"),
			attr("name", msg.Name),
		},
		Claims: claims,
	}, nil
}
