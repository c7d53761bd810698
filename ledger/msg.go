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
	"encoding/json"
	"fmt"

	"github.com/blinklabs-io/claimsd/safemath"
	"github.com/blinklabs-io/claimsd/token"
)

// Contribution is an amount added to a recipient's claim. It uses the
// two-element array form ["<recipient>", "<amount>"] on the wire.
//
//nolint:recvcheck
type Contribution struct {
	Recipient string
	Amount    safemath.Uint128
}

func (c Contribution) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Recipient, c.Amount})
}

func (c *Contribution) UnmarshalJSON(data []byte) error {
	var tmp []json.RawMessage
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	if len(tmp) != 2 {
		return fmt.Errorf(
			"contribution must have 2 elements, got %d",
			len(tmp),
		)
	}
	if err := json.Unmarshal(tmp[0], &c.Recipient); err != nil {
		return fmt.Errorf("contribution recipient: %w", err)
	}
	if err := json.Unmarshal(tmp[1], &c.Amount); err != nil {
		return fmt.Errorf("contribution amount: %w", err)
	}
	return nil
}

// UpsertMsg adds amounts of one token owed to recipients under a batch name
type UpsertMsg struct {
	Name    string         `json:"name"`
	Token   token.Token    `json:"token"`
	Amounts []Contribution `json:"amounts"`
}

// ReceiveMsg is the callback sent by a token contract after it moved tokens
// to the ledger. Msg holds a JSON-encoded UpsertMsg.
type ReceiveMsg struct {
	Sender string           `json:"sender"`
	Amount safemath.Uint128 `json:"amount"`
	Msg    []byte           `json:"msg"`
}

// ClaimMsg withdraws claims owned by the sender. A nil IDs claims the oldest
// claims up to the batch limit.
type ClaimMsg struct {
	IDs []uint64 `json:"ids,omitempty"`
}

// OrderKey selects the ordering of a claims query
type OrderKey string

const (
	OrderByUpdatedAt OrderKey = "updated_at"
	OrderByAmount    OrderKey = "amount"
	OrderByToken     OrderKey = "token"
)

func (o OrderKey) Valid() bool {
	switch o {
	case OrderByUpdatedAt, OrderByAmount, OrderByToken:
		return true
	}
	return false
}

// ClaimsQuery requests one page of a recipient's claims in descending order
type ClaimsQuery struct {
	Cursor  *Cursor  `json:"cursor,omitempty"`
	Address string   `json:"address"`
	OrderBy OrderKey `json:"order_by"`
}

// ClaimsResponse is a page of claims. Cursor is nil on the last page.
type ClaimsResponse struct {
	Cursor *Cursor       `json:"cursor"`
	Claims []ClaimRecord `json:"claims"`
}

// UpsertResult describes an applied upsert
type UpsertResult struct {
	Attributes []Attribute     `json:"attributes"`
	Claims     []UpsertedClaim `json:"claims"`
}

// UpsertedClaim is the state of a claim after one contribution was merged
type UpsertedClaim struct {
	Recipient string           `json:"recipient"`
	Delta     safemath.Uint128 `json:"delta"`
	Amount    safemath.Uint128 `json:"amount"`
	ID        uint64           `json:"id"`
	Created   bool             `json:"created"`
}

// ClaimedTotal is the amount of one token withdrawn by a claim
type ClaimedTotal struct {
	Token  token.Token      `json:"token"`
	Amount safemath.Uint128 `json:"amount"`
	IDs    []uint64         `json:"ids"`
}

// ClaimResult describes an applied claim
type ClaimResult struct {
	Recipient    string              `json:"recipient"`
	Attributes   []Attribute         `json:"attributes"`
	Claimed      []ClaimedTotal      `json:"claimed"`
	Instructions []token.Instruction `json:"instructions"`
	PayoutIDs    []string            `json:"payout_ids"`
	ClaimIDs     []uint64            `json:"claim_ids"`
}
