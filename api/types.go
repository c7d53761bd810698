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

package api

import (
	"encoding/json"
	"time"

	"github.com/blinklabs-io/claimsd/database/models"
	"github.com/blinklabs-io/claimsd/ledger"
	"github.com/blinklabs-io/claimsd/safemath"
	"github.com/blinklabs-io/claimsd/token"
)

// RootResponse is returned by GET /.
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// ExecuteRequest wraps a mutating message with the identity and attached
// funds of its sender. Both are asserted by the calling gateway. The request
// time always comes from the ledger clock.
type ExecuteRequest[T any] struct {
	Sender string       `json:"sender"`
	Funds  []token.Coin `json:"funds,omitempty"`
	Msg    T            `json:"msg"`
}

func (r ExecuteRequest[T]) execContext() ledger.ExecContext {
	return ledger.ExecContext{
		Sender: r.Sender,
		Funds:  r.Funds,
	}
}

// ExecuteResponse is returned by the execute endpoints. Data holds the
// operation-specific result.
type ExecuteResponse struct {
	Attributes []ledger.Attribute `json:"attributes"`
	Data       any                `json:"data,omitempty"`
}

// ClaimsPageResponse is one page of a recipient's claims. NextCursor is the
// opaque form of Cursor, suitable for the cursor query parameter.
type ClaimsPageResponse struct {
	Cursor     *ledger.Cursor       `json:"cursor"`
	NextCursor string               `json:"next_cursor,omitempty"`
	Claims     []ledger.ClaimRecord `json:"claims"`
}

// PayoutResponse describes a queued or delivered payout.
type PayoutResponse struct {
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	SentAt    *time.Time       `json:"sent_at,omitempty"`
	PayoutID  string           `json:"payout_id"`
	Recipient string           `json:"recipient"`
	Token     string           `json:"token"`
	Kind      string           `json:"kind"`
	Status    string           `json:"status"`
	LastError string           `json:"last_error,omitempty"`
	Amount    safemath.Uint128 `json:"amount"`
	Payload   json.RawMessage  `json:"payload"`
	ClaimIDs  json.RawMessage  `json:"claim_ids"`
	Attempts  uint32           `json:"attempts"`
}

func newPayoutResponse(p models.Payout) PayoutResponse {
	ret := PayoutResponse{
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		SentAt:    p.SentAt,
		PayoutID:  p.PayoutID,
		Recipient: p.Recipient,
		Token:     p.TokenKey,
		Kind:      p.Kind,
		Status:    string(p.Status),
		LastError: p.LastError,
		Amount:    p.Amount.Uint128,
		Payload:   p.Payload,
		ClaimIDs:  p.ClaimIDs,
		Attempts:  p.Attempts,
	}
	if len(ret.Payload) == 0 {
		ret.Payload = json.RawMessage("null")
	}
	if len(ret.ClaimIDs) == 0 {
		ret.ClaimIDs = json.RawMessage("[]")
	}
	return ret
}
