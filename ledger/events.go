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
	"github.com/blinklabs-io/claimsd/event"
	"github.com/blinklabs-io/claimsd/token"
)

const (
	UpsertEventType event.EventType = "ledger.upsert"
	ClaimEventType  event.EventType = "ledger.claim"
)

// UpsertEvent is published after an upsert is committed
type UpsertEvent struct {
	Name   string
	Token  token.Token
	Claims []UpsertedClaim
}

// ClaimEvent is published after a claim is committed. PayoutIDs name the
// payout rows queued for delivery.
type ClaimEvent struct {
	Recipient string
	Claimed   []ClaimedTotal
	PayoutIDs []string
}

func (ls *LedgerState) publish(eventType event.EventType, data any) {
	if ls.config.EventBus == nil {
		return
	}
	ls.config.EventBus.PublishAsync(
		eventType,
		event.NewEvent(eventType, data),
	)
}
