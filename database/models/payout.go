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

package models

import (
	"time"

	"github.com/blinklabs-io/claimsd/database/types"
)

type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "pending"
	PayoutStatusSent    PayoutStatus = "sent"
	PayoutStatusFailed  PayoutStatus = "failed"
)

// Payout is a transfer instruction produced by a claim, queued for delivery
type Payout struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	SentAt    *time.Time
	PayoutID  string       `gorm:"size:36;uniqueIndex;not null"`
	Recipient string       `gorm:"index;not null"`
	TokenKey  string       `gorm:"not null"`
	Kind      string       `gorm:"size:32;not null"`
	Status    PayoutStatus `gorm:"size:16;index;not null"`
	LastError string
	Amount    types.Uint128 `gorm:"type:text;not null"`
	Payload   []byte
	// JSON list of the claim IDs aggregated into this payout
	ClaimIDs []byte
	ID       uint `gorm:"primarykey"`
	Attempts uint32
}

func (Payout) TableName() string {
	return "payout"
}
