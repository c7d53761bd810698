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
	"context"

	"github.com/blinklabs-io/claimsd/database/models"
	"github.com/blinklabs-io/claimsd/ledger"
)

// LedgerService is the set of ledger operations exposed over HTTP. It is
// implemented by *ledger.LedgerState.
type LedgerService interface {
	Config() ledger.Config
	SetConfig(
		ctx context.Context,
		ec ledger.ExecContext,
		cfg ledger.Config,
	) ([]ledger.Attribute, error)
	UpsertNative(
		ctx context.Context,
		ec ledger.ExecContext,
		msg ledger.UpsertMsg,
	) (*ledger.UpsertResult, error)
	UpsertPushed(
		ctx context.Context,
		ec ledger.ExecContext,
		msg ledger.ReceiveMsg,
	) (*ledger.UpsertResult, error)
	Claim(
		ctx context.Context,
		ec ledger.ExecContext,
		msg ledger.ClaimMsg,
	) (*ledger.ClaimResult, error)
	Claims(
		ctx context.Context,
		query ledger.ClaimsQuery,
	) (*ledger.ClaimsResponse, error)
}

// PayoutService lists queued and delivered payouts. It is implemented by
// *payout.Dispatcher.
type PayoutService interface {
	Payouts(recipient string, limit int) ([]models.Payout, error)
}
