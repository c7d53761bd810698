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

package metadata

import (
	"log/slog"
	"time"

	"github.com/blinklabs-io/claimsd/database/models"
	"github.com/blinklabs-io/claimsd/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/claimsd/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Payout outbox
	CreatePayouts([]models.Payout, types.Txn) error
	GetPayout(string, types.Txn) (*models.Payout, error)
	GetPendingPayouts(int, types.Txn) ([]models.Payout, error)
	GetPayoutsByRecipient(string, int, types.Txn) ([]models.Payout, error)
	CountPendingPayouts(types.Txn) (int64, error)
	UpdatePayoutStatus(*models.Payout, types.Txn) error
	DeleteSentPayoutsBefore(time.Time, types.Txn) (int64, error)
}

// Config holds the metadata store settings exposed to callers
type Config struct {
	DataDir         string
	Logger          *slog.Logger
	PromRegistry    prometheus.Registerer
	PayoutRetention time.Duration
}

// New opens the sqlite metadata store. An empty DataDir keeps all data in memory.
func New(cfg Config) (MetadataStore, error) {
	store, err := sqlite.NewWithOptions(
		sqlite.WithDataDir(cfg.DataDir),
		sqlite.WithLogger(cfg.Logger),
		sqlite.WithPromRegistry(cfg.PromRegistry),
		sqlite.WithPayoutRetention(cfg.PayoutRetention),
	)
	if store == nil {
		return nil, err
	}
	// The store is returned alongside a migration error for recovery
	return store, err
}
