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

package sqlite

import (
	"errors"
	"time"

	"github.com/blinklabs-io/claimsd/database/models"
	"github.com/blinklabs-io/claimsd/database/types"
	"gorm.io/gorm"
)

// CreatePayouts inserts new payout rows
func (d *MetadataStoreSqlite) CreatePayouts(
	payouts []models.Payout,
	txn types.Txn,
) error {
	if len(payouts) == 0 {
		return nil
	}
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(&payouts); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetPayout returns a payout by its public ID
func (d *MetadataStoreSqlite) GetPayout(
	payoutId string,
	txn types.Txn,
) (*models.Payout, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret models.Payout
	result := db.Where("payout_id = ?", payoutId).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &ret, nil
}

// GetPendingPayouts returns up to limit undelivered payouts, oldest first
func (d *MetadataStoreSqlite) GetPendingPayouts(
	limit int,
	txn types.Txn,
) ([]models.Payout, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Payout
	result := db.Where("status = ?", models.PayoutStatusPending).
		Order("id ASC").
		Limit(limit).
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetPayoutsByRecipient returns up to limit of a recipient's payouts, newest first
func (d *MetadataStoreSqlite) GetPayoutsByRecipient(
	recipient string,
	limit int,
	txn types.Txn,
) ([]models.Payout, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Payout
	result := db.Where("recipient = ?", recipient).
		Order("id DESC").
		Limit(limit).
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// CountPendingPayouts returns the number of undelivered payouts
func (d *MetadataStoreSqlite) CountPendingPayouts(txn types.Txn) (int64, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	var ret int64
	result := db.Model(&models.Payout{}).
		Where("status = ?", models.PayoutStatusPending).
		Count(&ret)
	if result.Error != nil {
		return 0, result.Error
	}
	return ret, nil
}

// UpdatePayoutStatus records a delivery attempt
func (d *MetadataStoreSqlite) UpdatePayoutStatus(
	payout *models.Payout,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(payout).
		Select("status", "attempts", "last_error", "sent_at", "updated_at").
		Updates(payout)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// DeleteSentPayoutsBefore removes delivered payouts last updated before cutoff
func (d *MetadataStoreSqlite) DeleteSentPayoutsBefore(
	cutoff time.Time,
	txn types.Txn,
) (int64, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return 0, err
	}
	result := db.Where(
		"status = ? AND updated_at < ?",
		models.PayoutStatusSent,
		cutoff,
	).Delete(&models.Payout{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
