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

package database

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/claimsd/database/types"
)

// Txn is one unit of work against the claim ledger.
//
// A read-write Txn spans the blob store holding the ledger keys and the
// metadata store holding the payout outbox. Both commit under the same
// commit timestamp. A read-only Txn opens only the blob store, since ledger
// reads never consult the outbox.
type Txn struct {
	db          *Database
	blobTxn     types.Txn
	metadataTxn types.Txn
	lock        sync.Mutex
	finished    bool
	readWrite   bool
}

func newTxn(db *Database, readWrite bool) *Txn {
	t := &Txn{db: db, readWrite: readWrite}
	if bs := db.Blob(); bs != nil {
		t.blobTxn = bs.NewTransaction(readWrite)
	}
	if readWrite {
		if ms := db.Metadata(); ms != nil {
			t.metadataTxn = ms.Transaction()
		}
	}
	return t
}

// Metadata returns the metadata transaction handle, nil for read-only txns
func (t *Txn) Metadata() types.Txn {
	return t.metadataTxn
}

// Blob returns the blob transaction handle
func (t *Txn) Blob() types.Txn {
	return t.blobTxn
}

// Do runs fn in the context of the transaction and commits when it returns
// nil. An error or a panic from fn rolls the transaction back; the panic is
// then propagated.
func (t *Txn) Do(fn func(*Txn) error) error {
	defer func() {
		if r := recover(); r != nil {
			_ = t.Rollback()
			panic(r)
		}
	}()
	if err := fn(t); err != nil {
		if err2 := t.Rollback(); err2 != nil {
			return fmt.Errorf(
				"rollback failed: %w: original error: %w",
				err2,
				err,
			)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func (t *Txn) Commit() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.finished {
		return nil
	}
	if t.blobTxn == nil {
		t.finished = true
		return types.ErrBlobStoreUnavailable
	}
	// Read-only txns have nothing to write
	if !t.readWrite {
		return t.rollback()
	}
	if t.metadataTxn == nil {
		_ = t.blobTxn.Rollback()
		t.finished = true
		return types.ErrNoStoreAvailable
	}
	if err := t.db.updateCommitTimestamp(t, time.Now().UnixMilli()); err != nil {
		_ = t.blobTxn.Rollback()
		_ = t.metadataTxn.Rollback()
		t.finished = true
		return fmt.Errorf("failed to update commit timestamp: %w", err)
	}
	// Ledger keys first, so a failure here leaves the outbox untouched
	if err := t.blobTxn.Commit(); err != nil {
		_ = t.metadataTxn.Rollback()
		t.finished = true
		return fmt.Errorf("blob commit failed: %w", err)
	}
	if err := t.metadataTxn.Commit(); err != nil {
		// The ledger change is durable but its payouts are not. The timestamp
		// mismatch is detected and repaired on the next open.
		t.db.logger.Error(
			"partial commit: ledger committed, payout outbox failed",
			"component", "database",
			"error", err,
		)
		_ = t.metadataTxn.Rollback()
		t.finished = true
		return fmt.Errorf(
			"partial commit: metadata commit failed after blob commit: %w",
			err,
		)
	}
	t.finished = true
	return nil
}

func (t *Txn) Rollback() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.rollback()
}

func (t *Txn) rollback() error {
	if t.finished {
		return nil
	}
	var errs []error
	if t.blobTxn != nil {
		if err := t.blobTxn.Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("blob rollback: %w", err))
		}
	}
	if t.metadataTxn != nil {
		if err := t.metadataTxn.Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("metadata rollback: %w", err))
		}
	}
	t.finished = true
	return errors.Join(errs...)
}

// Release discards the transaction if it is still open. It is meant for
// defer statements and only logs failures.
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"component", "database",
			"error", err,
			"read_write", t.readWrite,
		)
	}
}

// Update runs fn in a read-write transaction spanning the ledger and the
// payout outbox. It commits when fn returns nil and rolls back otherwise.
func (d *Database) Update(fn func(*Txn) error) error {
	return newTxn(d, true).Do(fn)
}

// View runs fn in a read-only transaction over the ledger keys
func (d *Database) View(fn func(*Txn) error) error {
	txn := newTxn(d, false)
	defer txn.Release()
	return fn(txn)
}
