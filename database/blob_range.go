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
	"bytes"
	"errors"

	"github.com/blinklabs-io/claimsd/database/types"
)

// BlobKeyRange selects keys under Prefix within [Start, End). A nil Start
// begins at the prefix and a nil End stops at the end of the prefix.
type BlobKeyRange struct {
	Prefix  []byte
	Start   []byte
	End     []byte
	Reverse bool
	// Limit caps the number of returned keys. Zero means no limit.
	Limit int
}

// BlobKeys returns the keys in the given range in key order, or in reverse
// key order when Reverse is set. A nil txn runs the scan in its own
// read-only transaction.
//
// Keys are copied and collected before returning so callers can modify the
// store using the same read-write transaction afterwards.
func (d *Database) BlobKeys(txn *Txn, r BlobKeyRange) ([][]byte, error) {
	if txn == nil {
		txn = newTxn(d, false)
		defer txn.Release()
	}
	blob := d.Blob()
	if blob == nil || txn.Blob() == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	if r.Limit < 0 {
		return nil, errors.New("negative key range limit")
	}
	start := r.Start
	if start == nil {
		start = r.Prefix
	}
	end := r.End
	if end == nil {
		end = types.PrefixUpperBound(r.Prefix)
	}
	if end != nil && bytes.Compare(start, end) >= 0 {
		return nil, nil
	}
	iter := blob.NewIterator(
		txn.Blob(),
		types.BlobIteratorOptions{
			Prefix:  r.Prefix,
			Reverse: r.Reverse,
		},
	)
	defer iter.Close()
	if err := iter.Err(); err != nil {
		return nil, err
	}
	var ret [][]byte
	if r.Reverse {
		// Seeking in reverse lands on the largest key at or below the seek
		// key, which may be the exclusive end itself
		if end != nil {
			iter.Seek(end)
		} else {
			iter.Rewind()
		}
	} else {
		iter.Seek(start)
	}
	for ; iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		if r.Reverse {
			if end != nil && bytes.Compare(key, end) >= 0 {
				continue
			}
			if bytes.Compare(key, start) < 0 {
				break
			}
		} else if end != nil && bytes.Compare(key, end) >= 0 {
			break
		}
		ret = append(ret, key)
		if r.Limit > 0 && len(ret) >= r.Limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
