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

package types

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/blinklabs-io/claimsd/safemath"
)

// Claim ledger key layout. Every key starts with a one-byte table prefix.
// Integers are big-endian and strings use an order-preserving escape so
// that byte order matches tuple order.
//
//	0x01                                    -> next claim ID (uint64)
//	0x02 str(name) str(tokenKey) str(addr)  -> claim ID (uint64)
//	0x03 u64(id)                            -> claim record (CBOR)
//	0x10 str(addr) u64(id)                  -> (empty)
//	0x11 str(addr) u64(nanos) u64(id)       -> (empty)
//	0x12 str(addr) u128(amount) u64(id)     -> (empty)
//	0x13 str(addr) str(tokenKey) u64(id)    -> (empty)
const (
	ClaimCounterKeyPrefix     byte = 0x01
	ClaimIdentityKeyPrefix    byte = 0x02
	ClaimRecordKeyPrefix      byte = 0x03
	ClaimByRecipientKeyPrefix byte = 0x10
	ClaimByTimeKeyPrefix      byte = 0x11
	ClaimByAmountKeyPrefix    byte = 0x12
	ClaimByTokenKeyPrefix     byte = 0x13
)

const (
	stringEscape     byte = 0x00
	stringEscapedNul byte = 0xff
	stringTerminator byte = 0x01
)

func KeyUint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

// AppendKeyString appends s so that the result sorts like s and can be
// followed by further key components
func AppendKeyString(dst []byte, s string) []byte {
	for i := range len(s) {
		if s[i] == stringEscape {
			dst = append(dst, stringEscape, stringEscapedNul)
			continue
		}
		dst = append(dst, s[i])
	}
	return append(dst, stringEscape, stringTerminator)
}

func AppendKeyUint64(dst []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(dst, v)
}

func AppendKeyUint128(dst []byte, v safemath.Uint128) []byte {
	return append(dst, v.Bytes()...)
}

func ClaimCounterKey() []byte {
	return []byte{ClaimCounterKeyPrefix}
}

func ClaimIdentityKey(name string, tokenKey string, recipient string) []byte {
	key := []byte{ClaimIdentityKeyPrefix}
	key = AppendKeyString(key, name)
	key = AppendKeyString(key, tokenKey)
	key = AppendKeyString(key, recipient)
	return key
}

func ClaimRecordKey(id uint64) []byte {
	key := []byte{ClaimRecordKeyPrefix}
	return AppendKeyUint64(key, id)
}

// ClaimIndexPrefix returns the prefix shared by all of a recipient's entries
// in one index table
func ClaimIndexPrefix(table byte, recipient string) []byte {
	key := []byte{table}
	return AppendKeyString(key, recipient)
}

func ClaimByRecipientKey(recipient string, id uint64) []byte {
	key := ClaimIndexPrefix(ClaimByRecipientKeyPrefix, recipient)
	return AppendKeyUint64(key, id)
}

func ClaimByTimeKey(recipient string, nanos uint64, id uint64) []byte {
	key := ClaimIndexPrefix(ClaimByTimeKeyPrefix, recipient)
	key = AppendKeyUint64(key, nanos)
	return AppendKeyUint64(key, id)
}

func ClaimByAmountKey(
	recipient string,
	amount safemath.Uint128,
	id uint64,
) []byte {
	key := ClaimIndexPrefix(ClaimByAmountKeyPrefix, recipient)
	key = AppendKeyUint128(key, amount)
	return AppendKeyUint64(key, id)
}

func ClaimByTokenKey(recipient string, tokenKey string, id uint64) []byte {
	key := ClaimIndexPrefix(ClaimByTokenKeyPrefix, recipient)
	key = AppendKeyString(key, tokenKey)
	return AppendKeyUint64(key, id)
}

// PrefixUpperBound returns the smallest key greater than every key starting
// with prefix, or nil if no such key exists
func PrefixUpperBound(prefix []byte) []byte {
	ret := bytes.Clone(prefix)
	for i := len(ret) - 1; i >= 0; i-- {
		if ret[i] < 0xff {
			ret[i]++
			return ret[:i+1]
		}
	}
	return nil
}

// KeyReader decodes key components in the order they were appended
type KeyReader struct {
	buf []byte
}

func NewKeyReader(key []byte) *KeyReader {
	return &KeyReader{buf: key}
}

// Skip discards a fixed-length component such as a table prefix
func (r *KeyReader) Skip(n int) error {
	if len(r.buf) < n {
		return fmt.Errorf("%w: short key", ErrMalformedKey)
	}
	r.buf = r.buf[n:]
	return nil
}

func (r *KeyReader) ReadUint64() (uint64, error) {
	if len(r.buf) < 8 {
		return 0, fmt.Errorf("%w: short uint64", ErrMalformedKey)
	}
	ret := binary.BigEndian.Uint64(r.buf[:8])
	r.buf = r.buf[8:]
	return ret, nil
}

func (r *KeyReader) ReadUint128() (safemath.Uint128, error) {
	if len(r.buf) < safemath.Uint128Size {
		return safemath.Uint128{}, fmt.Errorf("%w: short uint128", ErrMalformedKey)
	}
	ret, err := safemath.Uint128FromBytes(r.buf[:safemath.Uint128Size])
	if err != nil {
		return ret, err
	}
	r.buf = r.buf[safemath.Uint128Size:]
	return ret, nil
}

func (r *KeyReader) ReadString() (string, error) {
	var out []byte
	for i := 0; i < len(r.buf); i++ {
		if r.buf[i] != stringEscape {
			out = append(out, r.buf[i])
			continue
		}
		if i+1 >= len(r.buf) {
			break
		}
		switch r.buf[i+1] {
		case stringTerminator:
			r.buf = r.buf[i+2:]
			return string(out), nil
		case stringEscapedNul:
			out = append(out, stringEscape)
			i++
		default:
			return "", fmt.Errorf("%w: bad string escape", ErrMalformedKey)
		}
	}
	return "", fmt.Errorf("%w: unterminated string", ErrMalformedKey)
}

// Len returns the number of undecoded bytes
func (r *KeyReader) Len() int {
	return len(r.buf)
}
