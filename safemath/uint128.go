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

package safemath

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
)

// Uint128Size is the length of the fixed-width big-endian encoding of a Uint128
const Uint128Size = 16

// Uint128 is an unsigned 128-bit integer. The zero value is 0.
//
// It serializes to JSON as a decimal string, to CBOR as a 16-byte
// big-endian byte string.
//
//nolint:recvcheck
type Uint128 struct {
	v uint256.Int
}

// NewUint128 returns a Uint128 holding the given value
func NewUint128(val uint64) Uint128 {
	var ret Uint128
	ret.v.SetUint64(val)
	return ret
}

// MaxUint128 returns 2^128 - 1
func MaxUint128() Uint128 {
	var ret Uint128
	ret.v[0] = ^uint64(0)
	ret.v[1] = ^uint64(0)
	return ret
}

// ParseUint128 parses a base-10 string
func ParseUint128(s string) (Uint128, error) {
	var ret Uint128
	if s == "" {
		return ret, errors.New("empty uint128 string")
	}
	if err := ret.v.SetFromDecimal(s); err != nil {
		return ret, fmt.Errorf("invalid uint128 %q: %w", s, err)
	}
	if !fits128(&ret.v) {
		return Uint128{}, overflow("parse", s, "uint128")
	}
	return ret, nil
}

// Uint128FromBytes decodes a 16-byte big-endian value
func Uint128FromBytes(b []byte) (Uint128, error) {
	var ret Uint128
	if len(b) != Uint128Size {
		return ret, fmt.Errorf(
			"invalid uint128 length: expected %d, got %d",
			Uint128Size,
			len(b),
		)
	}
	ret.v.SetBytes(b)
	return ret, nil
}

// Uint128FromUint256 narrows a 256-bit value, failing if it does not fit
func Uint128FromUint256(x *uint256.Int) (Uint128, error) {
	var ret Uint128
	if !fits128(x) {
		return ret, overflow("narrow", x.Dec(), "uint128")
	}
	ret.v.Set(x)
	return ret, nil
}

func fits128(x *uint256.Int) bool {
	return x[2] == 0 && x[3] == 0
}

// IsZero reports whether the value is 0
func (u Uint128) IsZero() bool {
	return u.v.IsZero()
}

// Cmp returns -1, 0 or 1 when u is less than, equal to or greater than o
func (u Uint128) Cmp(o Uint128) int {
	return u.v.Cmp(&o.v)
}

// Equal reports whether u == o
func (u Uint128) Equal(o Uint128) bool {
	return u.v.Eq(&o.v)
}

// Uint64 returns the value and whether it fits in 64 bits
func (u Uint128) Uint64() (uint64, bool) {
	return u.v.Uint64(), u.v.IsUint64()
}

// Uint256 returns a copy of the value as a 256-bit integer
func (u Uint128) Uint256() *uint256.Int {
	return new(uint256.Int).Set(&u.v)
}

// Bytes returns the 16-byte big-endian encoding, which sorts in numeric order
func (u Uint128) Bytes() []byte {
	full := u.v.Bytes32()
	ret := make([]byte, Uint128Size)
	copy(ret, full[32-Uint128Size:])
	return ret
}

func (u Uint128) String() string {
	return u.v.Dec()
}

func (u Uint128) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *Uint128) UnmarshalText(data []byte) error {
	tmp, err := ParseUint128(string(data))
	if err != nil {
		return err
	}
	*u = tmp
	return nil
}

func (u Uint128) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

func (u *Uint128) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("uint128 must be a decimal string: %w", err)
	}
	return u.UnmarshalText([]byte(s))
}

func (u Uint128) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(u.Bytes())
}

func (u *Uint128) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := cbor.Unmarshal(data, &b); err != nil {
		return err
	}
	tmp, err := Uint128FromBytes(b)
	if err != nil {
		return err
	}
	*u = tmp
	return nil
}
