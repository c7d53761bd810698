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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/blinklabs-io/claimsd/database/types"
	"github.com/blinklabs-io/claimsd/safemath"
)

// Cursor is the (sort value, claim ID) position of the last claim returned by
// a query. Kind selects which of Time, Amount and Token holds the sort value.
//
// In JSON it is the tagged pair {"<kind>": ["<value>", "<id>"]}.
//
//nolint:recvcheck
type Cursor struct {
	Kind   OrderKey
	Token  string
	Amount safemath.Uint128
	Time   uint64
	ID     uint64
}

func TimeCursor(nanos uint64, id uint64) *Cursor {
	return &Cursor{Kind: OrderByUpdatedAt, Time: nanos, ID: id}
}

func AmountCursor(amount safemath.Uint128, id uint64) *Cursor {
	return &Cursor{Kind: OrderByAmount, Amount: amount, ID: id}
}

func TokenCursor(tokenKey string, id uint64) *Cursor {
	return &Cursor{Kind: OrderByToken, Token: tokenKey, ID: id}
}

func (c Cursor) value() string {
	switch c.Kind {
	case OrderByUpdatedAt:
		return strconv.FormatUint(c.Time, 10)
	case OrderByAmount:
		return c.Amount.String()
	default:
		return c.Token
	}
}

func (c *Cursor) setValue(value string) error {
	var err error
	switch c.Kind {
	case OrderByUpdatedAt:
		c.Time, err = strconv.ParseUint(value, 10, 64)
	case OrderByAmount:
		c.Amount, err = safemath.ParseUint128(value)
	case OrderByToken:
		c.Token = value
	default:
		err = fmt.Errorf("unknown cursor kind %q", c.Kind)
	}
	return err
}

// indexKey returns the index key the cursor points at for recipient
func (c Cursor) indexKey(recipient string) ([]byte, error) {
	switch c.Kind {
	case OrderByUpdatedAt:
		return types.ClaimByTimeKey(recipient, c.Time, c.ID), nil
	case OrderByAmount:
		return types.ClaimByAmountKey(recipient, c.Amount, c.ID), nil
	case OrderByToken:
		return types.ClaimByTokenKey(recipient, c.Token, c.ID), nil
	}
	return nil, validationError("unknown cursor kind %q", c.Kind)
}

// Encode returns the opaque URL-safe form of the cursor
func (c Cursor) Encode() string {
	raw := string(c.Kind) + ":" + c.value() + ":" + strconv.FormatUint(c.ID, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func (c Cursor) String() string {
	return c.Encode()
}

// DecodeCursor parses the output of Cursor.Encode
func DecodeCursor(s string) (*Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, validationError("invalid cursor encoding: %s", err)
	}
	// Token keys contain colons, so the kind is split from the front and the
	// ID from the back
	kind, rest, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, validationError("invalid cursor %q", raw)
	}
	idx := strings.LastIndex(rest, ":")
	if idx < 0 {
		return nil, validationError("invalid cursor %q", raw)
	}
	ret := &Cursor{Kind: OrderKey(kind)}
	if !ret.Kind.Valid() {
		return nil, validationError("unknown cursor kind %q", kind)
	}
	if err := ret.setValue(rest[:idx]); err != nil {
		return nil, validationError("invalid cursor value: %s", err)
	}
	if ret.ID, err = strconv.ParseUint(rest[idx+1:], 10, 64); err != nil {
		return nil, validationError("invalid cursor ID: %s", err)
	}
	return ret, nil
}

func (c Cursor) MarshalJSON() ([]byte, error) {
	if !c.Kind.Valid() {
		return nil, fmt.Errorf("unknown cursor kind %q", c.Kind)
	}
	return json.Marshal(
		map[string][2]string{
			string(c.Kind): {c.value(), strconv.FormatUint(c.ID, 10)},
		},
	)
}

func (c *Cursor) UnmarshalJSON(data []byte) error {
	var tmp map[string][2]string
	if err := json.Unmarshal(data, &tmp); err != nil {
		return fmt.Errorf("invalid cursor: %w", err)
	}
	if len(tmp) != 1 {
		return fmt.Errorf("cursor must have exactly one kind, got %d", len(tmp))
	}
	for kind, pair := range tmp {
		ret := Cursor{Kind: OrderKey(kind)}
		if !ret.Kind.Valid() {
			return fmt.Errorf("unknown cursor kind %q", kind)
		}
		if err := ret.setValue(pair[0]); err != nil {
			return fmt.Errorf("invalid cursor value: %w", err)
		}
		id, err := strconv.ParseUint(pair[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid cursor ID: %w", err)
		}
		ret.ID = id
		*c = ret
	}
	return nil
}
