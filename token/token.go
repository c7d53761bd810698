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

// Package token identifies the fungible assets a claim is denominated in
// and builds the transfer instructions that pay them out.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

const (
	KeyPrefixDenom   = "d:"
	KeyPrefixAddress = "a:"

	maxDenomLength = 128
)

var ErrInvalidToken = errors.New("invalid token")

type Kind uint8

const (
	KindDenom Kind = iota + 1
	KindAddress
)

func (k Kind) String() string {
	switch k {
	case KindDenom:
		return "denom"
	case KindAddress:
		return "address"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Token is either a native denomination or a reference to a token contract
//
//nolint:recvcheck
type Token struct {
	kind  Kind
	value string
}

// Denom returns a native-asset token identified by its denomination
func Denom(denom string) Token {
	return Token{kind: KindDenom, value: denom}
}

// Address returns a contract token identified by its contract address
func Address(addr string) Token {
	return Token{kind: KindAddress, value: addr}
}

func (t Token) Kind() Kind {
	return t.kind
}

// Denom returns the denomination and true for native tokens
func (t Token) Denom() (string, bool) {
	if t.kind != KindDenom {
		return "", false
	}
	return t.value, true
}

// Address returns the contract address and true for contract tokens
func (t Token) Address() (string, bool) {
	if t.kind != KindAddress {
		return "", false
	}
	return t.value, true
}

// Key returns the canonical string form used in index keys and for grouping
func (t Token) Key() string {
	switch t.kind {
	case KindDenom:
		return KeyPrefixDenom + t.value
	case KindAddress:
		return KeyPrefixAddress + t.value
	default:
		return ""
	}
}

func (t Token) String() string {
	return t.Key()
}

// Validate checks the token is well formed. Contract addresses must be
// bech32 with the given human-readable prefix, or any prefix when hrp is empty.
func (t Token) Validate(hrp string) error {
	switch t.kind {
	case KindDenom:
		if t.value == "" || len(t.value) > maxDenomLength {
			return fmt.Errorf("%w: denom length must be 1-%d", ErrInvalidToken, maxDenomLength)
		}
		if strings.ContainsFunc(t.value, isSpaceOrControl) {
			return fmt.Errorf("%w: denom %q contains whitespace", ErrInvalidToken, t.value)
		}
		return nil
	case KindAddress:
		if err := ValidateAddress(t.value, hrp); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidToken, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidToken, t.kind)
	}
}

func isSpaceOrControl(r rune) bool {
	return r <= ' ' || r == 0x7f
}

// ParseKey decodes the output of Key
func ParseKey(key string) (Token, error) {
	switch {
	case strings.HasPrefix(key, KeyPrefixDenom):
		return Denom(strings.TrimPrefix(key, KeyPrefixDenom)), nil
	case strings.HasPrefix(key, KeyPrefixAddress):
		return Address(strings.TrimPrefix(key, KeyPrefixAddress)), nil
	default:
		return Token{}, fmt.Errorf("%w: unknown key %q", ErrInvalidToken, key)
	}
}

type tokenJson struct {
	Denom   *string `json:"denom,omitempty"`
	Address *string `json:"address,omitempty"`
}

func (t Token) MarshalJSON() ([]byte, error) {
	var tmp tokenJson
	switch t.kind {
	case KindDenom:
		tmp.Denom = &t.value
	case KindAddress:
		tmp.Address = &t.value
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidToken, t.kind)
	}
	return json.Marshal(tmp)
}

func (t *Token) UnmarshalJSON(data []byte) error {
	var tmp tokenJson
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	switch {
	case tmp.Denom != nil && tmp.Address == nil:
		*t = Denom(*tmp.Denom)
	case tmp.Address != nil && tmp.Denom == nil:
		*t = Address(*tmp.Address)
	default:
		return fmt.Errorf("%w: expected exactly one of denom or address", ErrInvalidToken)
	}
	return nil
}

type tokenCbor struct {
	_     struct{} `cbor:",toarray"`
	Kind  uint8
	Value string
}

func (t Token) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(tokenCbor{Kind: uint8(t.kind), Value: t.value})
}

func (t *Token) UnmarshalCBOR(data []byte) error {
	var tmp tokenCbor
	if err := cbor.Unmarshal(data, &tmp); err != nil {
		return err
	}
	switch Kind(tmp.Kind) {
	case KindDenom, KindAddress:
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidToken, tmp.Kind)
	}
	t.kind = Kind(tmp.Kind)
	t.value = tmp.Value
	return nil
}
