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

package token

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

var ErrInvalidAddress = errors.New("invalid address")

// ValidateAddress checks that addr is a lowercase bech32 string. When hrp is
// non-empty the human-readable part must match it. Uppercase bech32 decodes
// to the same bytes, so it is rejected to keep one spelling per recipient.
func ValidateAddress(addr string, hrp string) error {
	if addr == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if addr != strings.ToLower(addr) {
		return fmt.Errorf("%w: %s: must be lowercase", ErrInvalidAddress, addr)
	}
	decodedHrp, data, err := bech32.Decode(addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidAddress, addr, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: %s: empty payload", ErrInvalidAddress, addr)
	}
	if hrp != "" && decodedHrp != hrp {
		return fmt.Errorf(
			"%w: %s: expected prefix %q, got %q",
			ErrInvalidAddress,
			addr,
			hrp,
			decodedHrp,
		)
	}
	return nil
}

// EncodeAddress builds a bech32 address from raw bytes
func EncodeAddress(hrp string, raw []byte) (string, error) {
	convData, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("failed to convert address bits: %w", err)
	}
	encoded, err := bech32.Encode(hrp, convData)
	if err != nil {
		return "", fmt.Errorf("failed to encode bech32: %w", err)
	}
	return encoded, nil
}
