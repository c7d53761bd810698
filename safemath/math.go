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

// Package safemath provides overflow-checked arithmetic over fixed-width
// unsigned integers. Operations return an error instead of wrapping.
package safemath

import (
	"math"
	"math/bits"
	"strconv"

	"github.com/holiman/uint256"
)

// PctDenominator is the fixed-point scale used by MulPct (parts per million)
const PctDenominator = 1_000_000

// Add128 returns a + b
func Add128(a, b Uint128) (Uint128, error) {
	var ret Uint128
	// Both operands fit in 128 bits, so the 256-bit sum cannot wrap
	ret.v.Add(&a.v, &b.v)
	if !fits128(&ret.v) {
		return Uint128{}, overflow("add", a.String(), b.String())
	}
	return ret, nil
}

// Sub128 returns a - b
func Sub128(a, b Uint128) (Uint128, error) {
	var ret Uint128
	if _, underflow := ret.v.SubOverflow(&a.v, &b.v); underflow {
		return Uint128{}, overflow("sub", a.String(), b.String())
	}
	return ret, nil
}

// Mul128 returns a * b
func Mul128(a, b Uint128) (Uint128, error) {
	var ret Uint128
	ret.v.Mul(&a.v, &b.v)
	if !fits128(&ret.v) {
		return Uint128{}, overflow("mul", a.String(), b.String())
	}
	return ret, nil
}

// Div128 returns a / b, rounding down
func Div128(a, b Uint128) (Uint128, error) {
	if b.IsZero() {
		return Uint128{}, &DivideByZeroError{Operand: a.String()}
	}
	var ret Uint128
	ret.v.Div(&a.v, &b.v)
	return ret, nil
}

// MulRatio128 returns base * numerator / denominator with a full-width
// intermediate product, rounding down
func MulRatio128(base, numerator, denominator Uint128) (Uint128, error) {
	if denominator.IsZero() {
		return Uint128{}, &DivideByZeroError{Operand: base.String()}
	}
	var ret Uint128
	// 128 x 128 bits always fits in 256 bits
	ret.v.Mul(&base.v, &numerator.v)
	ret.v.Div(&ret.v, &denominator.v)
	if !fits128(&ret.v) {
		return Uint128{}, overflow(
			"multiply_ratio",
			base.String(),
			numerator.String()+"/"+denominator.String(),
		)
	}
	return ret, nil
}

// MulPct128 returns base * ppm / 1,000,000
func MulPct128(base Uint128, ppm uint64) (Uint128, error) {
	return MulRatio128(base, NewUint128(ppm), NewUint128(PctDenominator))
}

// Add256 returns a + b
func Add256(a, b *uint256.Int) (*uint256.Int, error) {
	ret, overflowed := new(uint256.Int).AddOverflow(a, b)
	if overflowed {
		return nil, overflow("add", a.Dec(), b.Dec())
	}
	return ret, nil
}

// Sub256 returns a - b
func Sub256(a, b *uint256.Int) (*uint256.Int, error) {
	ret, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, overflow("sub", a.Dec(), b.Dec())
	}
	return ret, nil
}

// Mul256 returns a * b
func Mul256(a, b *uint256.Int) (*uint256.Int, error) {
	ret, overflowed := new(uint256.Int).MulOverflow(a, b)
	if overflowed {
		return nil, overflow("mul", a.Dec(), b.Dec())
	}
	return ret, nil
}

// Div256 returns a / b, rounding down
func Div256(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, &DivideByZeroError{Operand: a.Dec()}
	}
	return new(uint256.Int).Div(a, b), nil
}

// MulRatio256 returns base * numerator / denominator using a 512-bit
// intermediate product
func MulRatio256(base, numerator, denominator *uint256.Int) (*uint256.Int, error) {
	if denominator.IsZero() {
		return nil, &DivideByZeroError{Operand: base.Dec()}
	}
	ret, overflowed := new(uint256.Int).MulDivOverflow(base, numerator, denominator)
	if overflowed {
		return nil, overflow(
			"multiply_ratio",
			base.Dec(),
			numerator.Dec()+"/"+denominator.Dec(),
		)
	}
	return ret, nil
}

// MulPct256 returns base * ppm / 1,000,000
func MulPct256(base *uint256.Int, ppm uint64) (*uint256.Int, error) {
	return MulRatio256(base, uint256.NewInt(ppm), uint256.NewInt(PctDenominator))
}

// AddUint64 returns a + b
func AddUint64(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, overflow(
			"add",
			strconv.FormatUint(a, 10),
			strconv.FormatUint(b, 10),
		)
	}
	return sum, nil
}

// AddUint32 returns a + b
func AddUint32(a, b uint32) (uint32, error) {
	sum := uint64(a) + uint64(b)
	if sum > math.MaxUint32 {
		return 0, overflow(
			"add",
			strconv.FormatUint(uint64(a), 10),
			strconv.FormatUint(uint64(b), 10),
		)
	}
	return uint32(sum), nil
}
