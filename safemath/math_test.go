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
	"math"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) Uint128 {
	t.Helper()
	ret, err := ParseUint128(s)
	require.NoError(t, err)
	return ret
}

func TestAdd128(t *testing.T) {
	sum, err := Add128(NewUint128(10), NewUint128(25))
	require.NoError(t, err)
	assert.Equal(t, "35", sum.String())

	_, err = Add128(MaxUint128(), NewUint128(1))
	require.ErrorIs(t, err, ErrOverflow)
	var oe *OverflowError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "add", oe.Op)
	assert.Equal(t, "340282366920938463463374607431768211455", oe.A)

	sum, err = Add128(MaxUint128(), Uint128{})
	require.NoError(t, err)
	assert.True(t, sum.Equal(MaxUint128()))
}

func TestSub128(t *testing.T) {
	diff, err := Sub128(NewUint128(10), NewUint128(4))
	require.NoError(t, err)
	assert.Equal(t, "6", diff.String())

	_, err = Sub128(NewUint128(4), NewUint128(10))
	require.ErrorIs(t, err, ErrOverflow)
}

func TestMul128(t *testing.T) {
	prod, err := Mul128(NewUint128(math.MaxUint64), NewUint128(2))
	require.NoError(t, err)
	assert.Equal(t, "36893488147419103230", prod.String())

	big := mustParse(t, "18446744073709551616") // 2^64
	_, err = Mul128(big, big)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestDiv128(t *testing.T) {
	quo, err := Div128(NewUint128(7), NewUint128(2))
	require.NoError(t, err)
	assert.Equal(t, "3", quo.String())

	_, err = Div128(NewUint128(7), Uint128{})
	require.ErrorIs(t, err, ErrDivideByZero)
	assert.NotErrorIs(t, err, ErrOverflow)
}

func TestMulRatio128(t *testing.T) {
	// Intermediate product exceeds 128 bits but the result fits
	res, err := MulRatio128(MaxUint128(), NewUint128(3), NewUint128(4))
	require.NoError(t, err)
	assert.Equal(t, "255211775190703847597530955573826158591", res.String())

	_, err = MulRatio128(MaxUint128(), NewUint128(2), NewUint128(1))
	require.ErrorIs(t, err, ErrOverflow)

	_, err = MulRatio128(NewUint128(1), NewUint128(1), Uint128{})
	require.ErrorIs(t, err, ErrDivideByZero)
}

func TestMulPct128(t *testing.T) {
	// 2.5% of 1000
	res, err := MulPct128(NewUint128(1000), 25_000)
	require.NoError(t, err)
	assert.Equal(t, "25", res.String())

	res, err = MulPct128(NewUint128(999), 1)
	require.NoError(t, err)
	assert.True(t, res.IsZero())
}

func TestUint256Ops(t *testing.T) {
	maxInt := new(uint256.Int).SetAllOne()
	one := uint256.NewInt(1)

	_, err := Add256(maxInt, one)
	require.ErrorIs(t, err, ErrOverflow)

	_, err = Sub256(one, uint256.NewInt(2))
	require.ErrorIs(t, err, ErrOverflow)

	_, err = Mul256(maxInt, uint256.NewInt(2))
	require.ErrorIs(t, err, ErrOverflow)

	_, err = Div256(one, new(uint256.Int))
	require.ErrorIs(t, err, ErrDivideByZero)

	res, err := MulRatio256(maxInt, uint256.NewInt(2), uint256.NewInt(4))
	require.NoError(t, err)
	expected := new(uint256.Int).Rsh(maxInt, 1)
	assert.True(t, res.Eq(expected))

	_, err = MulPct256(maxInt, 2*PctDenominator)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestAddUint64(t *testing.T) {
	sum, err := AddUint64(math.MaxUint64-1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), sum)

	_, err = AddUint64(math.MaxUint64, 1)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestAddUint32(t *testing.T) {
	sum, err := AddUint32(math.MaxUint32-1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), sum)

	_, err = AddUint32(math.MaxUint32, 1)
	require.ErrorIs(t, err, ErrOverflow)
}
