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

package token_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/blinklabs-io/claimsd/safemath"
	"github.com/blinklabs-io/claimsd/token"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddress(t *testing.T, hrp string, fill byte) string {
	t.Helper()
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = fill
	}
	addr, err := token.EncodeAddress(hrp, raw)
	require.NoError(t, err)
	return addr
}

func TestTokenKey(t *testing.T) {
	assert.Equal(t, "d:uatom", token.Denom("uatom").Key())
	contract := testAddress(t, "cosmos", 7)
	assert.Equal(t, "a:"+contract, token.Address(contract).Key())

	parsed, err := token.ParseKey("d:uatom")
	require.NoError(t, err)
	assert.Equal(t, token.Denom("uatom"), parsed)

	parsed, err = token.ParseKey("a:" + contract)
	require.NoError(t, err)
	addr, ok := parsed.Address()
	require.True(t, ok)
	assert.Equal(t, contract, addr)

	_, err = token.ParseKey("x:foo")
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestTokenJSON(t *testing.T) {
	var tok token.Token
	require.NoError(t, json.Unmarshal([]byte(`{"denom":"uosmo"}`), &tok))
	assert.Equal(t, token.KindDenom, tok.Kind())

	out, err := json.Marshal(token.Address("cosmos1abc"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"address":"cosmos1abc"}`, string(out))

	require.Error(t, json.Unmarshal([]byte(`{}`), &tok))
	require.Error(t, json.Unmarshal([]byte(`{"denom":"a","address":"b"}`), &tok))
}

func TestTokenCBOR(t *testing.T) {
	orig := token.Denom("uatom")
	data, err := cbor.Marshal(orig)
	require.NoError(t, err)
	var decoded token.Token
	require.NoError(t, cbor.Unmarshal(data, &decoded))
	assert.Equal(t, orig, decoded)
}

func TestTokenValidate(t *testing.T) {
	assert.NoError(t, token.Denom("ibc/27394FB092D2ECCD56123C74F36E4C1F926001CEADA9CA97EA622B25F41E5EB2").Validate(""))
	assert.ErrorIs(t, token.Denom("").Validate(""), token.ErrInvalidToken)
	assert.ErrorIs(t, token.Denom("u atom").Validate(""), token.ErrInvalidToken)

	contract := testAddress(t, "juno", 1)
	assert.NoError(t, token.Address(contract).Validate("juno"))
	assert.NoError(t, token.Address(contract).Validate(""))
	err := token.Address(contract).Validate("cosmos")
	assert.ErrorIs(t, err, token.ErrInvalidToken)
	assert.ErrorIs(t, err, token.ErrInvalidAddress)
	assert.ErrorIs(t, token.Address("not-an-address").Validate(""), token.ErrInvalidAddress)
	assert.ErrorIs(t, token.Token{}.Validate(""), token.ErrInvalidToken)
}

func TestValidateAddress(t *testing.T) {
	addr := testAddress(t, "cosmos", 7)
	require.NoError(t, token.ValidateAddress(addr, "cosmos"))
	testDefs := []string{
		"",
		strings.ToUpper(addr),
		// Mixed case
		strings.ToUpper(addr[:8]) + addr[8:],
		testAddress(t, "osmo", 7),
	}
	for _, testDef := range testDefs {
		assert.ErrorIs(
			t,
			token.ValidateAddress(testDef, "cosmos"),
			token.ErrInvalidAddress,
			"address %q",
			testDef,
		)
	}
}

func TestFindInFunds(t *testing.T) {
	funds := []token.Coin{
		{Denom: "uosmo", Amount: safemath.NewUint128(5)},
		{Denom: "uatom", Amount: safemath.NewUint128(10)},
	}
	coin, ok := token.Denom("uatom").FindInFunds(funds, nil)
	require.True(t, ok)
	assert.Equal(t, "10", coin.Amount.String())

	exact := safemath.NewUint128(10)
	_, ok = token.Denom("uatom").FindInFunds(funds, &exact)
	assert.True(t, ok)

	exact = safemath.NewUint128(11)
	_, ok = token.Denom("uatom").FindInFunds(funds, &exact)
	assert.False(t, ok)

	_, ok = token.Address("uatom").FindInFunds(funds, nil)
	assert.False(t, ok)
}

func TestTransfer(t *testing.T) {
	recipient := testAddress(t, "cosmos", 2)
	inst, err := token.Denom("uatom").Transfer(recipient, safemath.NewUint128(35))
	require.NoError(t, err)
	assert.Equal(t, token.InstructionBankSend, inst.Kind)
	assert.JSONEq(
		t,
		`{"to_address":"`+recipient+`","amount":[{"denom":"uatom","amount":"35"}]}`,
		string(inst.Payload),
	)

	contract := testAddress(t, "cosmos", 3)
	inst, err = token.Address(contract).Transfer(recipient, safemath.NewUint128(7))
	require.NoError(t, err)
	assert.Equal(t, token.InstructionContractExecute, inst.Kind)
	assert.JSONEq(
		t,
		`{"contract_addr":"`+contract+`","msg":{"transfer":{"recipient":"`+recipient+`","amount":"7"}},"funds":[]}`,
		string(inst.Payload),
	)

	_, err = token.Token{}.Transfer(recipient, safemath.NewUint128(1))
	require.ErrorIs(t, err, token.ErrInvalidToken)
}
