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
	"encoding/json"
	"fmt"

	"github.com/blinklabs-io/claimsd/safemath"
)

// Coin is an amount of a native denomination attached to a request
type Coin struct {
	Denom  string           `json:"denom"`
	Amount safemath.Uint128 `json:"amount"`
}

// FindInFunds returns the first attached coin matching a native token. When
// exact is non-nil the coin amount must also equal it. Contract tokens never
// match since they cannot be attached as funds.
func (t Token) FindInFunds(funds []Coin, exact *safemath.Uint128) (Coin, bool) {
	denom, ok := t.Denom()
	if !ok {
		return Coin{}, false
	}
	for _, coin := range funds {
		if coin.Denom != denom {
			continue
		}
		if exact != nil && !coin.Amount.Equal(*exact) {
			continue
		}
		return coin, true
	}
	return Coin{}, false
}

type InstructionKind string

const (
	InstructionBankSend        InstructionKind = "bank_send"
	InstructionContractExecute InstructionKind = "contract_execute"
)

// Instruction describes a single balance movement for the payout sink
type Instruction struct {
	Kind      InstructionKind  `json:"kind"`
	Token     Token            `json:"token"`
	Recipient string           `json:"recipient"`
	Amount    safemath.Uint128 `json:"amount"`
	Payload   json.RawMessage  `json:"payload"`
}

type bankSendPayload struct {
	ToAddress string `json:"to_address"`
	Amount    []Coin `json:"amount"`
}

type contractExecutePayload struct {
	ContractAddr string          `json:"contract_addr"`
	Msg          json.RawMessage `json:"msg"`
	Funds        []Coin          `json:"funds"`
}

type contractTransferMsg struct {
	Transfer struct {
		Recipient string           `json:"recipient"`
		Amount    safemath.Uint128 `json:"amount"`
	} `json:"transfer"`
}

// Transfer builds the instruction that moves amount of this token to recipient
func (t Token) Transfer(recipient string, amount safemath.Uint128) (Instruction, error) {
	ret := Instruction{
		Token:     t,
		Recipient: recipient,
		Amount:    amount,
	}
	var payload any
	switch t.kind {
	case KindDenom:
		ret.Kind = InstructionBankSend
		payload = bankSendPayload{
			ToAddress: recipient,
			Amount:    []Coin{{Denom: t.value, Amount: amount}},
		}
	case KindAddress:
		ret.Kind = InstructionContractExecute
		var msg contractTransferMsg
		msg.Transfer.Recipient = recipient
		msg.Transfer.Amount = amount
		msgBytes, err := json.Marshal(msg)
		if err != nil {
			return Instruction{}, err
		}
		payload = contractExecutePayload{
			ContractAddr: t.value,
			Msg:          msgBytes,
			Funds:        []Coin{},
		}
	default:
		return Instruction{}, fmt.Errorf("%w: unknown kind %d", ErrInvalidToken, t.kind)
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return Instruction{}, err
	}
	ret.Payload = payloadBytes
	return ret, nil
}
