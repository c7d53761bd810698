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
	"time"

	"github.com/blinklabs-io/claimsd/token"
)

// ExecContext carries the caller identity, attached funds and block time of
// a mutating request
type ExecContext struct {
	// Time of the request. The zero value means the ledger clock.
	Time   time.Time
	Sender string
	Funds  []token.Coin
}

// Attribute is a key/value pair describing the outcome of an operation
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func attr(key string, value string) Attribute {
	return Attribute{Key: key, Value: value}
}
