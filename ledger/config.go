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
	"context"
)

// Config is the ledger's runtime configuration. It has no settings.
type Config struct{}

// Config returns the current configuration
func (ls *LedgerState) Config() Config {
	return Config{}
}

// SetConfig accepts a configuration update. There is nothing to store.
func (ls *LedgerState) SetConfig(
	ctx context.Context,
	ec ExecContext,
	_ Config,
) ([]Attribute, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ls.config.Logger.Debug(
		"set config",
		"component", "ledger",
		"sender", ec.Sender,
	)
	return []Attribute{attr("action", opSetConfig)}, nil
}
