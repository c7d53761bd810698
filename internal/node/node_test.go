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

package node

import (
	"log/slog"
	"testing"

	"github.com/blinklabs-io/claimsd"
	"github.com/blinklabs-io/claimsd/internal/config"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DatabasePath:     t.TempDir(),
		BindAddr:         "127.0.0.1",
		AddressPrefix:    "cosmos",
		ShutdownTimeout:  "5s",
		PayoutInterval:   "1m",
		PayoutRetention:  "24h",
		CorsOrigins:      []string{"*"},
		PayoutMaxRetries: 2,
		BatchLimit:       10,
		SubmsgLimit:      5,
		PageLimit:        10,
	}
}

func TestNodeConfigIsValid(t *testing.T) {
	n, err := claimsd.New(NodeConfig(testConfig(t), slog.New(slog.DiscardHandler)))
	require.NoError(t, err)
	require.NotNil(t, n)
}

func TestNodeConfigRejectsBadPrefix(t *testing.T) {
	cfg := testConfig(t)
	cfg.AddressPrefix = "Cosmos"
	_, err := claimsd.New(NodeConfig(cfg, slog.New(slog.DiscardHandler)))
	require.Error(t, err)
}
