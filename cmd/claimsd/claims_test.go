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

package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/blinklabs-io/claimsd/api"
	"github.com/blinklabs-io/claimsd/database"
	"github.com/blinklabs-io/claimsd/internal/config"
	"github.com/blinklabs-io/claimsd/internal/test/testutil"
	"github.com/blinklabs-io/claimsd/ledger"
	"github.com/blinklabs-io/claimsd/safemath"
	"github.com/blinklabs-io/claimsd/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedClaims(t *testing.T, dataDir string, recipient string, amounts ...uint64) {
	t.Helper()
	db, err := database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	defer db.Close()
	ls, err := ledger.NewLedgerState(ledger.LedgerStateConfig{Database: db})
	require.NoError(t, err)
	for i, amt := range amounts {
		denom := []string{"uatom", "uosmo", "ujuno"}[i%3]
		_, err := ls.UpsertNative(
			t.Context(),
			ledger.ExecContext{
				Sender: recipient,
				Funds: []token.Coin{
					{Denom: denom, Amount: safemath.NewUint128(amt)},
				},
			},
			ledger.UpsertMsg{
				Name:  "airdrop",
				Token: token.Denom(denom),
				Amounts: []ledger.Contribution{
					{Recipient: recipient, Amount: safemath.NewUint128(amt)},
				},
			},
		)
		require.NoError(t, err)
	}
}

func runClaims(
	t *testing.T,
	cfg *config.Config,
	address string,
	orderBy string,
	cursor string,
) api.ClaimsPageResponse {
	t.Helper()
	claimsFlags.orderBy = orderBy
	claimsFlags.cursor = cursor
	t.Cleanup(func() {
		claimsFlags.orderBy = ""
		claimsFlags.cursor = ""
	})
	var out bytes.Buffer
	require.NoError(t, claimsRun(t.Context(), &out, cfg, address))
	var page api.ClaimsPageResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &page))
	return page
}

func TestClaimsCommandPages(t *testing.T) {
	dataDir := t.TempDir()
	alice := testutil.Address(t, 1)
	seedClaims(t, dataDir, alice, 5, 30, 10)
	cfg := &config.Config{DatabasePath: dataDir, PageLimit: 2}

	page := runClaims(t, cfg, alice, "AMOUNT", "")
	require.Len(t, page.Claims, 2)
	assert.Equal(t, "30", page.Claims[0].Amount.String())
	assert.Equal(t, "10", page.Claims[1].Amount.String())
	require.NotEmpty(t, page.NextCursor)

	page = runClaims(t, cfg, alice, "amount", page.NextCursor)
	require.Len(t, page.Claims, 1)
	assert.Equal(t, "5", page.Claims[0].Amount.String())
	assert.Empty(t, page.NextCursor)
}

func TestClaimsCommandEmpty(t *testing.T) {
	cfg := &config.Config{DatabasePath: t.TempDir()}
	page := runClaims(t, cfg, testutil.Address(t, 2), "updated_at", "")
	assert.NotNil(t, page.Claims)
	assert.Empty(t, page.Claims)
	assert.Nil(t, page.Cursor)
}

func TestClaimsCommandRejectsBadInput(t *testing.T) {
	cfg := &config.Config{DatabasePath: t.TempDir()}
	var out bytes.Buffer
	claimsFlags.orderBy = "bogus"
	t.Cleanup(func() { claimsFlags.orderBy = "" })
	err := claimsRun(t.Context(), &out, cfg, testutil.Address(t, 1))
	require.ErrorIs(t, err, ledger.ErrValidation)

	claimsFlags.orderBy = "amount"
	err = claimsRun(t.Context(), &out, cfg, "not-an-address")
	require.ErrorIs(t, err, ledger.ErrValidation)
	assert.Empty(t, out.String())
}
