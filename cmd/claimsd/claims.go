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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/blinklabs-io/claimsd/api"
	"github.com/blinklabs-io/claimsd/database"
	"github.com/blinklabs-io/claimsd/internal/config"
	"github.com/blinklabs-io/claimsd/ledger"
	"github.com/spf13/cobra"
)

var claimsFlags = struct {
	orderBy string
	cursor  string
}{}

func claimsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claims <address>",
		Short: "Print one page of claims owned by an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			return claimsRun(cmd.Context(), cmd.OutOrStdout(), cfg, args[0])
		},
	}
	cmd.Flags().StringVar(
		&claimsFlags.orderBy,
		"order-by",
		string(ledger.OrderByUpdatedAt),
		"sort order: updated_at, amount or token",
	)
	cmd.Flags().StringVar(
		&claimsFlags.cursor,
		"cursor",
		"",
		"cursor returned by a previous page",
	)
	return cmd
}

func claimsRun(
	ctx context.Context,
	out io.Writer,
	cfg *config.Config,
	address string,
) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	db, err := database.New(&database.Config{
		DataDir: cfg.DatabasePath,
		Logger:  logger,
	})
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	ls, err := ledger.NewLedgerState(ledger.LedgerStateConfig{
		Logger:        logger,
		Database:      db,
		AddressPrefix: cfg.AddressPrefix,
		PageLimit:     cfg.PageLimit,
	})
	if err != nil {
		return err
	}
	query := ledger.ClaimsQuery{
		Address: address,
		OrderBy: ledger.OrderKey(strings.ToLower(claimsFlags.orderBy)),
	}
	if claimsFlags.cursor != "" {
		query.Cursor, err = ledger.DecodeCursor(claimsFlags.cursor)
		if err != nil {
			return err
		}
	}
	resp, err := ls.Claims(ctx, query)
	if err != nil {
		return err
	}
	page := api.ClaimsPageResponse{
		Cursor: resp.Cursor,
		Claims: resp.Claims,
	}
	if page.Claims == nil {
		page.Claims = []ledger.ClaimRecord{}
	}
	if resp.Cursor != nil {
		page.NextCursor = resp.Cursor.Encode()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(page)
}
