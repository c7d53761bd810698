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

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/blinklabs-io/claimsd/ledger"
)

const (
	DefaultPaginationCount = 100
	MaxPaginationCount     = 100
	DefaultClaimsOrder     = ledger.OrderByUpdatedAt
)

var ErrInvalidPaginationParameters = errors.New(
	"invalid pagination parameters",
)

// ParseClaimsQuery builds a claims query for address from the order_by and
// cursor query parameters. The cursor must be the opaque form returned as
// next_cursor.
func ParseClaimsQuery(
	r *http.Request,
	address string,
) (ledger.ClaimsQuery, error) {
	ret := ledger.ClaimsQuery{
		Address: address,
		OrderBy: DefaultClaimsOrder,
	}
	query := r.URL.Query()
	if orderParam := query.Get("order_by"); orderParam != "" {
		orderBy := ledger.OrderKey(strings.ToLower(orderParam))
		if !orderBy.Valid() {
			return ledger.ClaimsQuery{}, ErrInvalidPaginationParameters
		}
		ret.OrderBy = orderBy
	}
	if cursorParam := query.Get("cursor"); cursorParam != "" {
		cursor, err := ledger.DecodeCursor(cursorParam)
		if err != nil {
			return ledger.ClaimsQuery{}, ErrInvalidPaginationParameters
		}
		ret.Cursor = cursor
	}
	return ret, nil
}

// ParseCount parses the count query parameter and clamps it to
// [1, MaxPaginationCount].
func ParseCount(r *http.Request) (int, error) {
	count := DefaultPaginationCount
	if countParam := r.URL.Query().Get("count"); countParam != "" {
		var err error
		count, err = strconv.Atoi(countParam)
		if err != nil {
			return 0, ErrInvalidPaginationParameters
		}
	}
	// Bounds clamping
	if count < 1 {
		count = 1
	}
	if count > MaxPaginationCount {
		count = MaxPaginationCount
	}
	return count, nil
}
