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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/blinklabs-io/claimsd/ledger"
	"github.com/go-chi/chi/v5"
)

// writeJSON writes a JSON response with the given status
// code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(
	w http.ResponseWriter,
	status int,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

// errorStatus maps a ledger error to an HTTP status code
func errorStatus(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ledger.ErrValidation),
		errors.Is(err, ErrInvalidPaginationParameters):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrOverflow),
		errors.Is(err, ledger.ErrDivideByZero):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeLedgerError writes the response for a failed ledger operation. Server
// errors are logged and their details withheld from the client.
func (a *Api) writeLedgerError(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	err error,
) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		a.logger.Error(
			"failed to "+op,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, status, "failed to "+op)
		return
	}
	writeError(w, status, err.Error())
}

// decodeBody decodes a JSON request body into dst
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return fmt.Errorf("%w: invalid request body: %s", ledger.ErrValidation, err)
	}
	return nil
}

func (a *Api) handleNotFound(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeError(w, http.StatusNotFound, "route not found")
}

func (a *Api) handleMethodNotAllowed(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// handleRoot handles GET / and returns API metadata.
func (a *Api) handleRoot(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, RootResponse{
		Name:    "claimsd",
		Version: a.config.Version,
	})
}

// handleHealth handles GET /health.
func (a *Api) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy: true,
	})
}

// handleConfig handles GET /api/v0/config.
func (a *Api) handleConfig(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, a.ledger.Config())
}

// handleUpsert handles POST /api/v0/execute/upsert, an upsert paid for with
// attached native funds.
func (a *Api) handleUpsert(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req ExecuteRequest[ledger.UpsertMsg]
	if err := decodeBody(r, &req); err != nil {
		a.writeLedgerError(w, r, "upsert claims", err)
		return
	}
	res, err := a.ledger.UpsertNative(r.Context(), req.execContext(), req.Msg)
	if err != nil {
		a.writeLedgerError(w, r, "upsert claims", err)
		return
	}
	writeJSON(w, http.StatusOK, ExecuteResponse{
		Attributes: res.Attributes,
		Data:       res.Claims,
	})
}

// handleReceive handles POST /api/v0/execute/receive, the callback of a
// token contract carrying an upsert.
func (a *Api) handleReceive(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req ExecuteRequest[ledger.ReceiveMsg]
	if err := decodeBody(r, &req); err != nil {
		a.writeLedgerError(w, r, "upsert claims", err)
		return
	}
	res, err := a.ledger.UpsertPushed(r.Context(), req.execContext(), req.Msg)
	if err != nil {
		a.writeLedgerError(w, r, "upsert claims", err)
		return
	}
	writeJSON(w, http.StatusOK, ExecuteResponse{
		Attributes: res.Attributes,
		Data:       res.Claims,
	})
}

// handleClaim handles POST /api/v0/execute/claim.
func (a *Api) handleClaim(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req ExecuteRequest[ledger.ClaimMsg]
	if err := decodeBody(r, &req); err != nil {
		a.writeLedgerError(w, r, "claim", err)
		return
	}
	res, err := a.ledger.Claim(r.Context(), req.execContext(), req.Msg)
	if err != nil {
		a.writeLedgerError(w, r, "claim", err)
		return
	}
	writeJSON(w, http.StatusOK, ExecuteResponse{
		Attributes: res.Attributes,
		Data:       res,
	})
}

// handleSetConfig handles POST /api/v0/execute/set_config.
func (a *Api) handleSetConfig(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req ExecuteRequest[ledger.Config]
	if err := decodeBody(r, &req); err != nil {
		a.writeLedgerError(w, r, "set config", err)
		return
	}
	attrs, err := a.ledger.SetConfig(r.Context(), req.execContext(), req.Msg)
	if err != nil {
		a.writeLedgerError(w, r, "set config", err)
		return
	}
	writeJSON(w, http.StatusOK, ExecuteResponse{
		Attributes: attrs,
	})
}

// handleClaims handles GET /api/v0/claims/{address} and returns one page of
// the address's claims.
func (a *Api) handleClaims(
	w http.ResponseWriter,
	r *http.Request,
) {
	query, err := ParseClaimsQuery(r, chi.URLParam(r, "address"))
	if err != nil {
		a.writeLedgerError(w, r, "query claims", err)
		return
	}
	res, err := a.ledger.Claims(r.Context(), query)
	if err != nil {
		a.writeLedgerError(w, r, "query claims", err)
		return
	}
	resp := ClaimsPageResponse{
		Cursor: res.Cursor,
		Claims: res.Claims,
	}
	if resp.Claims == nil {
		resp.Claims = []ledger.ClaimRecord{}
	}
	if res.Cursor != nil {
		resp.NextCursor = res.Cursor.Encode()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePayouts handles GET /api/v0/payouts/{address} and returns the
// address's most recent payouts.
func (a *Api) handlePayouts(
	w http.ResponseWriter,
	r *http.Request,
) {
	count, err := ParseCount(r)
	if err != nil {
		a.writeLedgerError(w, r, "list payouts", err)
		return
	}
	payouts, err := a.payouts.Payouts(chi.URLParam(r, "address"), count)
	if err != nil {
		a.writeLedgerError(w, r, "list payouts", err)
		return
	}
	resp := make([]PayoutResponse, 0, len(payouts))
	for _, p := range payouts {
		resp = append(resp, newPayoutResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}
