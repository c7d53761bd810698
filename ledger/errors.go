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
	"errors"
	"fmt"

	"github.com/blinklabs-io/claimsd/safemath"
)

var (
	// ErrValidation is returned for requests that exceed a limit or are
	// malformed. The caller can correct them.
	ErrValidation = errors.New("validation error")
	// ErrInsufficientFunds is returned when attached or pushed funds do not
	// exactly cover the declared contributions
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNotAuthorized is returned when a pushed token does not come from the
	// contract it claims to be
	ErrNotAuthorized = errors.New("not authorized")
	// ErrIndexCorrupt is returned when an index entry points at a missing record
	ErrIndexCorrupt = errors.New("claim index corrupt")

	ErrOverflow     = safemath.ErrOverflow
	ErrDivideByZero = safemath.ErrDivideByZero
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func insufficientFundsError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInsufficientFunds, reason)
}

func notAuthorizedError(reason string) error {
	return fmt.Errorf("%w: %s", ErrNotAuthorized, reason)
}
