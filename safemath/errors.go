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

package safemath

import (
	"errors"
	"fmt"
)

// ErrOverflow is returned when an operation exceeds the width of its integer type
var ErrOverflow = errors.New("overflow")

// ErrDivideByZero is returned when a divisor is zero
var ErrDivideByZero = errors.New("divide by zero")

// OverflowError describes the operation and operands that overflowed
type OverflowError struct {
	Op string
	A  string
	B  string
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("%s: cannot %s with %s and %s", ErrOverflow, e.Op, e.A, e.B)
}

func (e *OverflowError) Unwrap() error {
	return ErrOverflow
}

// DivideByZeroError describes the dividend of a failed division
type DivideByZeroError struct {
	Operand string
}

func (e *DivideByZeroError) Error() string {
	return fmt.Sprintf("%s: cannot divide %s by zero", ErrDivideByZero, e.Operand)
}

func (e *DivideByZeroError) Unwrap() error {
	return ErrDivideByZero
}

func overflow(op string, a, b string) error {
	return &OverflowError{Op: op, A: a, B: b}
}
