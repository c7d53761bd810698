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

package payout

import (
	"context"
	"io"
	"log/slog"

	"github.com/blinklabs-io/claimsd/token"
)

// Sink moves funds described by a transfer instruction. An error wrapped with
// backoff.Permanent is not retried.
type Sink interface {
	Deliver(ctx context.Context, payoutId string, instruction token.Instruction) error
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(context.Context, string, token.Instruction) error

func (f SinkFunc) Deliver(
	ctx context.Context,
	payoutId string,
	instruction token.Instruction,
) error {
	return f(ctx, payoutId, instruction)
}

// LogSink logs each instruction instead of executing it
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Deliver(
	_ context.Context,
	payoutId string,
	instruction token.Instruction,
) error {
	s.logger.Info(
		"payout",
		"component", "payout",
		"payout_id", payoutId,
		"kind", string(instruction.Kind),
		"token", instruction.Token.Key(),
		"recipient", instruction.Recipient,
		"amount", instruction.Amount.String(),
		"payload", string(instruction.Payload),
	)
	return nil
}
