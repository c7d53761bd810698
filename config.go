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

package claimsd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/claimsd/payout"
	"github.com/blinklabs-io/claimsd/token"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultApiListenAddress = ":8080"
	DefaultShutdownTimeout  = 30 * time.Second
)

type Config struct {
	promRegistry     prometheus.Registerer
	logger           *slog.Logger
	payoutSink       payout.Sink
	dataDir          string
	apiListenAddress string
	addressPrefix    string
	version          string
	corsOrigins      []string
	badgerCacheSize  uint64
	payoutMaxRetries uint64
	batchLimit       int
	submsgLimit      int
	pageLimit        int
	payoutInterval   time.Duration
	payoutRetention  time.Duration
	shutdownTimeout  time.Duration
	tracing          bool
	tracingStdout    bool
	// Disables the payout dispatcher. Payouts are still recorded.
	payoutDisabled bool
}

func (n *Node) configValidate() error {
	if n.config.apiListenAddress == "" {
		return errors.New("no API listen address defined")
	}
	if n.config.addressPrefix != "" {
		// The prefix must survive an encode/decode round trip
		addr, err := token.EncodeAddress(n.config.addressPrefix, make([]byte, 20))
		if err == nil {
			err = token.ValidateAddress(addr, n.config.addressPrefix)
		}
		if err != nil {
			return fmt.Errorf(
				"invalid address prefix %q: %w",
				n.config.addressPrefix,
				err,
			)
		}
	}
	if n.config.batchLimit < 0 {
		return fmt.Errorf("invalid batch limit: %d", n.config.batchLimit)
	}
	if n.config.submsgLimit < 0 {
		return fmt.Errorf("invalid submsg limit: %d", n.config.submsgLimit)
	}
	if n.config.pageLimit < 0 {
		return fmt.Errorf("invalid page limit: %d", n.config.pageLimit)
	}
	if n.config.payoutInterval < 0 {
		return fmt.Errorf(
			"invalid payout interval: %s",
			n.config.payoutInterval,
		)
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new claimsd config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:           slog.New(slog.NewJSONHandler(io.Discard, nil)),
		apiListenAddress: DefaultApiListenAddress,
		shutdownTimeout:  DefaultShutdownTimeout,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithAddressPrefix specifies the bech32 prefix that recipient and sender addresses must carry. By default any prefix is accepted
func WithAddressPrefix(prefix string) ConfigOptionFunc {
	return func(c *Config) {
		c.addressPrefix = prefix
	}
}

// WithApiListenAddress specifies the listen address for the REST API. The default is ":8080"
func WithApiListenAddress(address string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = address
	}
}

// WithBadgerCacheSize specifies the total cache size in bytes for the blob store. It is split between the block and index caches
func WithBadgerCacheSize(size uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.badgerCacheSize = size
	}
}

// WithBatchLimit specifies the maximum number of claim IDs handled by a single claim request
func WithBatchLimit(limit int) ConfigOptionFunc {
	return func(c *Config) {
		c.batchLimit = limit
	}
}

// WithCorsOrigins specifies the origins allowed to make cross-origin API requests. The default allows any origin
func WithCorsOrigins(origins ...string) ConfigOptionFunc {
	return func(c *Config) {
		c.corsOrigins = append(c.corsOrigins, origins...)
	}
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPageLimit specifies the number of claims returned per query page
func WithPageLimit(limit int) ConfigOptionFunc {
	return func(c *Config) {
		c.pageLimit = limit
	}
}

// WithPayoutDisabled disables delivery of payouts. Claims still record payout instructions in the outbox
func WithPayoutDisabled(disabled bool) ConfigOptionFunc {
	return func(c *Config) {
		c.payoutDisabled = disabled
	}
}

// WithPayoutInterval specifies how often the payout outbox is polled. Payouts are also dispatched as soon as a claim commits
func WithPayoutInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.payoutInterval = interval
	}
}

// WithPayoutMaxRetries specifies how many times a failed payout delivery is retried before it is marked failed
func WithPayoutMaxRetries(retries uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.payoutMaxRetries = retries
	}
}

// WithPayoutRetention specifies how long sent payouts are kept in the outbox
func WithPayoutRetention(retention time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.payoutRetention = retention
	}
}

// WithPayoutSink specifies where payout instructions are delivered. The default logs each instruction
func WithPayoutSink(sink payout.Sink) ConfigOptionFunc {
	return func(c *Config) {
		c.payoutSink = sink
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}

// WithSubmsgLimit specifies the maximum number of distinct tokens paid out by a single claim
func WithSubmsgLimit(limit int) ConfigOptionFunc {
	return func(c *Config) {
		c.submsgLimit = limit
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithVersion specifies the version string reported by the API
func WithVersion(version string) ConfigOptionFunc {
	return func(c *Config) {
		c.version = version
	}
}
