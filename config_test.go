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
	"testing"
	"time"

	"github.com/blinklabs-io/claimsd/payout"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.NotNil(t, cfg.logger)
	assert.Equal(t, DefaultApiListenAddress, cfg.apiListenAddress)
	assert.Equal(t, DefaultShutdownTimeout, cfg.shutdownTimeout)
	assert.Empty(t, cfg.dataDir)
	assert.Nil(t, cfg.promRegistry)
	assert.Nil(t, cfg.payoutSink)
	assert.False(t, cfg.tracing)
}

func TestNewConfigOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := payout.NewLogSink(nil)
	cfg := NewConfig(
		WithDatabasePath("/tmp/claimsd"),
		WithApiListenAddress("127.0.0.1:9000"),
		WithCorsOrigins("https://a.example", "https://b.example"),
		WithAddressPrefix("cosmos"),
		WithBatchLimit(10),
		WithSubmsgLimit(5),
		WithPageLimit(20),
		WithBadgerCacheSize(1024),
		WithPayoutInterval(time.Minute),
		WithPayoutMaxRetries(3),
		WithPayoutRetention(time.Hour),
		WithPayoutSink(sink),
		WithPayoutDisabled(true),
		WithPrometheusRegistry(reg),
		WithShutdownTimeout(5*time.Second),
		WithTracing(true),
		WithTracingStdout(true),
		WithVersion("v1.2.3"),
	)
	assert.Equal(t, "/tmp/claimsd", cfg.dataDir)
	assert.Equal(t, "127.0.0.1:9000", cfg.apiListenAddress)
	assert.Equal(
		t,
		[]string{"https://a.example", "https://b.example"},
		cfg.corsOrigins,
	)
	assert.Equal(t, "cosmos", cfg.addressPrefix)
	assert.Equal(t, 10, cfg.batchLimit)
	assert.Equal(t, 5, cfg.submsgLimit)
	assert.Equal(t, 20, cfg.pageLimit)
	assert.Equal(t, uint64(1024), cfg.badgerCacheSize)
	assert.Equal(t, time.Minute, cfg.payoutInterval)
	assert.Equal(t, uint64(3), cfg.payoutMaxRetries)
	assert.Equal(t, time.Hour, cfg.payoutRetention)
	assert.Same(t, sink, cfg.payoutSink)
	assert.True(t, cfg.payoutDisabled)
	assert.Same(t, reg, cfg.promRegistry)
	assert.Equal(t, 5*time.Second, cfg.shutdownTimeout)
	assert.True(t, cfg.tracing)
	assert.True(t, cfg.tracingStdout)
	assert.Equal(t, "v1.2.3", cfg.version)
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		opts []ConfigOptionFunc
	}{
		{"empty listen address", []ConfigOptionFunc{WithApiListenAddress("")}},
		{"uppercase prefix", []ConfigOptionFunc{WithAddressPrefix("COSMOS")}},
		{"negative batch limit", []ConfigOptionFunc{WithBatchLimit(-1)}},
		{"negative submsg limit", []ConfigOptionFunc{WithSubmsgLimit(-1)}},
		{"negative page limit", []ConfigOptionFunc{WithPageLimit(-1)}},
		{"negative interval", []ConfigOptionFunc{WithPayoutInterval(-time.Second)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(NewConfig(tt.opts...))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
	n, err := New(NewConfig(WithAddressPrefix("cosmos")))
	require.NoError(t, err)
	require.NotNil(t, n)
}
