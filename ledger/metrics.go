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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	opUpsert    = "upsert"
	opClaim     = "claim"
	opQuery     = "query"
	opSetConfig = "set_config"
)

type stateMetrics struct {
	upsertsTotal        prometheus.Counter
	contributionsTotal  prometheus.Counter
	claimsCreatedTotal  prometheus.Counter
	claimsTotal         prometheus.Counter
	claimedRecordsTotal prometheus.Counter
	queriesTotal        prometheus.Counter
	errorsTotal         *prometheus.CounterVec
	opDuration          *prometheus.HistogramVec
}

func (m *stateMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.upsertsTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "claimsd_ledger_upserts_total",
		Help: "total number of applied upserts",
	})
	m.contributionsTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "claimsd_ledger_contributions_total",
		Help: "total number of contributions merged into claims",
	})
	m.claimsCreatedTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "claimsd_ledger_records_created_total",
		Help: "total number of claim records created",
	})
	m.claimsTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "claimsd_ledger_claims_total",
		Help: "total number of applied claims",
	})
	m.claimedRecordsTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "claimsd_ledger_claimed_records_total",
		Help: "total number of claim records withdrawn",
	})
	m.queriesTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "claimsd_ledger_queries_total",
		Help: "total number of claims queries",
	})
	m.errorsTotal = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimsd_ledger_errors_total",
			Help: "failed ledger operations",
		},
		[]string{"op"},
	)
	m.opDuration = promautoFactory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "claimsd_ledger_op_duration_seconds",
			Help:    "ledger operation latency",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"op"},
	)
}
