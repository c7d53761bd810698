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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const payoutMetricNamePrefix = "claimsd_payout_"

type dispatcherMetrics struct {
	sentTotal     prometheus.Counter
	failedTotal   prometheus.Counter
	attemptsTotal prometheus.Counter
	runsTotal     prometheus.Counter
}

func (m *dispatcherMetrics) init(promRegistry prometheus.Registerer) {
	// Unregistered collectors when no registry is provided
	promautoFactory := promauto.With(promRegistry)
	m.sentTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: payoutMetricNamePrefix + "sent_total",
		Help: "number of payouts delivered",
	})
	m.failedTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: payoutMetricNamePrefix + "failed_total",
		Help: "number of payouts that exhausted their delivery attempts",
	})
	m.attemptsTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: payoutMetricNamePrefix + "attempts_total",
		Help: "number of delivery attempts",
	})
	m.runsTotal = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: payoutMetricNamePrefix + "dispatch_runs_total",
		Help: "number of dispatch passes over pending payouts",
	})
}
