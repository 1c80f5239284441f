// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates routing counters for the /metrics endpoint.
type Metrics struct {
	Classifications *prometheus.CounterVec
	PolicyRefusals  prometheus.Counter
	ContextTrims    prometheus.Counter
	ContextRefusals prometheus.Counter
	UpstreamLatency prometheus.Histogram
}

// NewMetrics registers the routing metrics on reg. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "heddle_classifications_total",
			Help: "Requests classified, by complexity tier.",
		}, []string{"tier"}),
		PolicyRefusals: factory.NewCounter(prometheus.CounterOpts{
			Name: "heddle_policy_refusals_total",
			Help: "Requests refused for documentation-policy violations.",
		}),
		ContextTrims: factory.NewCounter(prometheus.CounterOpts{
			Name: "heddle_context_trims_total",
			Help: "Requests trimmed by the context guard.",
		}),
		ContextRefusals: factory.NewCounter(prometheus.CounterOpts{
			Name: "heddle_context_refusals_total",
			Help: "Requests refused at the hard context limit.",
		}),
		UpstreamLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "heddle_upstream_latency_seconds",
			Help:    "Upstream completion latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
