/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "aave_ledger"

	kindLabel    = "kind"
	outcomeLabel = "outcome"
)

// Outcomes recorded per ingested event
const (
	OutcomeApplied    = "applied"
	OutcomeIgnored    = "ignored"
	OutcomeSkipped    = "skipped"
	OutcomeDuplicate  = "duplicate"
	OutcomeOutOfOrder = "out_of_order"
	OutcomeFailed     = "failed"
)

// Ingest holds the counters written by the ingestion loop
type Ingest struct {
	registry *prometheus.Registry

	events          *prometheus.CounterVec
	reconciliations prometheus.Counter
	lastBlock       prometheus.Gauge
	lastBlockValue  float64
}

func NewIngest() (*Ingest, error) {
	m := &Ingest{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "number of feed events by kind and outcome",
			},
			[]string{kindLabel, outcomeLabel},
		),
		reconciliations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "number of applied reserve data updates",
		}),
		lastBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_block",
			Help:      "highest block number applied to the ledger",
		}),
	}

	for _, c := range []prometheus.Collector{m.events, m.reconciliations, m.lastBlock} {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

func (m *Ingest) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Ingest) Observe(kind, outcome string) {
	m.events.WithLabelValues(kind, outcome).Inc()
}

func (m *Ingest) Reconciled() {
	m.reconciliations.Inc()
}

// Block raises the last block gauge; lower blocks leave it unchanged
func (m *Ingest) Block(number uint64) {
	if float64(number) > m.lastBlockValue {
		m.lastBlockValue = float64(number)
		m.lastBlock.Set(m.lastBlockValue)
	}
}

// WriteTextfile dumps every metric in the node exporter textfile format
func (m *Ingest) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
