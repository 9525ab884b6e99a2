/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus vectors shared by every MetricsObserver.
type Metrics struct {
	evaluations *prometheus.CounterVec
	failures    *prometheus.CounterVec
	grades      *prometheus.GaugeVec
}

// NewMetrics registers the eval metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_evaluations_total",
			Help: "Total number of agent session evaluations performed",
		}, []string{"namespace"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_evaluation_failures_total",
			Help: "Total number of failed agent session evaluations",
		}, []string{"namespace"}),
		grades: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "agent_evaluation_grade",
			Help: "Most recent evaluation grade (0.0-1.0)",
		}, []string{"namespace"}),
	}
}

// Observer returns the observer for namespace, e.g. "/bugpass/records-bug".
// It has the signature NewNamespacedObserver expects.
func (m *Metrics) Observer(namespace string) *MetricsObserver {
	labels := prometheus.Labels{"namespace": namespace}
	return &MetricsObserver{
		evaluations: m.evaluations.With(labels),
		failures:    m.failures.With(labels),
		grade:       m.grades.With(labels),
	}
}

// MetricsObserver counts evaluations and failures.
type MetricsObserver struct {
	evaluations prometheus.Counter
	failures    prometheus.Counter
	grade       prometheus.Gauge
}

// Increment implements Observer.
func (m *MetricsObserver) Increment() { m.evaluations.Inc() }

// Fail implements Observer.
func (m *MetricsObserver) Fail(string) { m.failures.Inc() }

// Grade implements Observer.
func (m *MetricsObserver) Grade(score float64, _ string) { m.grade.Set(score) }

// Log implements Observer. Messages are not exported.
func (m *MetricsObserver) Log(string) {}

// Total implements Observer. The count lives in agent_evaluations_total.
func (m *MetricsObserver) Total() int64 { return 0 }
