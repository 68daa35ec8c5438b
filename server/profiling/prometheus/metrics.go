/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package prometheus provides a Prometheus metrics exporter.
package prometheus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/yorkie-team/h5p-shared-state/internal/version"
)

const (
	namespace     = "h5p_shared_state"
	stageLabel    = "stage"
	codeLabel     = "code"
	kindLabel     = "kind"
	cacheLabel    = "cache"
	taskTypeLabel = "task_type"
	actionLabel   = "action"
)

// Metrics manages the metric information that the server is trying to measure.
type Metrics struct {
	registry *prometheus.Registry

	serverVersion *prometheus.GaugeVec

	connections          prometheus.Gauge
	messagesTotal        *prometheus.CounterVec
	operationsTotal      *prometheus.CounterVec
	operationSeconds     prometheus.Histogram
	transformedOpsTotal  prometheus.Counter
	presencesTotal       *prometheus.CounterVec
	broadcastsTotal      *prometheus.CounterVec
	droppedSubscriptions prometheus.Counter
	purgedOpsTotal       prometheus.Counter

	cacheHitsTotal   *prometheus.GaugeVec
	cacheMissesTotal *prometheus.GaugeVec

	backgroundGoroutinesTotal *prometheus.GaugeVec
}

// NewMetrics creates a new instance of Metrics.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	metrics := &Metrics{
		registry: reg,
		serverVersion: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "version",
			Help:      "Which version is running. 1 for 'server_version' label with current version.",
		}, []string{"server_version"}),
		connections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "connections",
			Help:      "The number of open WebSocket connections.",
		}),
		messagesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "messages_total",
			Help:      "Total number of messages handled, by action and result code.",
		}, []string{actionLabel, codeLabel}),
		operationsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "operations_total",
			Help:      "Total number of submitted operations, by kind, stage reached and result code.",
		}, []string{kindLabel, stageLabel, codeLabel}),
		operationSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "operation_seconds",
			Help:      "The time taken to run an operation through the pipeline.",
		}),
		transformedOpsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "transformed_operations_total",
			Help:      "Total number of concurrent operations submitted operations were transformed against.",
		}),
		presencesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "presences_total",
			Help:      "Total number of submitted presences, by result code.",
		}, []string{codeLabel}),
		broadcastsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pubsub",
			Name:      "broadcasts_total",
			Help:      "Total number of events published to subscribers, by kind.",
		}, []string{kindLabel}),
		droppedSubscriptions: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pubsub",
			Name:      "dropped_subscriptions_total",
			Help:      "Total number of subscriptions closed because they could not keep up.",
		}),
		purgedOpsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "housekeeping",
			Name:      "purged_operations_total",
			Help:      "Total number of operations removed from the operation log.",
		}),
		cacheHitsTotal: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits.",
		}, []string{cacheLabel}),
		cacheMissesTotal: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses.",
		}, []string{cacheLabel}),
		backgroundGoroutinesTotal: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "background",
			Name:      "goroutines_total",
			Help:      "The total number of goroutines attached by a particular background task.",
		}, []string{taskTypeLabel}),
	}

	metrics.serverVersion.With(prometheus.Labels{
		"server_version": version.Version,
	}).Set(1)

	return metrics, nil
}

// AddConnection counts an opened connection.
func (m *Metrics) AddConnection() {
	m.connections.Inc()
}

// RemoveConnection counts a closed connection.
func (m *Metrics) RemoveConnection() {
	m.connections.Dec()
}

// AddMessage counts a handled message.
func (m *Metrics) AddMessage(action, code string) {
	m.messagesTotal.With(prometheus.Labels{
		actionLabel: action,
		codeLabel:   code,
	}).Inc()
}

// AddOperation counts a submitted operation of the given kind that ended at
// the given stage with the given code.
func (m *Metrics) AddOperation(kind, stage, code string) {
	m.operationsTotal.With(prometheus.Labels{
		kindLabel:  kind,
		stageLabel: stage,
		codeLabel:  code,
	}).Inc()
}

// ObserveOperationSeconds observes the time taken by an operation.
func (m *Metrics) ObserveOperationSeconds(seconds float64) {
	m.operationSeconds.Observe(seconds)
}

// AddTransformedOperations counts operations a submission was transformed
// against.
func (m *Metrics) AddTransformedOperations(count int) {
	m.transformedOpsTotal.Add(float64(count))
}

// AddPresence counts a submitted presence.
func (m *Metrics) AddPresence(code string) {
	m.presencesTotal.With(prometheus.Labels{codeLabel: code}).Inc()
}

// AddBroadcast counts a published event.
func (m *Metrics) AddBroadcast(kind string) {
	m.broadcastsTotal.With(prometheus.Labels{kindLabel: kind}).Inc()
}

// AddDroppedSubscription counts a subscription closed for being too slow.
func (m *Metrics) AddDroppedSubscription() {
	m.droppedSubscriptions.Inc()
}

// AddPurgedOperations counts operations removed from the operation log.
func (m *Metrics) AddPurgedOperations(count int) {
	m.purgedOpsTotal.Add(float64(count))
}

// SetCacheStats sets the hit and miss counts of the named cache.
func (m *Metrics) SetCacheStats(cache string, hits, misses int64) {
	m.cacheHitsTotal.With(prometheus.Labels{cacheLabel: cache}).Set(float64(hits))
	m.cacheMissesTotal.With(prometheus.Labels{cacheLabel: cache}).Set(float64(misses))
}

// AddBackgroundGoroutines adds the number of goroutines attached by a particular background task.
func (m *Metrics) AddBackgroundGoroutines(taskType string) {
	m.backgroundGoroutinesTotal.With(prometheus.Labels{
		taskTypeLabel: taskType,
	}).Inc()
}

// RemoveBackgroundGoroutines removes the number of goroutines attached by a particular background task.
func (m *Metrics) RemoveBackgroundGoroutines(taskType string) {
	m.backgroundGoroutinesTotal.With(prometheus.Labels{
		taskTypeLabel: taskType,
	}).Dec()
}

// Registry returns the registry of this metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
