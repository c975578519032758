// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package gate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status constants for operation execution metrics.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusNotFound = "not_found"
	StatusDenied   = "denied"
	StatusInvalid  = "invalid"
)

// OperationExecutions is the counter for dispatched operations.
// Use RegisterMetrics to register this with a Prometheus registry.
var OperationExecutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authcore_operation_executions_total",
		Help: "Total number of dispatched operations",
	},
	[]string{"operation", "status"},
)

// OperationDuration is the histogram for handler execution duration.
var OperationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "authcore_operation_duration_seconds",
		Help:    "Operation handler duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// RegisterMetrics registers gate metrics with reg.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(OperationExecutions)
	reg.MustRegister(OperationDuration)
}

// RecordExecution increments the execution counter.
func RecordExecution(operation, status string) {
	OperationExecutions.WithLabelValues(operation, status).Inc()
}

// RecordDuration observes a handler duration.
func RecordDuration(operation string, d time.Duration) {
	OperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}
