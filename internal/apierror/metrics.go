// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package apierror

import "github.com/prometheus/client_golang/prometheus"

// ErrorsNormalized counts errors returned to clients by external code.
var ErrorsNormalized = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authcore_errors_normalized_total",
		Help: "Total number of errors returned to clients, by external code",
	},
	[]string{"code"},
)

// RegisterMetrics registers apierror metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(ErrorsNormalized)
}

// RecordNormalized increments the counter for code.
func RecordNormalized(code string) {
	ErrorsNormalized.WithLabelValues(code).Inc()
}
