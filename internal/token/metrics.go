// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package token

import "github.com/prometheus/client_golang/prometheus"

// Status label values.
const (
	StatusSuccess  = "success"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// TokensIssued counts Issue calls by status.
var TokensIssued = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authcore_tokens_issued_total",
		Help: "Total number of confirmation tokens issued",
	},
	[]string{"status"},
)

// TokensConsumed counts Consume calls by status.
var TokensConsumed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authcore_tokens_consumed_total",
		Help: "Total number of confirmation token redemptions",
	},
	[]string{"status"},
)

// RegisterMetrics registers token metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(TokensIssued)
	reg.MustRegister(TokensConsumed)
}

// RecordIssue increments the issue counter.
func RecordIssue(status string) {
	TokensIssued.WithLabelValues(status).Inc()
}

// RecordConsume increments the consume counter.
func RecordConsume(status string) {
	TokensConsumed.WithLabelValues(status).Inc()
}
