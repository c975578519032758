// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package notify

import "github.com/prometheus/client_golang/prometheus"

// Label values.
const (
	NotifierJetStream = "jetstream"
	NotifierLog       = "log"

	StatusSuccess = "success"
	StatusError   = "error"
)

// NotificationsSent counts confirmation deliveries by notifier and status.
var NotificationsSent = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authcore_notifications_sent_total",
		Help: "Total number of confirmation notifications handed off",
	},
	[]string{"notifier", "status"},
)

// RegisterMetrics registers notify metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(NotificationsSent)
}

// RecordSent increments the notification counter.
func RecordSent(notifier, status string) {
	NotificationsSent.WithLabelValues(notifier, status).Inc()
}
