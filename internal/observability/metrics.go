// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package observability

import "github.com/prometheus/client_golang/prometheus"

// Sign-in outcomes.
const (
	SignInSuccess  = "success"
	SignInRejected = "rejected"
	SignInError    = "error"
)

// Notification delivery statuses.
const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// Metrics holds the accountd application metrics.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SignInTotal         *prometheus.CounterVec
	NotificationsTotal  *prometheus.CounterVec
}

// NewMetrics creates the application metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accountd_http_requests_total",
				Help: "Total number of API requests by method, route pattern and status code",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "accountd_http_request_duration_seconds",
				Help:    "API request latency by method and route pattern",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SignInTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accountd_sign_in_total",
				Help: "Sign-in attempts by outcome",
			},
			[]string{"outcome"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accountd_notifications_total",
				Help: "Credential notifications by kind and delivery status",
			},
			[]string{"kind", "status"},
		),
	}

	reg.MustRegister(m.HTTPRequestsTotal, m.HTTPRequestDuration, m.SignInTotal, m.NotificationsTotal)
	return m
}

// RecordSignIn counts a sign-in attempt. Nil receivers are no-ops.
func (m *Metrics) RecordSignIn(outcome string) {
	if m == nil {
		return
	}
	m.SignInTotal.WithLabelValues(outcome).Inc()
}

// RecordNotification counts a notification attempt. Nil receivers are no-ops.
func (m *Metrics) RecordNotification(kind, status string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(kind, status).Inc()
}
