package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrowledger_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "escrowledger_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrowledger_webhook_events_total",
			Help: "Total number of gateway webhook events by kind and result",
		},
		[]string{"kind", "result"},
	)

	EscrowTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrowledger_escrow_transitions_total",
			Help: "Total number of applied escrow transitions",
		},
		[]string{"status"},
	)

	WithdrawalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrowledger_withdrawals_total",
			Help: "Total number of withdrawal requests by status",
		},
		[]string{"status"},
	)

	CurrencyCreditsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "escrowledger_currency_credits_total",
			Help: "Total number of applied currency purchases",
		},
	)

	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrowledger_notifications_sent_total",
			Help: "Total number of delivered notifications",
		},
		[]string{"kind", "status"},
	)
)

func RecordHTTPRequest(method, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, status).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(duration)
}

func RecordWebhookEvent(kind, result string) {
	WebhookEventsTotal.WithLabelValues(kind, result).Inc()
}

func RecordEscrowTransition(status string) {
	EscrowTransitionsTotal.WithLabelValues(status).Inc()
}

func RecordWithdrawal(status string) {
	WithdrawalsTotal.WithLabelValues(status).Inc()
}

func RecordCurrencyCredit() {
	CurrencyCreditsTotal.Inc()
}

func RecordNotification(kind, status string) {
	NotificationsSentTotal.WithLabelValues(kind, status).Inc()
}
