package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by method, path and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallfloor_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks request latency by method and path
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wallfloor_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// SMSDeliveriesTotal counts gateway deliveries by message type and
	// outcome, mirroring the sms_logs ledger
	SMSDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallfloor_sms_deliveries_total",
			Help: "Total SMS gateway deliveries by type and status",
		},
		[]string{"message_type", "status"},
	)

	// OTPVerificationsTotal counts OTP verification outcomes
	OTPVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallfloor_otp_verifications_total",
			Help: "Total OTP verification attempts by flow and outcome",
		},
		[]string{"flow", "outcome"},
	)
)
