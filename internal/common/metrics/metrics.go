// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_delivered_total",
			Help: "Total number of delivery attempts by channel and final status",
		},
		[]string{"channel", "status"},
	)

	PushChunksSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_chunks_sent_total",
			Help: "Total number of multicast chunk calls issued to the push provider",
		},
		[]string{"outcome"},
	)

	DeviceTokensDeactivated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "device_tokens_deactivated_total",
			Help: "Total number of device tokens deactivated after provider failures",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP request handling in seconds",
		},
		[]string{"route", "method", "status"},
	)
)
