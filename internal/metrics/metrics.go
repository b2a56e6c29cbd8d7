// Package metrics defines prometheus metrics to expose
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plutus_api_request_duration_seconds",
			Help:    "Total time taken for requests in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 60, 120, 300},
		},
		[]string{"endpoint"},
	)

	TimeToFirstFragment = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plutus_api_time_to_first_fragment_seconds",
			Help:    "Time from turn start to first TTS fragment in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 60},
		},
		[]string{"endpoint"},
	)

	TTSFragments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plutus_api_tts_fragments_total",
			Help: "Total number of text fragments forwarded to the speech sink",
		},
		[]string{"endpoint"},
	)

	Turns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plutus_api_turns_total",
			Help: "Total number of completed conversation turns",
		},
		[]string{"endpoint", "outcome"},
	)

	WebhookAuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plutus_api_webhook_auth_failures_total",
			Help: "Webhook requests rejected before processing",
		},
		[]string{"endpoint", "reason"},
	)

	ErrorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plutus_api_error_count",
			Help: "Error count",
		},
		[]string{"endpoint", "from"},
	)

	ResponseCodes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plutus_api_status_code",
			Help: "Status Codes",
		},
		[]string{"path", "status_code"},
	)
)
