// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WizardTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_transitions_total",
			Help: "Total number of wizard step transitions",
		},
		[]string{"flow", "op"},
	)

	WizardValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_validation_failures_total",
			Help: "Total number of blocked step advances",
		},
		[]string{"flow", "step"},
	)

	GatewayInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_invocations_total",
			Help: "Total number of outbound gateway invocations",
		},
		[]string{"op", "state"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "property_search_duration_seconds",
			Help: "Duration of filter pipeline runs in seconds",
		},
		[]string{"source"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"route", "method", "status"},
	)
)
