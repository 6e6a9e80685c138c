package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "odf_monitor"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	DisciplineCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "discipline_cache_lookups_total", Help: "Discipline list cache lookups by result (hit|miss)."},
		[]string{"result"},
	)
	Comparisons = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "comparisons_total", Help: "Document comparisons by mode and outcome."},
		[]string{"mode", "outcome"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency by route.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route", "status"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(DisciplineCacheLookups)
	reg.MustRegister(Comparisons)
	reg.MustRegister(HTTPRequestDuration)
}
