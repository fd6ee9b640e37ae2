package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "studentform"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter."},
		[]string{"limiter"},
	)
	Submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "submissions_total", Help: "Form submissions by outcome."},
		[]string{"outcome"},
	)
	QueryCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "query_cache_total", Help: "Response query cache lookups by result."},
		[]string{"result"},
	)
	RecordFetchDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "record_fetch_dropped_total", Help: "Indexed records that could not be read during a query."},
	)
)

// Submission outcomes.
const (
	OutcomeAccepted    = "accepted"
	OutcomeRateLimited = "rate_limited"
	OutcomeBadRequest  = "bad_request"
	OutcomeInvalid     = "invalid"
	OutcomeError       = "error"
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(Submissions)
	reg.MustRegister(QueryCache)
	reg.MustRegister(RecordFetchDropped)
}
