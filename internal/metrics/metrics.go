package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xai_bench_evaluations_total",
		Help: "Property evaluations by explainer and property",
	}, []string{"explainer", "property"})

	CacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xai_bench_cache_lookups_total",
		Help: "Artifact cache lookups by measure and result (hit, miss)",
	}, []string{"measure", "result"})

	EarlyStopsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xai_bench_early_stops_total",
		Help: "Sampling loops that converged before the end of the dataset",
	}, []string{"measure"})

	PointsProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "xai_bench_points_processed_total",
		Help: "Data points scored by measure",
	}, []string{"measure"})

	InnerCallsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "xai_bench_inner_optimizer_calls_total",
		Help: "Objective calls made by the adversarial point search",
	})

	TrialDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "xai_bench_trial_duration_seconds",
		Help:    "Wall time of one hyperparameter trial",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"explainer", "strategy"})
)

var registerOnce sync.Once

// Init registers all collectors with the default registry. Safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EvaluationsTotal,
			CacheLookupsTotal,
			EarlyStopsTotal,
			PointsProcessedTotal,
			InnerCallsTotal,
			TrialDuration,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func LookupResult(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
