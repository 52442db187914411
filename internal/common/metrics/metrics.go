// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	AssessmentsByStatus = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessments_total",
			Help: "Total number of deal assessments by resulting status",
		},
		[]string{"status"},
	)

	AssessmentScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assessment_final_score",
			Help:    "Distribution of final assessment scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	InsightsFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "insights_fallback_total",
			Help: "Total number of times templated fallback insights were used",
		},
	)

	CriteriaCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "criteria_cache_requests_total",
			Help: "Criteria cache lookups by outcome (hit, miss, error)",
		},
		[]string{"outcome"},
	)
)
