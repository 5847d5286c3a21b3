// internal/common/metrics/metrics.go
package metrics

import (
	"context"
	"time"

	"mf-search-workers/internal/common/observability"

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
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40},
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

	FundQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fund_queries_total",
			Help: "Fund queries answered, by intent mode",
		},
		[]string{"mode"},
	)

	FundRetrievalMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fund_retrieval_misses_total",
			Help: "Requested funds that could not be matched in the fund index",
		},
		[]string{"mode"},
	)

	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_calls_total",
			Help: "Language model and embedding calls by purpose and outcome",
		},
		[]string{"purpose", "status"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fund_cache_lookups_total",
			Help: "Redis cache lookups for intents and embeddings",
		},
		[]string{"cache", "result"},
	)

	FundsIndexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funds_indexed_total",
			Help: "Fund documents sent to the search index, by result",
		},
		[]string{"result"},
	)
)

// JobTimer observes the duration of one job and tracks it as active.
type JobTimer struct {
	taskType string
	start    time.Time
	timer    *prometheus.Timer
}

func StartJob(taskType string) *JobTimer {
	WorkerJobsActive.WithLabelValues(taskType).Inc()
	return &JobTimer{
		taskType: taskType,
		start:    time.Now(),
		timer:    prometheus.NewTimer(WorkerJobDuration.WithLabelValues(taskType)),
	}
}

// Done records the outcome on both the Prometheus collectors and the OTel
// meter. An empty errorCode counts as completed.
func (j *JobTimer) Done(errorCode string) {
	WorkerJobsActive.WithLabelValues(j.taskType).Dec()
	j.timer.ObserveDuration()

	status := errorCode
	if errorCode == "" {
		status = "completed"
		WorkerJobsCompleted.WithLabelValues(j.taskType).Inc()
	} else {
		WorkerJobsFailed.WithLabelValues(j.taskType, errorCode).Inc()
	}
	observability.RecordJob(context.Background(), j.taskType, status, time.Since(j.start))
}
