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

	ClauseEnrichments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clause_enrichments_total",
			Help: "Clause enrichment calls by outcome (success, failed)",
		},
		[]string{"outcome"},
	)

	RiskEnhancements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_enhancements_total",
			Help: "Risk re-assessment outcomes (accepted, discarded, not_attempted, failed)",
		},
		[]string{"outcome"},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of document analysis stages",
			Buckets: []float64{0.01, 0.05, 0.25, 1, 5, 15, 30, 60, 120},
		},
		[]string{"stage"},
	)

	DocumentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documents_processed_total",
			Help: "Documents that reached a terminal status",
		},
		[]string{"status"},
	)

	DocumentRiskScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "document_overall_risk_score",
			Help:    "Overall risk score of analyzed documents",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
	)

	ExpertConsultations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expert_consultations_total",
			Help: "Expert panel consultations by role and outcome (success, failed)",
		},
		[]string{"role", "outcome"},
	)

	QueriesAnswered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queries_answered_total",
			Help: "Document queries by answer source (collaborator, fallback)",
		},
		[]string{"source"},
	)
)
