package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docuqa_questions_total",
		Help: "Questions answered, by intent and answer source",
	}, []string{"intent", "source"})

	QuestionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "docuqa_question_duration_seconds",
		Help:    "End to end question resolution latency",
		Buckets: prometheus.DefBuckets,
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docuqa_answer_cache_hits_total",
		Help: "Answer cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docuqa_answer_cache_misses_total",
		Help: "Answer cache misses",
	})

	SyncOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docuqa_sync_operations_total",
		Help: "Snapshot sync operations, by operation and status",
	}, []string{"operation", "status"})

	ValidatedAnswers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docuqa_validated_answers_total",
		Help: "Expert validations recorded",
	})

	AnswerCorrections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docuqa_answer_corrections_total",
		Help: "Corrections applied to validated answers",
	})

	RelationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docuqa_relation_actions_total",
		Help: "Pending relation actions emitted, by action type",
	}, []string{"action"})

	EnrichmentCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docuqa_enrichment_calls_total",
		Help: "Optional enrichment calls, by status",
	}, []string{"status"})

	DocumentsImported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docuqa_documents_imported_total",
		Help: "Documents imported through the ingestion pipeline",
	})
)
