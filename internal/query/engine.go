package query

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docuqa/backend/internal/metrics"
	"github.com/docuqa/backend/internal/qa"
	"github.com/docuqa/backend/internal/relations"
	"github.com/docuqa/backend/internal/storage/models"
	"github.com/docuqa/backend/pkg/logger"
)

// Store is the storage slice the engine reads and logs through.
type Store interface {
	LoadSnapshot(documentID string) (*models.Snapshot, error)
	InsertQuestionRecord(record *models.QuestionRecord) error
	GetQuestionHistory(documentID string, limit int) ([]models.QuestionRecord, error)
}

// AnswerCache is the optional per-document answer cache.
type AnswerCache interface {
	GetAnswer(ctx context.Context, documentID, question string) (*qa.AnswerResult, bool)
	SetAnswer(ctx context.Context, documentID, question string, result *qa.AnswerResult)
}

// Enricher is the optional AI capability consulted only after every
// rule-based tier failed.
type Enricher interface {
	Enabled() bool
	Enhance(ctx context.Context, question string, snap *models.Snapshot) (string, error)
}

// AskResponse is the full outcome of one question.
type AskResponse struct {
	qa.AnswerResult
	Intent string                   `json:"intent"`
	Action *relations.PendingAction `json:"action,omitempty"`
	Cached bool                     `json:"cached"`
}

// Engine routes a question through relation-intent detection, the answer
// cache, and the tiered resolver, in that order. The rule-based path always
// produces a result; cache, enrichment and question logging are best-effort.
type Engine struct {
	store      Store
	classifier *qa.Classifier
	resolver   *qa.Resolver
	registry   *qa.Registry
	relations  *relations.Handler
	cache      AnswerCache
	enricher   Enricher
}

// NewEngine wires the engine. cache and enricher may be nil.
func NewEngine(store Store, resolver *qa.Resolver, registry *qa.Registry, relationHandler *relations.Handler, cache AnswerCache, enricher Enricher) *Engine {
	return &Engine{
		store:      store,
		classifier: qa.NewClassifier(),
		resolver:   resolver,
		registry:   registry,
		relations:  relationHandler,
		cache:      cache,
		enricher:   enricher,
	}
}

// Ask answers one question against one document.
func (e *Engine) Ask(ctx context.Context, question, documentID, userID string) (*AskResponse, error) {
	if question == "" {
		return nil, errors.New("question is required")
	}
	if documentID == "" {
		return nil, errors.New("document_id is required")
	}

	start := time.Now()

	// Relation-domain questions are routed to the relation handler first.
	// If no relation pattern matches inside, the question falls back to the
	// regular answer path below; it is never dropped.
	if e.relations.Triggered(question) {
		result, err := e.relations.Handle(question, documentID)
		if err != nil {
			return nil, err
		}
		if result.Handled {
			response := e.relationResponse(&result)
			e.logQuestion(documentID, userID, question, response, start)
			return response, nil
		}
	}

	if e.cache != nil {
		if cached, ok := e.cache.GetAnswer(ctx, documentID, question); ok {
			metrics.CacheHits.Inc()
			classification := e.classifier.Classify(question)
			return &AskResponse{
				AnswerResult: *cached,
				Intent:       string(classification.Intent),
				Cached:       true,
			}, nil
		}
		metrics.CacheMisses.Inc()
	}

	snap, err := e.store.LoadSnapshot(documentID)
	if err != nil {
		return nil, err
	}

	classification := e.classifier.Classify(question)
	result := e.resolver.Resolve(question, classification, snap)

	if result.Source == qa.AnswerSourceExactQA && result.QAID != "" {
		e.registry.IncrementUsage(result.QAID)
	}

	if result.Source == qa.AnswerSourceNotFound {
		result = e.tryEnrich(ctx, question, snap, result)
	}

	if e.cache != nil && result.Source != qa.AnswerSourceNotFound {
		e.cache.SetAnswer(ctx, documentID, question, &result)
	}

	response := &AskResponse{
		AnswerResult: result,
		Intent:       string(classification.Intent),
	}

	metrics.QuestionsTotal.WithLabelValues(string(classification.Intent), string(result.Source)).Inc()
	metrics.QuestionDuration.Observe(time.Since(start).Seconds())

	e.logQuestion(documentID, userID, question, response, start)
	return response, nil
}

// History returns the most recent answered questions for a document.
func (e *Engine) History(documentID string, limit int) ([]models.QuestionRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return e.store.GetQuestionHistory(documentID, limit)
}

// tryEnrich consults the optional AI capability on a not-found result. Any
// failure keeps the explicit not-found answer.
func (e *Engine) tryEnrich(ctx context.Context, question string, snap *models.Snapshot, notFound qa.AnswerResult) qa.AnswerResult {
	if e.enricher == nil || !e.enricher.Enabled() {
		return notFound
	}

	answer, err := e.enricher.Enhance(ctx, question, snap)
	if err != nil {
		logger.Warn("Enrichment failed, keeping not-found answer", zap.Error(err))
		return notFound
	}
	if answer == "" {
		return notFound
	}

	return qa.AnswerResult{
		Answer:          answer,
		Source:          qa.AnswerSourceAIEnriched,
		Confidence:      0.5,
		NeedsValidation: true,
	}
}

func (e *Engine) relationResponse(result *relations.Result) *AskResponse {
	response := &AskResponse{
		AnswerResult: qa.AnswerResult{
			Answer:          result.Answer,
			Source:          qa.AnswerSourceRelation,
			Confidence:      1.0,
			NeedsValidation: false,
		},
		Intent: "relation_action",
		Action: result.Action,
	}

	if result.Action != nil {
		response.Answer = result.Action.Message
		response.Confidence = 0.0
		response.NeedsValidation = true
		metrics.RelationActions.WithLabelValues(string(result.Action.Type)).Inc()
	}

	metrics.QuestionsTotal.WithLabelValues("relation_action", string(response.Source)).Inc()
	return response
}

// logQuestion records the question for history and feedback. Best effort.
func (e *Engine) logQuestion(documentID, userID, question string, response *AskResponse, start time.Time) {
	record := &models.QuestionRecord{
		ID:              uuid.NewString(),
		DocumentID:      documentID,
		UserID:          userID,
		Question:        question,
		Answer:          response.Answer,
		Source:          string(response.Source),
		Confidence:      response.Confidence,
		NeedsValidation: response.NeedsValidation,
		LatencyMS:       int(time.Since(start).Milliseconds()),
		CreatedAt:       time.Now(),
	}

	if err := e.store.InsertQuestionRecord(record); err != nil {
		logger.Warn("Failed to log question", zap.Error(err))
	}
}
