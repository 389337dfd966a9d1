package qa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docuqa/backend/internal/storage/models"
	"github.com/docuqa/backend/internal/storage/sqlite"
	"github.com/docuqa/backend/internal/syncengine"
	"github.com/docuqa/backend/pkg/logger"
)

// ErrNotAuthorized is returned when an actor tries to delete a validated
// answer they did not author without being privileged.
var ErrNotAuthorized = errors.New("not authorized")

// RegistryStore is the storage slice behind the registry.
type RegistryStore interface {
	InsertValidatedQA(qa *models.ValidatedQA) error
	GetValidatedQAByID(id string) (*models.ValidatedQA, error)
	FindActiveByNormalizedQuestion(documentID, questionNormalized string) (*models.ValidatedQA, error)
	UpdateValidatedQA(qa *models.ValidatedQA) error
	SoftDeleteQA(id string) error
	GetActiveQAForDocument(documentID string) ([]models.ValidatedQA, error)
	IncrementQAUsage(id string) error
}

// ValidateRequest captures one expert validation.
type ValidateRequest struct {
	Question    string
	Answer      string
	DocumentID  string
	ValidatedBy string
	SourceType  models.SourceType
	JSONPath    string
	Tags        []string
	IsGlobal    bool
}

// Registry owns the lifecycle of validated answers: create-or-correct on
// validation, correction with history, soft delete with authorship check.
// Every successful write is pushed into the document snapshot; a failed
// push degrades to drift and is only logged.
type Registry struct {
	store RegistryStore
	sync  *syncengine.Engine
}

func NewRegistry(store RegistryStore, sync *syncengine.Engine) *Registry {
	return &Registry{store: store, sync: sync}
}

// Validate stores an expert-confirmed answer. If an active record already
// holds the same normalized question for this document (or globally), the
// record is corrected in place rather than duplicated. Expert validation
// always sets confidence to 1.0.
func (r *Registry) Validate(ctx context.Context, req ValidateRequest) (*models.ValidatedQA, error) {
	if req.Question == "" || req.Answer == "" {
		return nil, errors.New("question and answer are required")
	}
	if req.ValidatedBy == "" {
		return nil, errors.New("validated_by is required")
	}

	normalized := Normalize(req.Question)

	existing, err := r.store.FindActiveByNormalizedQuestion(req.DocumentID, normalized)
	if err == nil {
		return r.correctRecord(ctx, existing, req.Answer, req.ValidatedBy, existing.SourceType)
	}
	if !errors.Is(err, sqlite.ErrNotFound) {
		return nil, err
	}

	sourceType := req.SourceType
	if sourceType == "" {
		sourceType = models.SourceExpertKnowledge
	}

	qa := &models.ValidatedQA{
		ID:                 uuid.NewString(),
		DocumentID:         req.DocumentID,
		Question:           req.Question,
		QuestionNormalized: normalized,
		Answer:             req.Answer,
		SourceType:         sourceType,
		JSONPath:           req.JSONPath,
		Confidence:         1.0,
		PreviousAnswers:    []string{},
		ValidatedBy:        req.ValidatedBy,
		ValidatedAt:        time.Now(),
		Tags:               req.Tags,
		IsActive:           true,
		IsGlobal:           req.IsGlobal,
	}

	if err := r.store.InsertValidatedQA(qa); err != nil {
		return nil, err
	}

	r.syncUpsert(ctx, qa)
	return qa, nil
}

// Correct replaces the answer of an existing record, keeping the old
// answer in previous_answers and bumping correction_count. The correction
// is expert-verified, so confidence resets to 1.0.
func (r *Registry) Correct(ctx context.Context, qaID, newAnswer, correctedBy string) (*models.ValidatedQA, error) {
	if newAnswer == "" {
		return nil, errors.New("new answer is required")
	}

	qa, err := r.store.GetValidatedQAByID(qaID)
	if err != nil {
		return nil, err
	}

	return r.correctRecord(ctx, qa, newAnswer, correctedBy, models.SourceAICorrection)
}

func (r *Registry) correctRecord(ctx context.Context, qa *models.ValidatedQA, newAnswer, actor string, sourceType models.SourceType) (*models.ValidatedQA, error) {
	if qa.Answer != newAnswer {
		qa.PreviousAnswers = append(qa.PreviousAnswers, qa.Answer)
		qa.CorrectionCount++
	}
	qa.Answer = newAnswer
	qa.SourceType = sourceType
	qa.Confidence = 1.0
	qa.ValidatedBy = actor
	qa.ValidatedAt = time.Now()

	if err := r.store.UpdateValidatedQA(qa); err != nil {
		return nil, err
	}

	logger.Info("Validated answer corrected",
		zap.String("qa_id", qa.ID),
		zap.Int("correction_count", qa.CorrectionCount),
		zap.String("corrected_by", actor),
	)

	r.syncUpsert(ctx, qa)
	return qa, nil
}

// List returns every active validated answer visible to the document.
func (r *Registry) List(documentID string) ([]models.ValidatedQA, error) {
	return r.store.GetActiveQAForDocument(documentID)
}

// IncrementUsage bumps the usage counter after an exact hit. Best effort.
func (r *Registry) IncrementUsage(qaID string) {
	if err := r.store.IncrementQAUsage(qaID); err != nil {
		logger.Warn("Failed to increment QA usage", zap.String("qa_id", qaID), zap.Error(err))
	}
}

// Delete soft-deletes a record. Only the original validator or a
// privileged actor may delete.
func (r *Registry) Delete(ctx context.Context, qaID, actor string, privileged bool) error {
	qa, err := r.store.GetValidatedQAByID(qaID)
	if err != nil {
		return err
	}

	if !privileged && qa.ValidatedBy != actor {
		return fmt.Errorf("actor %s cannot delete QA validated by %s: %w", actor, qa.ValidatedBy, ErrNotAuthorized)
	}

	if err := r.store.SoftDeleteQA(qaID); err != nil {
		return err
	}

	if err := r.sync.RemoveValidatedQA(ctx, qa); err != nil {
		logger.Warn("Snapshot QA removal degraded to drift",
			zap.String("qa_id", qa.ID),
			zap.Error(err),
		)
	}

	return nil
}

func (r *Registry) syncUpsert(ctx context.Context, qa *models.ValidatedQA) {
	if err := r.sync.UpsertValidatedQA(ctx, qa); err != nil {
		logger.Warn("Snapshot QA upsert degraded to drift",
			zap.String("qa_id", qa.ID),
			zap.Error(err),
		)
	}
}
