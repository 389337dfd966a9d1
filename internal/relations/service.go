package relations

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

// ConflictError reports a duplicate (source, target, name) tuple on create.
// It carries the pre-existing id so the caller can redirect instead of
// retrying.
type ConflictError struct {
	ExistingID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("relation already exists with id %s", e.ExistingID)
}

// MutationStore is the writable storage slice the service needs.
type MutationStore interface {
	GetAnnotation(id string) (*models.Annotation, error)
	GetRelationship(id string) (*models.AnnotationRelationship, error)
	FindRelationshipTuple(sourceID, targetID, name string) (*models.AnnotationRelationship, error)
	InsertRelationship(r *models.AnnotationRelationship) error
	UpdateRelationship(id string, name, description *string) (*models.AnnotationRelationship, error)
	DeleteRelationship(id string) error
	ValidateRelationship(id, actor string) (*models.AnnotationRelationship, error)
}

// Service owns relation writes. Every mutation that can affect a snapshot
// pushes the delta through the sync engine; a failed sync degrades to
// drift, it never fails the mutation itself.
type Service struct {
	store MutationStore
	sync  *syncengine.Engine
}

func NewService(store MutationStore, sync *syncengine.Engine) *Service {
	return &Service{store: store, sync: sync}
}

// CreateFromSuggestion creates the relation a confirmed action described.
// A duplicate (source, target, name) tuple returns ConflictError with the
// existing id and creates nothing.
func (s *Service) CreateFromSuggestion(ctx context.Context, sourceID, targetID, name, description, createdBy string) (*models.AnnotationRelationship, error) {
	source, err := s.store.GetAnnotation(sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source annotation: %w", err)
	}
	target, err := s.store.GetAnnotation(targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target annotation: %w", err)
	}
	if source.DocumentID != target.DocumentID {
		return nil, errors.New("annotations belong to different documents")
	}

	existing, err := s.store.FindRelationshipTuple(sourceID, targetID, name)
	if err == nil {
		return nil, &ConflictError{ExistingID: existing.ID}
	}
	if !errors.Is(err, sqlite.ErrNotFound) {
		return nil, err
	}

	rel := &models.AnnotationRelationship{
		ID:          uuid.NewString(),
		SourceID:    sourceID,
		TargetID:    targetID,
		Name:        name,
		Description: description,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now(),
	}

	if err := s.store.InsertRelationship(rel); err != nil {
		return nil, err
	}

	logger.Info("Relation created",
		zap.String("relationship_id", rel.ID),
		zap.String("name", rel.Name),
		zap.String("created_by", createdBy),
	)
	return rel, nil
}

// UpdateRelation renames or re-describes a relation. When the relation is
// validated its snapshot view is refreshed.
func (s *Service) UpdateRelation(ctx context.Context, id string, name, description *string) (*models.AnnotationRelationship, error) {
	if _, err := s.store.GetRelationship(id); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateRelationship(id, name, description)
	if err != nil {
		return nil, err
	}

	if updated.IsValidated {
		s.syncUpsert(ctx, updated)
	}
	return updated, nil
}

// DeleteRelation removes the relation from the store and its view from the
// snapshot.
func (s *Service) DeleteRelation(ctx context.Context, id string) error {
	rel, err := s.store.GetRelationship(id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteRelationship(id); err != nil {
		return err
	}

	if err := s.sync.RemoveRelation(ctx, rel); err != nil {
		logger.Warn("Snapshot removal degraded to drift",
			zap.String("relationship_id", rel.ID),
			zap.Error(err),
		)
	}

	return nil
}

// ValidateRelation flips the validation flag and pushes the new view into
// the snapshot immediately.
func (s *Service) ValidateRelation(ctx context.Context, id, actor string) (*models.AnnotationRelationship, error) {
	validated, err := s.store.ValidateRelationship(id, actor)
	if err != nil {
		return nil, err
	}

	s.syncUpsert(ctx, validated)
	return validated, nil
}

func (s *Service) syncUpsert(ctx context.Context, rel *models.AnnotationRelationship) {
	if err := s.sync.UpsertRelation(ctx, rel); err != nil {
		logger.Warn("Snapshot upsert degraded to drift",
			zap.String("relationship_id", rel.ID),
			zap.Error(err),
		)
	}
}
