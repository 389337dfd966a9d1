package syncengine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/docuqa/backend/internal/storage/models"
	"github.com/docuqa/backend/pkg/logger"
)

// Store is the slice of the relational client the sync engine needs.
type Store interface {
	GetDocument(id string) (*models.Document, error)
	LoadSnapshot(documentID string) (*models.Snapshot, error)
	SaveSnapshot(documentID string, snap *models.Snapshot) error
	GetAnnotation(id string) (*models.Annotation, error)
	GetRelationshipsByDocument(documentID string, validatedOnly bool) ([]models.AnnotationRelationship, error)
	GetActiveQAForDocument(documentID string) ([]models.ValidatedQA, error)
	CountValidatedRelationsByDocument(documentID string) (int, error)
}

// GraphMirror receives the document's validated relations after each sync.
// It is write-only from the engine's point of view and always best-effort.
type GraphMirror interface {
	MirrorRelations(ctx context.Context, documentID string, relations []models.RelationView) error
}

// CacheInvalidator drops cached answers for a document whose snapshot
// changed.
type CacheInvalidator interface {
	InvalidateDocument(ctx context.Context, documentID string) error
}

// Engine keeps the per-document snapshot consistent with the authoritative
// relational store. Every operation is idempotent given the same
// authoritative state. Mirror and cache failures degrade to a log line;
// only the snapshot write itself can fail an operation.
type Engine struct {
	store  Store
	mirror GraphMirror
	cache  CacheInvalidator
}

// NewEngine wires the engine. mirror and cache may be nil.
func NewEngine(store Store, mirror GraphMirror, cache CacheInvalidator) *Engine {
	return &Engine{store: store, mirror: mirror, cache: cache}
}

// SyncDocument rebuilds both relations[] and validated_qa[] from scratch.
func (e *Engine) SyncDocument(ctx context.Context, documentID, actor string) (*models.SyncStats, error) {
	if _, err := e.store.GetDocument(documentID); err != nil {
		return nil, fmt.Errorf("failed to sync document: %w", err)
	}

	relationViews, err := e.buildRelationViews(documentID)
	if err != nil {
		return nil, err
	}

	qaViews, err := e.buildQAViews(documentID)
	if err != nil {
		return nil, err
	}

	snap, err := e.store.LoadSnapshot(documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	now := time.Now()
	snap = RebuildRelationViews(snap, relationViews, actor, now)
	snap = RebuildQAViews(snap, qaViews, now)

	if err := e.store.SaveSnapshot(documentID, snap); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}

	e.afterSnapshotWrite(ctx, documentID, snap)

	logger.Info("Document synced",
		zap.String("doc_id", documentID),
		zap.String("actor", actor),
		zap.Int("relations", len(relationViews)),
		zap.Int("validated_qa", len(qaViews)),
	)

	return &models.SyncStats{
		DocumentID:     documentID,
		TotalRelations: len(relationViews),
		TotalQA:        len(qaViews),
		EntityTypes:    len(snap.Entities),
		SyncedAt:       now,
	}, nil
}

// UpsertRelation pushes a single validated edge into the snapshot without
// touching unrelated relations. Call it right after a validation flag flips.
func (e *Engine) UpsertRelation(ctx context.Context, rel *models.AnnotationRelationship) error {
	source, err := e.store.GetAnnotation(rel.SourceID)
	if err != nil {
		return fmt.Errorf("failed to resolve source annotation: %w", err)
	}
	target, err := e.store.GetAnnotation(rel.TargetID)
	if err != nil {
		return fmt.Errorf("failed to resolve target annotation: %w", err)
	}

	documentID := source.DocumentID
	snap, err := e.store.LoadSnapshot(documentID)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	snap = UpsertRelationView(snap, RelationViewFromModel(rel, source, target))

	if err := e.store.SaveSnapshot(documentID, snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	e.afterSnapshotWrite(ctx, documentID, snap)
	return nil
}

// RemoveRelation drops a relation from the snapshot. A snapshot that never
// held the relation is left as-is and the call succeeds.
func (e *Engine) RemoveRelation(ctx context.Context, rel *models.AnnotationRelationship) error {
	source, err := e.store.GetAnnotation(rel.SourceID)
	if err != nil {
		return fmt.Errorf("failed to resolve source annotation: %w", err)
	}

	documentID := source.DocumentID
	snap, err := e.store.LoadSnapshot(documentID)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	snap = RemoveRelationView(snap, rel.ID)

	if err := e.store.SaveSnapshot(documentID, snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	e.afterSnapshotWrite(ctx, documentID, snap)
	return nil
}

// UpsertValidatedQA pushes one Q&A record into its document's snapshot.
// Global records without a bound document are skipped: fan-out of globals
// to every snapshot is deliberately not done, they are merged in at read
// time by the storage query instead.
func (e *Engine) UpsertValidatedQA(ctx context.Context, qa *models.ValidatedQA) error {
	if qa.DocumentID == "" {
		logger.Debug("Skipping snapshot upsert for unbound global QA", zap.String("qa_id", qa.ID))
		return nil
	}

	snap, err := e.store.LoadSnapshot(qa.DocumentID)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	snap = UpsertQAView(snap, QAViewFromModel(qa))

	if err := e.store.SaveSnapshot(qa.DocumentID, snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	e.afterSnapshotWrite(ctx, qa.DocumentID, snap)
	return nil
}

// RemoveValidatedQA drops one Q&A record from its document's snapshot.
func (e *Engine) RemoveValidatedQA(ctx context.Context, qa *models.ValidatedQA) error {
	if qa.DocumentID == "" {
		return nil
	}

	snap, err := e.store.LoadSnapshot(qa.DocumentID)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	snap = RemoveQAView(snap, qa.ID)

	if err := e.store.SaveSnapshot(qa.DocumentID, snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	e.afterSnapshotWrite(ctx, qa.DocumentID, snap)
	return nil
}

// GetSyncStatus compares the authoritative validated-relation count against
// the snapshot's. A mismatch means drift and the document needs a sync.
func (e *Engine) GetSyncStatus(documentID string) (*models.SyncStatus, error) {
	authoritative, err := e.store.CountValidatedRelationsByDocument(documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count validated relations: %w", err)
	}

	snap, err := e.store.LoadSnapshot(documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	return &models.SyncStatus{
		DocumentID:         documentID,
		NeedsSync:          authoritative != len(snap.Relations),
		AuthoritativeCount: authoritative,
		SnapshotCount:      len(snap.Relations),
		EntityCount:        EntityCount(snap),
		LastSynced:         snap.Metadata.LastSynced,
		SyncedBy:           snap.Metadata.SyncedBy,
	}, nil
}

func (e *Engine) buildRelationViews(documentID string) ([]models.RelationView, error) {
	relationships, err := e.store.GetRelationshipsByDocument(documentID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch validated relations: %w", err)
	}

	views := make([]models.RelationView, 0, len(relationships))
	for i := range relationships {
		rel := &relationships[i]

		source, err := e.store.GetAnnotation(rel.SourceID)
		if err != nil {
			logger.Warn("Skipping relation with missing source annotation",
				zap.String("relationship_id", rel.ID),
				zap.Error(err),
			)
			continue
		}
		target, err := e.store.GetAnnotation(rel.TargetID)
		if err != nil {
			logger.Warn("Skipping relation with missing target annotation",
				zap.String("relationship_id", rel.ID),
				zap.Error(err),
			)
			continue
		}

		views = append(views, RelationViewFromModel(rel, source, target))
	}

	return views, nil
}

func (e *Engine) buildQAViews(documentID string) ([]models.ValidatedQAView, error) {
	records, err := e.store.GetActiveQAForDocument(documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active QA: %w", err)
	}

	views := make([]models.ValidatedQAView, 0, len(records))
	for i := range records {
		views = append(views, QAViewFromModel(&records[i]))
	}

	return views, nil
}

// afterSnapshotWrite runs the best-effort side effects of a snapshot
// change. Neither the graph mirror nor the cache may fail the sync.
func (e *Engine) afterSnapshotWrite(ctx context.Context, documentID string, snap *models.Snapshot) {
	if e.cache != nil {
		if err := e.cache.InvalidateDocument(ctx, documentID); err != nil {
			logger.Warn("Answer cache invalidation failed",
				zap.String("doc_id", documentID),
				zap.Error(err),
			)
		}
	}

	if e.mirror != nil {
		if err := e.mirror.MirrorRelations(ctx, documentID, snap.Relations); err != nil {
			logger.Warn("Graph mirror update failed",
				zap.String("doc_id", documentID),
				zap.Error(err),
			)
		}
	}
}
