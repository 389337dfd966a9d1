package syncengine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuqa/backend/internal/storage/models"
	"github.com/docuqa/backend/internal/storage/sqlite"
)

func newTestEngine(t *testing.T) (*Engine, *sqlite.Client) {
	t.Helper()

	store, err := sqlite.NewClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.InitSchema())

	return NewEngine(store, nil, nil), store
}

func seedDocument(t *testing.T, store *sqlite.Client) (docID, sourceID, targetID string) {
	t.Helper()

	now := time.Now()
	docID = "doc-1"
	require.NoError(t, store.InsertDocument(&models.Document{
		ID: docID, Title: "Notice S 6490", Language: "fr", CreatedAt: now, UpdatedAt: now,
	}))

	sourceID, targetID = "ann-product", "ann-dosage"
	require.NoError(t, store.InsertAnnotation(&models.Annotation{
		ID: sourceID, DocumentID: docID, PageNumber: 1, EntityType: "Product", Value: "S 6490", CreatedAt: now,
	}))
	require.NoError(t, store.InsertAnnotation(&models.Annotation{
		ID: targetID, DocumentID: docID, PageNumber: 1, EntityType: "Dosage", Value: "5 mg", CreatedAt: now,
	}))
	return docID, sourceID, targetID
}

func seedValidatedRelation(t *testing.T, store *sqlite.Client, id, sourceID, targetID string) *models.AnnotationRelationship {
	t.Helper()

	validatedAt := time.Now()
	rel := &models.AnnotationRelationship{
		ID:          id,
		SourceID:    sourceID,
		TargetID:    targetID,
		Name:        "has_dosage",
		IsValidated: true,
		ValidatedBy: "expert",
		ValidatedAt: &validatedAt,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, store.InsertRelationship(rel))
	return rel
}

// Mutating the authoritative store without syncing must surface as drift;
// a rebuild or upsert clears it.
func TestDriftDetection(t *testing.T) {
	engine, store := newTestEngine(t)
	docID, sourceID, targetID := seedDocument(t, store)

	status, err := engine.GetSyncStatus(docID)
	require.NoError(t, err)
	assert.False(t, status.NeedsSync, "empty store and empty snapshot agree")

	seedValidatedRelation(t, store, "rel-1", sourceID, targetID)

	status, err = engine.GetSyncStatus(docID)
	require.NoError(t, err)
	assert.True(t, status.NeedsSync)
	assert.Equal(t, 1, status.AuthoritativeCount)
	assert.Equal(t, 0, status.SnapshotCount)

	stats, err := engine.SyncDocument(context.Background(), docID, "expert")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalRelations)

	status, err = engine.GetSyncStatus(docID)
	require.NoError(t, err)
	assert.False(t, status.NeedsSync)
	assert.Equal(t, "expert", status.SyncedBy)
}

func TestUpsertRelationClearsDrift(t *testing.T) {
	engine, store := newTestEngine(t)
	docID, sourceID, targetID := seedDocument(t, store)

	rel := seedValidatedRelation(t, store, "rel-1", sourceID, targetID)
	require.NoError(t, engine.UpsertRelation(context.Background(), rel))

	status, err := engine.GetSyncStatus(docID)
	require.NoError(t, err)
	assert.False(t, status.NeedsSync)

	snap, err := store.LoadSnapshot(docID)
	require.NoError(t, err)
	require.Len(t, snap.Relations, 1)
	assert.Equal(t, "S 6490", snap.Relations[0].Source.Value)
	assert.Equal(t, "5 mg", snap.Relations[0].Target.Value)
	assert.Equal(t, "expert", snap.Relations[0].ValidatedBy)
}

func TestRemoveRelationFromSnapshot(t *testing.T) {
	engine, store := newTestEngine(t)
	_, sourceID, targetID := seedDocument(t, store)

	rel := seedValidatedRelation(t, store, "rel-1", sourceID, targetID)
	ctx := context.Background()
	require.NoError(t, engine.UpsertRelation(ctx, rel))

	require.NoError(t, engine.RemoveRelation(ctx, rel))

	snap, err := store.LoadSnapshot("doc-1")
	require.NoError(t, err)
	assert.Empty(t, snap.Relations)
	assert.Equal(t, 0, snap.Metadata.TotalRelations)

	// Removing again is still a success.
	require.NoError(t, engine.RemoveRelation(ctx, rel))
}

func TestSyncDocumentIncludesValidatedQA(t *testing.T) {
	engine, store := newTestEngine(t)
	docID, _, _ := seedDocument(t, store)

	require.NoError(t, store.InsertValidatedQA(&models.ValidatedQA{
		ID:                 "qa-1",
		DocumentID:         docID,
		Question:           "Quel est le dosage ?",
		QuestionNormalized: "quel est le dosage",
		Answer:             "5 mg",
		SourceType:         models.SourceExpertKnowledge,
		Confidence:         1.0,
		ValidatedBy:        "expert",
		ValidatedAt:        time.Now(),
		IsActive:           true,
	}))

	stats, err := engine.SyncDocument(context.Background(), docID, "expert")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalQA)

	snap, err := store.LoadSnapshot(docID)
	require.NoError(t, err)
	require.Len(t, snap.ValidatedQA, 1)
	assert.Equal(t, "5 mg", snap.ValidatedQA[0].Answer)
}

// A global Q&A with no bound document is skipped: nothing to upsert into.
func TestUpsertGlobalQAIsNoOp(t *testing.T) {
	engine, _ := newTestEngine(t)

	err := engine.UpsertValidatedQA(context.Background(), &models.ValidatedQA{
		ID:       "qa-global",
		IsGlobal: true,
	})
	assert.NoError(t, err)
}

func TestSyncUnknownDocumentFails(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.SyncDocument(context.Background(), "doc-missing", "expert")
	assert.Error(t, err)
}
