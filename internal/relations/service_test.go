package relations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuqa/backend/internal/storage/models"
	"github.com/docuqa/backend/internal/storage/sqlite"
	"github.com/docuqa/backend/internal/syncengine"
)

func newTestService(t *testing.T) (*Service, *sqlite.Client) {
	t.Helper()

	store := newTestStore(t)
	seedAnnotation(t, store, "ann-p", "Product", "Product A", 1)
	seedAnnotation(t, store, "ann-d", "Dosage", "Dosage X", 1)

	return NewService(store, syncengine.NewEngine(store, nil, nil)), store
}

func TestCreateFromSuggestion(t *testing.T) {
	service, store := newTestService(t)

	rel, err := service.CreateFromSuggestion(context.Background(), "ann-p", "ann-d", "has_dosage", "", "dr.martin")
	require.NoError(t, err)

	assert.NotEmpty(t, rel.ID)
	assert.Equal(t, "has_dosage", rel.Name)
	assert.Equal(t, "dr.martin", rel.CreatedBy)
	assert.False(t, rel.IsValidated)

	// Unvalidated relations stay out of the snapshot.
	snap, err := store.LoadSnapshot("doc-1")
	require.NoError(t, err)
	assert.Empty(t, snap.Relations)
}

func TestCreateDuplicateTupleConflicts(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	first, err := service.CreateFromSuggestion(ctx, "ann-p", "ann-d", "has_dosage", "", "dr.martin")
	require.NoError(t, err)

	_, err = service.CreateFromSuggestion(ctx, "ann-p", "ann-d", "has_dosage", "", "dr.durand")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.ID, conflict.ExistingID)

	rels, err := store.GetRelationshipsByDocument("doc-1", false)
	require.NoError(t, err)
	assert.Len(t, rels, 1, "conflict must not create a second record")

	// Same endpoints under another name is a different relation.
	_, err = service.CreateFromSuggestion(ctx, "ann-p", "ann-d", "contains", "", "dr.durand")
	assert.NoError(t, err)
}

func TestCreateAcrossDocumentsRejected(t *testing.T) {
	service, store := newTestService(t)

	now := time.Now()
	require.NoError(t, store.InsertDocument(&models.Document{
		ID: "doc-2", Title: "Other", Language: "fr", CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, store.InsertAnnotation(&models.Annotation{
		ID: "ann-other", DocumentID: "doc-2", PageNumber: 1, EntityType: "Product", Value: "Product B", CreatedAt: now,
	}))

	_, err := service.CreateFromSuggestion(context.Background(), "ann-p", "ann-other", "related_to", "", "dr.martin")
	assert.Error(t, err)
}

func TestValidateRelationEntersSnapshot(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	rel, err := service.CreateFromSuggestion(ctx, "ann-p", "ann-d", "has_dosage", "", "dr.martin")
	require.NoError(t, err)

	validated, err := service.ValidateRelation(ctx, rel.ID, "expert")
	require.NoError(t, err)
	assert.True(t, validated.IsValidated)
	assert.Equal(t, "expert", validated.ValidatedBy)

	snap, err := store.LoadSnapshot("doc-1")
	require.NoError(t, err)
	require.Len(t, snap.Relations, 1)
	assert.Equal(t, rel.ID, snap.Relations[0].ID)
	assert.Equal(t, "Product A", snap.Relations[0].Source.Value)
}

func TestUpdateValidatedRelationRefreshesSnapshot(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	rel, err := service.CreateFromSuggestion(ctx, "ann-p", "ann-d", "has_dosage", "", "dr.martin")
	require.NoError(t, err)
	_, err = service.ValidateRelation(ctx, rel.ID, "expert")
	require.NoError(t, err)

	name := "dosed_at"
	updated, err := service.UpdateRelation(ctx, rel.ID, &name, nil)
	require.NoError(t, err)
	assert.Equal(t, "dosed_at", updated.Name)

	snap, err := store.LoadSnapshot("doc-1")
	require.NoError(t, err)
	require.Len(t, snap.Relations, 1)
	assert.Equal(t, "dosed_at", snap.Relations[0].Name)
}

func TestDeleteRelationRemovesSnapshotView(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	rel, err := service.CreateFromSuggestion(ctx, "ann-p", "ann-d", "has_dosage", "", "dr.martin")
	require.NoError(t, err)
	_, err = service.ValidateRelation(ctx, rel.ID, "expert")
	require.NoError(t, err)

	require.NoError(t, service.DeleteRelation(ctx, rel.ID))

	_, err = store.GetRelationship(rel.ID)
	assert.True(t, errors.Is(err, sqlite.ErrNotFound))

	snap, err := store.LoadSnapshot("doc-1")
	require.NoError(t, err)
	assert.Empty(t, snap.Relations)
}

func TestExecutorCreateAndConflict(t *testing.T) {
	service, _ := newTestService(t)
	executor := NewExecutor(service)
	ctx := context.Background()

	result, err := executor.Execute(ctx, ConfirmRequest{
		Action:             ActionConfirmCreate,
		SourceAnnotationID: "ann-p",
		TargetAnnotationID: "ann-d",
		Actor:              "dr.martin",
	})
	require.NoError(t, err)
	assert.Equal(t, "created", result.Status)
	require.NotNil(t, result.Relation)
	assert.Equal(t, defaultRelationName, result.Relation.Name, "empty name falls back to the default")

	// Confirming the same action again is a conflict result, not an error.
	result, err = executor.Execute(ctx, ConfirmRequest{
		Action:             ActionConfirmCreate,
		SourceAnnotationID: "ann-p",
		TargetAnnotationID: "ann-d",
		Actor:              "dr.martin",
	})
	require.NoError(t, err)
	assert.Equal(t, "conflict", result.Status)
	assert.Nil(t, result.Relation)
}

func TestExecutorRejectsUnknownAction(t *testing.T) {
	service, _ := newTestService(t)

	_, err := NewExecutor(service).Execute(context.Background(), ConfirmRequest{Action: ActionNotFound})
	assert.Error(t, err)
}

func TestExecutorModifyRequiresChange(t *testing.T) {
	service, _ := newTestService(t)

	_, err := NewExecutor(service).Execute(context.Background(), ConfirmRequest{
		Action:     ActionConfirmModify,
		RelationID: "rel-1",
	})
	assert.Error(t, err)
}
