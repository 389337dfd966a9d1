package relations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuqa/backend/internal/storage/models"
	"github.com/docuqa/backend/internal/storage/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Client {
	t.Helper()

	store, err := sqlite.NewClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.InitSchema())

	now := time.Now()
	require.NoError(t, store.InsertDocument(&models.Document{
		ID: "doc-1", Title: "Notice", Language: "fr", CreatedAt: now, UpdatedAt: now,
	}))
	return store
}

func seedAnnotation(t *testing.T, store *sqlite.Client, id, entityType, value string, page int) {
	t.Helper()
	require.NoError(t, store.InsertAnnotation(&models.Annotation{
		ID:         id,
		DocumentID: "doc-1",
		PageNumber: page,
		EntityType: entityType,
		Value:      value,
		CreatedAt:  time.Now(),
	}))
}

func TestHandleCreateProposesRelation(t *testing.T) {
	store := newTestStore(t)
	seedAnnotation(t, store, "ann-p", "Product", "Product A", 1)
	seedAnnotation(t, store, "ann-d", "Dosage", "Dosage X", 1)

	result, err := NewHandler(store, 10).Handle("Crée une relation entre Product A et Dosage X", "doc-1")
	require.NoError(t, err)
	require.True(t, result.Handled)
	require.NotNil(t, result.Action)

	assert.Equal(t, ActionConfirmCreate, result.Action.Type)
	assert.Equal(t, "ann-p", result.Action.SourceAnnotationID)
	assert.Equal(t, "ann-d", result.Action.TargetAnnotationID)
	assert.Equal(t, "has_dosage", result.Action.SuggestedName)

	// Nothing is written until the action is confirmed.
	rels, err := store.GetRelationshipsByDocument("doc-1", false)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

// Two annotations carry the same text on different pages: the handler must
// ask which one, never guess.
func TestHandleAmbiguousAnnotations(t *testing.T) {
	store := newTestStore(t)
	seedAnnotation(t, store, "ann-p1", "Product", "Product A", 1)
	seedAnnotation(t, store, "ann-p2", "Product", "Product A", 2)
	seedAnnotation(t, store, "ann-d", "Dosage", "Dosage X", 1)

	result, err := NewHandler(store, 10).Handle("Crée une relation entre Product A et Dosage X", "doc-1")
	require.NoError(t, err)
	require.True(t, result.Handled)
	require.NotNil(t, result.Action)

	assert.Equal(t, ActionSelectAnnotations, result.Action.Type)
	require.Len(t, result.Action.Candidates, 2)
	assert.Equal(t, "ann-p1", result.Action.Candidates[0].ID)
	assert.Equal(t, "ann-p2", result.Action.Candidates[1].ID)
	assert.Equal(t, 2, result.Action.Candidates[1].Page)

	rels, err := store.GetRelationshipsByDocument("doc-1", false)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestHandleUnknownAnnotation(t *testing.T) {
	store := newTestStore(t)
	seedAnnotation(t, store, "ann-p", "Product", "Product A", 1)

	result, err := NewHandler(store, 10).Handle("Crée une relation entre Product A et Dosage X", "doc-1")
	require.NoError(t, err)
	require.NotNil(t, result.Action)

	assert.Equal(t, ActionNotFound, result.Action.Type)
	assert.Contains(t, result.Action.Message, "Create the annotation first")
}

func TestHandleQueryNoRelationSuggestsCreate(t *testing.T) {
	store := newTestStore(t)
	seedAnnotation(t, store, "ann-p", "Product", "Product A", 1)
	seedAnnotation(t, store, "ann-d", "Dosage", "Dosage X", 1)

	result, err := NewHandler(store, 10).Handle("Quelle est la relation entre Product A et Dosage X ?", "doc-1")
	require.NoError(t, err)
	require.NotNil(t, result.Action)

	assert.Equal(t, ActionSuggestCreate, result.Action.Type)
	assert.Equal(t, "has_dosage", result.Action.SuggestedName)
}

func TestHandleQueryExistingRelation(t *testing.T) {
	store := newTestStore(t)
	seedAnnotation(t, store, "ann-p", "Product", "Product A", 1)
	seedAnnotation(t, store, "ann-d", "Dosage", "Dosage X", 1)

	validatedAt := time.Now()
	require.NoError(t, store.InsertRelationship(&models.AnnotationRelationship{
		ID: "rel-1", SourceID: "ann-p", TargetID: "ann-d", Name: "has_dosage",
		IsValidated: true, ValidatedBy: "expert", ValidatedAt: &validatedAt, CreatedAt: time.Now(),
	}))

	result, err := NewHandler(store, 10).Handle("Quelle est la relation entre Product A et Dosage X ?", "doc-1")
	require.NoError(t, err)
	require.True(t, result.Handled)
	assert.Nil(t, result.Action)

	assert.Contains(t, result.Answer, "has_dosage")
	assert.Contains(t, result.Answer, "validated by expert")
}

func TestHandleModifySingleRelation(t *testing.T) {
	store := newTestStore(t)
	seedAnnotation(t, store, "ann-p", "Product", "Product A", 1)
	seedAnnotation(t, store, "ann-d", "Dosage", "Dosage X", 1)
	require.NoError(t, store.InsertRelationship(&models.AnnotationRelationship{
		ID: "rel-1", SourceID: "ann-p", TargetID: "ann-d", Name: "has_dosage",
		Description: "notice page 3", CreatedAt: time.Now(),
	}))

	result, err := NewHandler(store, 10).Handle("Modifier la relation entre Product A et Dosage X", "doc-1")
	require.NoError(t, err)
	require.NotNil(t, result.Action)

	assert.Equal(t, ActionConfirmModify, result.Action.Type)
	assert.Equal(t, "has_dosage", result.Action.CurrentName)
	assert.Equal(t, "notice page 3", result.Action.CurrentDescription)
}

func TestHandleModifySeveralRelations(t *testing.T) {
	store := newTestStore(t)
	seedAnnotation(t, store, "ann-p", "Product", "Product A", 1)
	seedAnnotation(t, store, "ann-d", "Dosage", "Dosage X", 1)
	require.NoError(t, store.InsertRelationship(&models.AnnotationRelationship{
		ID: "rel-1", SourceID: "ann-p", TargetID: "ann-d", Name: "has_dosage", CreatedAt: time.Now(),
	}))
	require.NoError(t, store.InsertRelationship(&models.AnnotationRelationship{
		ID: "rel-2", SourceID: "ann-p", TargetID: "ann-d", Name: "contains", CreatedAt: time.Now(),
	}))

	result, err := NewHandler(store, 10).Handle("Modifier la relation entre Product A et Dosage X", "doc-1")
	require.NoError(t, err)
	require.NotNil(t, result.Action)

	assert.Equal(t, ActionSelectRelation, result.Action.Type)
	assert.Len(t, result.Action.Relations, 2)
}

func TestHandleDeleteConfirms(t *testing.T) {
	store := newTestStore(t)
	seedAnnotation(t, store, "ann-p", "Product", "Product A", 1)
	seedAnnotation(t, store, "ann-d", "Dosage", "Dosage X", 1)
	require.NoError(t, store.InsertRelationship(&models.AnnotationRelationship{
		ID: "rel-1", SourceID: "ann-p", TargetID: "ann-d", Name: "has_dosage", CreatedAt: time.Now(),
	}))

	result, err := NewHandler(store, 10).Handle("Supprime la relation entre Product A et Dosage X", "doc-1")
	require.NoError(t, err)
	require.NotNil(t, result.Action)

	assert.Equal(t, ActionConfirmDelete, result.Action.Type)
	require.Len(t, result.Action.Relations, 1)
	assert.Equal(t, "rel-1", result.Action.Relations[0].ID)

	// Still there: delete happens in the executor, after confirmation.
	_, err = store.GetRelationship("rel-1")
	assert.NoError(t, err)
}

func TestHandleListEmpty(t *testing.T) {
	store := newTestStore(t)

	result, err := NewHandler(store, 10).Handle("Liste les relations", "doc-1")
	require.NoError(t, err)
	require.NotNil(t, result.Action)

	assert.Equal(t, ActionEmptyList, result.Action.Type)
}

func TestHandleListWithFilterAndCap(t *testing.T) {
	store := newTestStore(t)
	seedAnnotation(t, store, "ann-p", "Product", "Product A", 1)
	seedAnnotation(t, store, "ann-d1", "Dosage", "5 mg", 1)
	seedAnnotation(t, store, "ann-d2", "Dosage", "10 mg", 1)
	seedAnnotation(t, store, "ann-x", "Substance", "Caffeine", 2)
	require.NoError(t, store.InsertRelationship(&models.AnnotationRelationship{
		ID: "rel-1", SourceID: "ann-p", TargetID: "ann-d1", Name: "has_dosage", CreatedAt: time.Now(),
	}))
	require.NoError(t, store.InsertRelationship(&models.AnnotationRelationship{
		ID: "rel-2", SourceID: "ann-p", TargetID: "ann-d2", Name: "has_dosage", CreatedAt: time.Now(),
	}))
	require.NoError(t, store.InsertRelationship(&models.AnnotationRelationship{
		ID: "rel-3", SourceID: "ann-x", TargetID: "ann-d1", Name: "related_to", CreatedAt: time.Now(),
	}))

	handler := NewHandler(store, 1)

	result, err := handler.Handle("list all relations of product a", "doc-1")
	require.NoError(t, err)
	require.True(t, result.Handled)
	assert.Nil(t, result.Action)
	assert.Contains(t, result.Answer, "Product A -[has_dosage]->")
	assert.Contains(t, result.Answer, "and 1 more")
	assert.NotContains(t, result.Answer, "Caffeine")
}

// A question with a trigger word but no relation pattern falls through so
// the answer resolver can take it.
func TestHandleFallsThrough(t *testing.T) {
	store := newTestStore(t)

	result, err := NewHandler(store, 10).Handle("tell me about relations in general", "doc-1")
	require.NoError(t, err)
	assert.False(t, result.Handled)
}
