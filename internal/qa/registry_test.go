package qa

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuqa/backend/internal/storage/models"
	"github.com/docuqa/backend/internal/storage/sqlite"
	"github.com/docuqa/backend/internal/syncengine"
)

func newTestRegistry(t *testing.T) (*Registry, *sqlite.Client) {
	t.Helper()

	store, err := sqlite.NewClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.InitSchema())

	now := time.Now()
	require.NoError(t, store.InsertDocument(&models.Document{
		ID: "doc-1", Title: "Notice", Language: "fr", CreatedAt: now, UpdatedAt: now,
	}))

	return NewRegistry(store, syncengine.NewEngine(store, nil, nil)), store
}

func TestValidateCreatesRecord(t *testing.T) {
	registry, store := newTestRegistry(t)

	record, err := registry.Validate(context.Background(), ValidateRequest{
		Question:    "Quel est le dosage ?",
		Answer:      "5 mg",
		DocumentID:  "doc-1",
		ValidatedBy: "dr.martin",
	})
	require.NoError(t, err)

	assert.Equal(t, "quel est le dosage", record.QuestionNormalized)
	assert.Equal(t, 1.0, record.Confidence)
	assert.Equal(t, models.SourceExpertKnowledge, record.SourceType)
	assert.True(t, record.IsActive)
	assert.Empty(t, record.PreviousAnswers)

	// The validation lands in the snapshot immediately.
	snap, err := store.LoadSnapshot("doc-1")
	require.NoError(t, err)
	require.Len(t, snap.ValidatedQA, 1)
	assert.Equal(t, "5 mg", snap.ValidatedQA[0].Answer)
}

// Validating the same normalized question twice corrects the existing
// record instead of duplicating it.
func TestValidateSameQuestionCorrectsInPlace(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	first, err := registry.Validate(ctx, ValidateRequest{
		Question: "Quel est le dosage ?", Answer: "5 mg", DocumentID: "doc-1", ValidatedBy: "dr.martin",
	})
	require.NoError(t, err)

	second, err := registry.Validate(ctx, ValidateRequest{
		Question: "quel est le dosage", Answer: "10 mg", DocumentID: "doc-1", ValidatedBy: "dr.durand",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "10 mg", second.Answer)
	assert.Equal(t, []string{"5 mg"}, second.PreviousAnswers)
	assert.Equal(t, 1, second.CorrectionCount)

	records, err := registry.List("doc-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCorrectKeepsHistory(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	record, err := registry.Validate(ctx, ValidateRequest{
		Question: "Quel est le dosage ?", Answer: "X", DocumentID: "doc-1", ValidatedBy: "dr.martin",
	})
	require.NoError(t, err)

	corrected, err := registry.Correct(ctx, record.ID, "Y", "dr.martin")
	require.NoError(t, err)

	assert.Equal(t, "Y", corrected.Answer)
	assert.Equal(t, []string{"X"}, corrected.PreviousAnswers)
	assert.Equal(t, 1, corrected.CorrectionCount)
	assert.Equal(t, 1.0, corrected.Confidence, "a correction is expert-verified")
}

func TestCorrectSameAnswerDoesNotGrowHistory(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	record, err := registry.Validate(ctx, ValidateRequest{
		Question: "Quel est le dosage ?", Answer: "5 mg", DocumentID: "doc-1", ValidatedBy: "dr.martin",
	})
	require.NoError(t, err)

	corrected, err := registry.Correct(ctx, record.ID, "5 mg", "dr.martin")
	require.NoError(t, err)

	assert.Empty(t, corrected.PreviousAnswers)
	assert.Equal(t, 0, corrected.CorrectionCount)
}

func TestDeleteAuthorization(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	record, err := registry.Validate(ctx, ValidateRequest{
		Question: "Quel est le dosage ?", Answer: "5 mg", DocumentID: "doc-1", ValidatedBy: "dr.martin",
	})
	require.NoError(t, err)

	err = registry.Delete(ctx, record.ID, "intruder", false)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	require.NoError(t, registry.Delete(ctx, record.ID, "dr.martin", false))

	records, err := registry.List("doc-1")
	require.NoError(t, err)
	assert.Empty(t, records, "soft-deleted records are not listed")
}

func TestDeletePrivilegedActor(t *testing.T) {
	registry, _ := newTestRegistry(t)
	ctx := context.Background()

	record, err := registry.Validate(ctx, ValidateRequest{
		Question: "Quel est le dosage ?", Answer: "5 mg", DocumentID: "doc-1", ValidatedBy: "dr.martin",
	})
	require.NoError(t, err)

	assert.NoError(t, registry.Delete(ctx, record.ID, "admin", true))
}
