package evaluation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuqa/backend/internal/qa"
	"github.com/docuqa/backend/internal/storage/models"
	"github.com/docuqa/backend/internal/storage/sqlite"
	"github.com/docuqa/backend/internal/syncengine"
	"github.com/docuqa/backend/pkg/config"
)

func newTestEvaluator(t *testing.T) (*Evaluator, *sqlite.Client, *syncengine.Engine) {
	t.Helper()

	store, err := sqlite.NewClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.InitSchema())

	now := time.Now()
	require.NoError(t, store.InsertDocument(&models.Document{
		ID: "doc-1", Title: "Notice", Language: "fr", CreatedAt: now, UpdatedAt: now,
	}))

	resolver := qa.NewResolver(config.QAConfig{
		FuzzyThreshold:       0.7,
		StructuredConfidence: 0.8,
		RelationConfidence:   0.9,
		ListPreviewMax:       3,
	})
	return NewEvaluator(store, resolver), store, syncengine.NewEngine(store, nil, nil)
}

func seedQA(t *testing.T, store *sqlite.Client, id, question, answer string) {
	t.Helper()
	require.NoError(t, store.InsertValidatedQA(&models.ValidatedQA{
		ID:                 id,
		DocumentID:         "doc-1",
		Question:           question,
		QuestionNormalized: qa.Normalize(question),
		Answer:             answer,
		SourceType:         models.SourceExpertKnowledge,
		Confidence:         1.0,
		ValidatedBy:        "expert",
		ValidatedAt:        time.Now(),
		IsActive:           true,
	}))
}

func TestEvaluateSyncedDocument(t *testing.T) {
	evaluator, store, sync := newTestEvaluator(t)

	seedQA(t, store, "qa-1", "Quel est le dosage ?", "5 mg")
	seedQA(t, store, "qa-2", "Quelle est la posologie ?", "2 comprimés par jour")
	_, err := sync.SyncDocument(context.Background(), "doc-1", "expert")
	require.NoError(t, err)

	report, err := evaluator.EvaluateDocument("doc-1")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Matched)
	assert.Equal(t, 1.0, report.Accuracy)
	assert.Empty(t, report.Failures)
	assert.Equal(t, 2, report.BySource[string(qa.AnswerSourceExactQA)])
}

// A validated answer missing from the snapshot is exactly the drift this
// replay exists to surface.
func TestEvaluateDriftedDocument(t *testing.T) {
	evaluator, store, sync := newTestEvaluator(t)

	seedQA(t, store, "qa-1", "Quel est le dosage ?", "5 mg")
	_, err := sync.SyncDocument(context.Background(), "doc-1", "expert")
	require.NoError(t, err)

	seedQA(t, store, "qa-2", "Quelle est la posologie ?", "2 comprimés par jour")

	report, err := evaluator.EvaluateDocument("doc-1")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 0.5, report.Accuracy)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "qa-2", report.Failures[0].QAID)
	assert.Equal(t, qa.AnswerSourceNotFound, report.Failures[0].Source)
}

func TestEvaluateEmptyDocument(t *testing.T) {
	evaluator, _, _ := newTestEvaluator(t)

	report, err := evaluator.EvaluateDocument("doc-1")
	require.NoError(t, err)

	assert.Equal(t, 0, report.Total)
	assert.Equal(t, 0.0, report.Accuracy)
}
