package relations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggered(t *testing.T) {
	c := NewClassifier()

	assert.True(t, c.Triggered("Quelle est la relation entre X et Y ?"))
	assert.True(t, c.Triggered("delete the link between a and b"))
	assert.True(t, c.Triggered("create something"))

	assert.False(t, c.Triggered("Quel est le dosage du produit S 6490 ?"))
	assert.False(t, c.Triggered("bonjour"))
	// "relational" contains a trigger word but is not one: whole tokens only.
	assert.False(t, c.Triggered("relational databases are nice"))
}

func TestClassifyRelationIntents(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		question string
		intent   RelationIntent
		source   string
		target   string
	}{
		{"Crée une relation entre Product A et Dosage X", RelationIntentCreate, "product a", "dosage x"},
		{"create a relationship between product a and dosage x", RelationIntentCreate, "product a", "dosage x"},
		{"Modifier la relation entre Product A et Dosage X", RelationIntentModify, "product a", "dosage x"},
		{"rename the link between product a and dosage x", RelationIntentModify, "product a", "dosage x"},
		{"Supprime la relation entre Product A et Dosage X", RelationIntentDelete, "product a", "dosage x"},
		{"delete the relation between product a and dosage x", RelationIntentDelete, "product a", "dosage x"},
		{"Quelle est la relation entre Product A et Dosage X ?", RelationIntentQuery, "product a", "dosage x"},
		{"is product a related to dosage x", RelationIntentQuery, "product a", "dosage x"},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got, ok := c.Classify(tt.question)
			require.True(t, ok)
			assert.Equal(t, tt.intent, got.Intent)
			assert.Equal(t, tt.source, got.SourceText)
			assert.Equal(t, tt.target, got.TargetText)
		})
	}
}

// The create verb phrasing also matches the generic query pattern; order
// in the bank keeps the mutation intent.
func TestClassifyCreateBeatsQuery(t *testing.T) {
	c := NewClassifier()

	got, ok := c.Classify("create a relation between a and b")
	require.True(t, ok)
	assert.Equal(t, RelationIntentCreate, got.Intent)
}

func TestClassifyList(t *testing.T) {
	c := NewClassifier()

	got, ok := c.Classify("Liste les relations")
	require.True(t, ok)
	assert.Equal(t, RelationIntentList, got.Intent)
	assert.Empty(t, got.Filter)

	got, ok = c.Classify("list all relations of product a")
	require.True(t, ok)
	assert.Equal(t, RelationIntentList, got.Intent)
	assert.Equal(t, "product a", got.Filter)
}

// Trigger word present but no pattern match: the caller must fall back to
// the regular answer path.
func TestClassifyTriggeredButUnmatched(t *testing.T) {
	c := NewClassifier()

	question := "tell me about relations in general"
	assert.True(t, c.Triggered(question))

	_, ok := c.Classify(question)
	assert.False(t, ok)
}
