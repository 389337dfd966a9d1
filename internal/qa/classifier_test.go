package qa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyAttributeOf(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		question  string
		attribute string
		entity    string
	}{
		{"Quel est le dosage du produit S 6490 ?", "dosage", "produit s 6490"},
		{"quelle est la composition de la substance X", "composition", "substance x"},
		{"What is the dosage of product S 6490?", "dosage", "product s 6490"},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got := c.Classify(tt.question)
			assert.Equal(t, IntentAttributeOf, got.Intent)
			assert.Equal(t, tt.attribute, got.Attribute)
			assert.Equal(t, tt.entity, got.Entity)
		})
	}
}

// "quelle est la valeur de X" looks like attribute_of with attribute
// "valeur"; the extractor must decline so the value_of pattern wins.
func TestClassifyValueOfBeatsAttributeOf(t *testing.T) {
	c := NewClassifier()

	got := c.Classify("Quelle est la valeur de la posologie ?")
	assert.Equal(t, IntentValueOf, got.Intent)
	assert.Equal(t, "posologie", got.Entity)

	got = c.Classify("what is the value of expiry_date")
	assert.Equal(t, IntentValueOf, got.Intent)
	assert.Equal(t, "expiry_date", got.Entity)
}

func TestClassifyWhatIs(t *testing.T) {
	c := NewClassifier()

	got := c.Classify("Qu'est-ce que la pharmacovigilance ?")
	assert.Equal(t, IntentWhatIs, got.Intent)
	assert.Equal(t, "la pharmacovigilance", got.Entity)

	got = c.Classify("what is paracetamol")
	assert.Equal(t, IntentWhatIs, got.Intent)
	assert.Equal(t, "paracetamol", got.Entity)
}

func TestClassifyRelation(t *testing.T) {
	c := NewClassifier()

	got := c.Classify("Quelle est la relation entre le produit X et la substance Y ?")
	assert.Equal(t, IntentRelation, got.Intent)
	assert.Equal(t, "le produit x", got.Entity)
	assert.Equal(t, "la substance y", got.Target)

	got = c.Classify("is product X related to substance Y")
	assert.Equal(t, IntentRelation, got.Intent)
	assert.Equal(t, "product x", got.Entity)
	assert.Equal(t, "substance y", got.Target)
}

func TestClassifyList(t *testing.T) {
	c := NewClassifier()

	got := c.Classify("Liste les effets secondaires")
	assert.Equal(t, IntentList, got.Intent)
	assert.Equal(t, "effets secondaires", got.Entity)

	got = c.Classify("show me all the side effects")
	assert.Equal(t, IntentList, got.Intent)
	assert.Equal(t, "side effects", got.Entity)

	got = c.Classify("quels sont tous les dosages")
	assert.Equal(t, IntentList, got.Intent)
	assert.Equal(t, "dosages", got.Entity)
}

func TestClassifyUnknown(t *testing.T) {
	c := NewClassifier()

	got := c.Classify("bonjour")
	assert.Equal(t, IntentUnknown, got.Intent)
	assert.Empty(t, got.Entity)
	assert.Empty(t, got.Attribute)
}
