package qa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "Hello World", "hello world"},
		{"strips diacritics", "Café", "cafe"},
		{"french accents", "Quelle est la dénomination?", "quelle est la denomination"},
		{"punctuation to space", "dose: 5mg (oral)", "dose 5mg oral"},
		{"collapses whitespace", "  a   b\t c  ", "a b c"},
		{"keeps underscores and digits", "has_dosage 5 mg", "has_dosage 5 mg"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Café au lait!",
		"Quel est le dosage du produit S 6490 ?",
		"What is the VALUE of field_x?",
		"déjà vu -- naïve façade",
	}

	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "normalize must be idempotent for %q", input)
	}
}

func TestKeywords(t *testing.T) {
	keywords := Keywords("Quel est le dosage du produit S 6490 ?")

	assert.Contains(t, keywords, "dosage")
	assert.Contains(t, keywords, "produit")
	assert.Contains(t, keywords, "6490")
	assert.NotContains(t, keywords, "est", "stopwords are excluded")
	assert.NotContains(t, keywords, "le", "short tokens are excluded")
}

func TestKeywordsEmpty(t *testing.T) {
	assert.Empty(t, Keywords(""))
	assert.Empty(t, Keywords("le la de du"))
}

func TestKeywordsDeduplicates(t *testing.T) {
	keywords := Keywords("dosage dosage dosage produit")
	assert.Equal(t, []string{"dosage", "produit"}, keywords)
}

func TestOverlapRatio(t *testing.T) {
	a := []string{"dosage", "produit", "6490"}
	b := []string{"dosage", "produit", "6490", "oral", "adulte"}

	assert.Equal(t, 1.0, OverlapRatio(a, b), "all of a covered by b")
	assert.InDelta(t, 0.6, OverlapRatio(b, a), 0.001, "asymmetric: only 3 of b's 5 covered")
	assert.Equal(t, 0.0, OverlapRatio(nil, b))
	assert.Equal(t, 0.0, OverlapRatio([]string{}, b))
}

func TestContainsEither(t *testing.T) {
	assert.True(t, ContainsEither("s 6490", "produit s 6490"))
	assert.True(t, ContainsEither("produit s 6490", "s 6490"))
	assert.False(t, ContainsEither("dosage", "substance"))
	assert.False(t, ContainsEither("", "anything"))
	assert.False(t, ContainsEither("anything", ""))
}
