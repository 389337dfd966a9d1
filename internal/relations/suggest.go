package relations

import (
	"strings"

	"github.com/docuqa/backend/internal/qa"
)

// nameRule maps a (source-type, target-type) substring pair to a suggested
// relationship name. Matching is on normalized entity types.
type nameRule struct {
	sourceContains string
	targetContains string
	name           string
}

// The table is small and ordered; first match wins. The fallback for an
// unmatched pair is always related_to, leaving the final naming decision
// to the expert confirming the action.
var nameRules = []nameRule{
	{"product", "dosage", "has_dosage"},
	{"produit", "dosage", "has_dosage"},
	{"product", "substance", "contains"},
	{"produit", "substance", "contient"},
	{"substance", "dosage", "has_dosage"},
	{"product", "effect", "causes"},
	{"produit", "effet", "provoque"},
	{"substance", "effect", "causes"},
	{"substance", "effet", "provoque"},
	{"product", "indication", "indicated_for"},
	{"produit", "indication", "indique_pour"},
	{"document", "date", "dated"},
	{"person", "organization", "member_of"},
	{"personne", "organisation", "membre_de"},
}

const defaultRelationName = "related_to"

// SuggestName proposes a relationship name from the two endpoint entity
// types. It only ever suggests; callers confirm before anything is created.
func SuggestName(sourceType, targetType string) string {
	source := qa.Normalize(sourceType)
	target := qa.Normalize(targetType)

	for _, rule := range nameRules {
		if strings.Contains(source, rule.sourceContains) && strings.Contains(target, rule.targetContains) {
			return rule.name
		}
	}
	return defaultRelationName
}
