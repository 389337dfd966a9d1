package qa

import (
	"regexp"
	"strings"
)

// Intent is the question category the resolver dispatches on.
type Intent string

const (
	IntentAttributeOf Intent = "attribute_of"
	IntentValueOf     Intent = "value_of"
	IntentWhatIs      Intent = "what_is"
	IntentEntityValue Intent = "entity_value"
	IntentRelation    Intent = "relation"
	IntentList        Intent = "list"
	IntentUnknown     Intent = "unknown"
)

// Classification carries the matched intent and its extracted slots.
type Classification struct {
	Intent    Intent
	Attribute string
	Entity    string
	Target    string
}

// pattern couples a compiled regex with the intent it signals and a slot
// extractor. The extractor may decline the match (ok=false) to let a later,
// laxer pattern take the question instead.
type pattern struct {
	re      *regexp.Regexp
	intent  Intent
	extract func(groups []string) (Classification, bool)
}

// Patterns are evaluated strictly in declaration order; first accepted match
// wins. attribute_of sits before value_of and what_is because its phrasing
// would otherwise be swallowed by those laxer patterns. Do not reorder and
// do not convert to a map.
var questionPatterns = []pattern{
	// attribute_of: "quel est le dosage du produit X" / "what is the dosage of product X"
	{
		re:      regexp.MustCompile(`^quel(?:le)?s? (?:est|sont) (?:le |la |les |l )?([\p{L}\p{N}_]+) (?:du |de la |de l |des |de |d )(.+)$`),
		intent:  IntentAttributeOf,
		extract: extractAttributeOf,
	},
	{
		re:      regexp.MustCompile(`^what (?:is|are) the ([\p{L}\p{N}_]+) (?:of|for) (?:the )?(.+)$`),
		intent:  IntentAttributeOf,
		extract: extractAttributeOf,
	},
	// value_of: "quelle est la valeur de X" / "value of X"
	{
		re:      regexp.MustCompile(`^(?:quelle est )?la valeur (?:du |de la |de l |des |de |d )(.+)$`),
		intent:  IntentValueOf,
		extract: extractEntity(IntentValueOf),
	},
	{
		re:      regexp.MustCompile(`^(?:what is )?(?:the )?value of (?:the )?(.+)$`),
		intent:  IntentValueOf,
		extract: extractEntity(IntentValueOf),
	},
	// what_is: "qu est ce que X" / "c est quoi X" / "what is X"
	{
		re:      regexp.MustCompile(`^(?:qu est ce qu(?:e )?|c est quoi )(.+)$`),
		intent:  IntentWhatIs,
		extract: extractEntity(IntentWhatIs),
	},
	{
		re:      regexp.MustCompile(`^quel(?:le)?s? (?:est|sont) (?:le |la |les |l )?(.+)$`),
		intent:  IntentWhatIs,
		extract: extractWhatIs,
	},
	{
		re:      regexp.MustCompile(`^what (?:is|are) (?:the |a |an )?(.+)$`),
		intent:  IntentWhatIs,
		extract: extractWhatIs,
	},
	// entity_value: "donne moi le dosage" / "give me the dosage"
	{
		re:      regexp.MustCompile(`^(?:donne(?:z)? moi |give me )(?:le |la |les |l |the )?(.+)$`),
		intent:  IntentEntityValue,
		extract: extractEntity(IntentEntityValue),
	},
	// relation: "relation entre X et Y" / "relation between X and Y" / "X lie a Y"
	{
		re:      regexp.MustCompile(`^(?:.* )?relations? entre (.+) et (.+)$`),
		intent:  IntentRelation,
		extract: extractPair,
	},
	{
		re:      regexp.MustCompile(`^(?:.* )?relation(?:ship)?s? between (.+) and (.+)$`),
		intent:  IntentRelation,
		extract: extractPair,
	},
	{
		re:      regexp.MustCompile(`^(.+?) (?:est (?:il |elle )?)?(?:liee? a|reliee? a) (.+)$`),
		intent:  IntentRelation,
		extract: extractPair,
	},
	{
		re:      regexp.MustCompile(`^(?:is |are )?(.+?) (?:linked|related|connected) to (.+)$`),
		intent:  IntentRelation,
		extract: extractPair,
	},
	// list: "liste les X" / "quels sont tous les X" / "list all X"
	{
		re:      regexp.MustCompile(`^(?:liste(?:r|z)? |affiche(?:r|z)? |montre(?:r|z)? )(?:moi )?(?:tou(?:te)?s )?(?:les |la |le )?(.+)$`),
		intent:  IntentList,
		extract: extractEntity(IntentList),
	},
	{
		re:      regexp.MustCompile(`^(?:list|show|display) (?:me )?(?:all )?(?:the )?(.+)$`),
		intent:  IntentList,
		extract: extractEntity(IntentList),
	},
	{
		re:      regexp.MustCompile(`^(?:what are|quel(?:le)?s sont) (?:all |tou(?:te)?s )(?:the |les )?(.+)$`),
		intent:  IntentList,
		extract: extractEntity(IntentList),
	},
}

// extractAttributeOf declines when the "attribute" slot is the literal word
// value/valeur, so the dedicated value_of pattern below gets the question.
func extractAttributeOf(groups []string) (Classification, bool) {
	attribute := strings.TrimSpace(groups[1])
	entity := strings.TrimSpace(groups[2])

	if attribute == "valeur" || attribute == "value" {
		return Classification{}, false
	}
	if attribute == "" || entity == "" {
		return Classification{}, false
	}

	return Classification{Intent: IntentAttributeOf, Attribute: attribute, Entity: entity}, true
}

// extractWhatIs declines relation- and list-shaped phrasings so the later
// dedicated patterns can claim them.
func extractWhatIs(groups []string) (Classification, bool) {
	entity := strings.TrimSpace(groups[1])
	if entity == "" {
		return Classification{}, false
	}
	if strings.Contains(entity, " entre ") || strings.Contains(entity, " between ") {
		return Classification{}, false
	}
	if strings.HasPrefix(entity, "all ") || strings.HasPrefix(entity, "tous ") || strings.HasPrefix(entity, "toutes ") {
		return Classification{}, false
	}
	return Classification{Intent: IntentWhatIs, Entity: entity}, true
}

func extractEntity(intent Intent) func(groups []string) (Classification, bool) {
	return func(groups []string) (Classification, bool) {
		entity := strings.TrimSpace(groups[1])
		if entity == "" {
			return Classification{}, false
		}
		return Classification{Intent: intent, Entity: entity}, true
	}
}

func extractPair(groups []string) (Classification, bool) {
	source := strings.TrimSpace(groups[1])
	target := strings.TrimSpace(groups[2])
	if source == "" || target == "" {
		return Classification{}, false
	}
	return Classification{Intent: IntentRelation, Entity: source, Target: target}, true
}

// Classifier maps a question to an intent plus slots via the ordered
// pattern bank above.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify normalizes the question and runs the pattern chain. Unmatched
// questions come back as unknown with no slots.
func (c *Classifier) Classify(question string) Classification {
	normalized := Normalize(question)

	for _, p := range questionPatterns {
		groups := p.re.FindStringSubmatch(normalized)
		if groups == nil {
			continue
		}
		if classification, ok := p.extract(groups); ok {
			return classification
		}
	}

	return Classification{Intent: IntentUnknown}
}
