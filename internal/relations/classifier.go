package relations

import (
	"regexp"
	"strings"

	"github.com/docuqa/backend/internal/qa"
)

// RelationIntent is the action a relation-domain question asks for.
type RelationIntent string

const (
	RelationIntentCreate RelationIntent = "create"
	RelationIntentModify RelationIntent = "modify"
	RelationIntentDelete RelationIntent = "delete"
	RelationIntentList   RelationIntent = "list"
	RelationIntentQuery  RelationIntent = "query"
)

// Classification carries the matched relation intent and its slots. Filter
// is only set for list.
type Classification struct {
	Intent     RelationIntent
	SourceText string
	TargetText string
	Filter     string
}

// triggerWords route a question into the relation handler at all. Checked
// as whole tokens against the normalized question.
var triggerWords = map[string]struct{}{
	"relation": {}, "relations": {}, "relationship": {}, "relationships": {},
	"lien": {}, "liens": {}, "link": {}, "links": {}, "linked": {},
	"between": {}, "entre": {}, "relie": {}, "reliee": {},
	"create": {}, "creer": {}, "cree": {},
	"modify": {}, "modifier": {}, "modifie": {}, "rename": {}, "renommer": {},
	"delete": {}, "supprimer": {}, "supprime": {}, "remove": {},
}

type relationPattern struct {
	re     *regexp.Regexp
	intent RelationIntent
}

// create/modify/delete come before query: their verb phrasing is a strict
// prefix superset of the query pattern and would be swallowed by it.
var relationPatterns = []relationPattern{
	{regexp.MustCompile(`^cree(?:r)?(?: moi)? (?:une? )?(?:relation|lien) entre (.+) et (.+)$`), RelationIntentCreate},
	{regexp.MustCompile(`^(?:create|add) (?:a )?(?:relation(?:ship)?|link) between (.+) and (.+)$`), RelationIntentCreate},
	{regexp.MustCompile(`^(?:modifie(?:r)?|renomme(?:r)?) (?:la |le )?(?:relation|lien) entre (.+) et (.+)$`), RelationIntentModify},
	{regexp.MustCompile(`^(?:modify|change|rename) (?:the )?(?:relation(?:ship)?|link) between (.+) and (.+)$`), RelationIntentModify},
	{regexp.MustCompile(`^supprime(?:r)? (?:la |le )?(?:relation|lien) entre (.+) et (.+)$`), RelationIntentDelete},
	{regexp.MustCompile(`^(?:delete|remove) (?:the )?(?:relation(?:ship)?|link) between (.+) and (.+)$`), RelationIntentDelete},
	{regexp.MustCompile(`^(?:liste(?:r|z)?|affiche(?:r|z)?|montre(?:r|z)?)(?: moi)? (?:les |toutes les )?relations?(?: (?:du|de la|de l |des|de|d) (.+))?$`), RelationIntentList},
	{regexp.MustCompile(`^(?:list|show|display)(?: me)? (?:all |the )?relation(?:ship)?s?(?: (?:of|for|with) (.+))?$`), RelationIntentList},
	{regexp.MustCompile(`^(?:.* )?(?:relation(?:ship)?|lien)s? (?:entre|between) (.+) (?:et|and) (.+)$`), RelationIntentQuery},
	{regexp.MustCompile(`^(?:is |are )?(.+?) (?:linked|related|connected) to (.+)$`), RelationIntentQuery},
	{regexp.MustCompile(`^(.+?) (?:est (?:il |elle )?)?(?:liee? a|reliee? a) (.+)$`), RelationIntentQuery},
}

// Classifier recognizes relation-domain questions.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// Triggered reports whether the question belongs to the relation domain at
// all. A triggered question that then matches no pattern must fall back to
// the regular answer path, never be dropped.
func (c *Classifier) Triggered(question string) bool {
	for _, token := range strings.Fields(qa.Normalize(question)) {
		if _, ok := triggerWords[token]; ok {
			return true
		}
	}
	return false
}

// Classify runs the ordered relation patterns. ok is false when nothing
// matched.
func (c *Classifier) Classify(question string) (Classification, bool) {
	normalized := qa.Normalize(question)

	for _, p := range relationPatterns {
		groups := p.re.FindStringSubmatch(normalized)
		if groups == nil {
			continue
		}

		if p.intent == RelationIntentList {
			filter := ""
			if len(groups) > 1 {
				filter = strings.TrimSpace(groups[1])
			}
			return Classification{Intent: RelationIntentList, Filter: filter}, true
		}

		source := strings.TrimSpace(groups[1])
		target := strings.TrimSpace(groups[2])
		if source == "" || target == "" {
			continue
		}
		return Classification{Intent: p.intent, SourceText: source, TargetText: target}, true
	}

	return Classification{}, false
}
