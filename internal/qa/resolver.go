package qa

import (
	"fmt"
	"sort"
	"strings"

	"github.com/docuqa/backend/internal/storage/models"
	"github.com/docuqa/backend/pkg/config"
)

// AnswerSource is the closed set of origins an answer can have.
type AnswerSource string

const (
	AnswerSourceExactQA    AnswerSource = "validated_qa"
	AnswerSourceFuzzyQA    AnswerSource = "validated_qa_fuzzy"
	AnswerSourceField      AnswerSource = "json_field"
	AnswerSourceEntity     AnswerSource = "json_entity"
	AnswerSourceRelation   AnswerSource = "json_relation"
	AnswerSourceAttribute  AnswerSource = "relation_json"
	AnswerSourceNotFound   AnswerSource = "not_found"
	AnswerSourceAIEnriched AnswerSource = "ai_enriched"
)

// NotFoundAnswer is returned when every lookup tier comes up empty. It is
// never a bare empty string: the caller must see that expert input is needed.
const NotFoundAnswer = "No validated answer is available for this question yet; an expert needs to validate one."

// AnswerResult is the outcome of one resolution. NeedsValidation is false
// only for expert-approved sources (tiers 1-2); structurally derived answers
// carry true and must not be presented as authoritative.
type AnswerResult struct {
	Answer          string       `json:"answer"`
	Source          AnswerSource `json:"source"`
	Confidence      float64      `json:"confidence"`
	JSONPath        string       `json:"json_path,omitempty"`
	JSONData        interface{}  `json:"json_data,omitempty"`
	NeedsValidation bool         `json:"needs_validation"`
	QAID            string       `json:"qa_id,omitempty"`
}

// Resolver answers a classified question from a document snapshot alone.
// It performs no storage or network I/O: tiers are tried in order and the
// first hit wins, terminating in an explicit not-found result.
type Resolver struct {
	fuzzyThreshold       float64
	structuredConfidence float64
	relationConfidence   float64
	listPreviewMax       int
}

func NewResolver(cfg config.QAConfig) *Resolver {
	return &Resolver{
		fuzzyThreshold:       cfg.FuzzyThreshold,
		structuredConfidence: cfg.StructuredConfidence,
		relationConfidence:   cfg.RelationConfidence,
		listPreviewMax:       cfg.ListPreviewMax,
	}
}

func (r *Resolver) Resolve(question string, classification Classification, snap *models.Snapshot) AnswerResult {
	normalized := Normalize(question)

	// Tier 1: exact validated-Q&A match.
	if result, ok := r.exactQAMatch(normalized, snap); ok {
		return result
	}

	// Tier 2: fuzzy validated-Q&A match, first record over the threshold in
	// stored order (not best-of).
	if result, ok := r.fuzzyQAMatch(normalized, snap); ok {
		return result
	}

	// Tier 3: structured field/entity search.
	switch classification.Intent {
	case IntentValueOf, IntentEntityValue, IntentWhatIs, IntentList:
		if result, ok := r.structuredSearch(classification.Entity, snap); ok {
			return result
		}
	}

	// Tier 4: relation search.
	if classification.Intent == IntentRelation {
		if result, ok := r.relationSearch(classification.Entity, classification.Target, snap); ok {
			return result
		}
	}

	// Tier 5: attribute via relation.
	if classification.Intent == IntentAttributeOf {
		if result, ok := r.attributeViaRelation(classification.Attribute, classification.Entity, snap); ok {
			return result
		}
	}

	// Tier 6: explicit not found.
	return AnswerResult{
		Answer:          NotFoundAnswer,
		Source:          AnswerSourceNotFound,
		Confidence:      0.0,
		NeedsValidation: true,
	}
}

func (r *Resolver) exactQAMatch(normalized string, snap *models.Snapshot) (AnswerResult, bool) {
	for _, qa := range snap.ValidatedQA {
		if qa.QuestionNormalized == normalized {
			return AnswerResult{
				Answer:          qa.Answer,
				Source:          AnswerSourceExactQA,
				Confidence:      qa.Confidence,
				JSONPath:        qa.JSONPath,
				NeedsValidation: false,
				QAID:            qa.ID,
			}, true
		}
	}
	return AnswerResult{}, false
}

func (r *Resolver) fuzzyQAMatch(normalized string, snap *models.Snapshot) (AnswerResult, bool) {
	queryKeywords := Keywords(normalized)
	if len(queryKeywords) == 0 {
		return AnswerResult{}, false
	}

	for _, qa := range snap.ValidatedQA {
		ratio := OverlapRatio(queryKeywords, Keywords(qa.QuestionNormalized))
		if ratio >= r.fuzzyThreshold {
			return AnswerResult{
				Answer:          qa.Answer,
				Source:          AnswerSourceFuzzyQA,
				Confidence:      qa.Confidence * ratio,
				JSONPath:        qa.JSONPath,
				NeedsValidation: false,
				QAID:            qa.ID,
			}, true
		}
	}
	return AnswerResult{}, false
}

// structuredSearch looks the field up in the document tree first, then in
// the entity map. Keys match on bidirectional substring of normalized text.
func (r *Resolver) structuredSearch(field string, snap *models.Snapshot) (AnswerResult, bool) {
	normalizedField := Normalize(field)
	if normalizedField == "" {
		return AnswerResult{}, false
	}

	if snap.Document != nil {
		root := NodeFromValue(snap.Document)
		if match, ok := FindField(root, normalizedField, "document"); ok {
			answer, data := r.renderNode(match.Value)
			return AnswerResult{
				Answer:          answer,
				Source:          AnswerSourceField,
				Confidence:      r.structuredConfidence,
				JSONPath:        match.Path,
				JSONData:        data,
				NeedsValidation: true,
			}, true
		}
	}

	entityTypes := make([]string, 0, len(snap.Entities))
	for entityType := range snap.Entities {
		entityTypes = append(entityTypes, entityType)
	}
	sort.Strings(entityTypes)

	for _, entityType := range entityTypes {
		if !ContainsEither(Normalize(entityType), normalizedField) {
			continue
		}
		values := snap.Entities[entityType]
		if len(values) == 0 {
			continue
		}
		return AnswerResult{
			Answer:          r.listPreview(values),
			Source:          AnswerSourceEntity,
			Confidence:      r.structuredConfidence,
			JSONPath:        "entities." + entityType,
			JSONData:        values,
			NeedsValidation: true,
		}, true
	}

	return AnswerResult{}, false
}

func (r *Resolver) relationSearch(entityA, entityB string, snap *models.Snapshot) (AnswerResult, bool) {
	normA := Normalize(entityA)
	normB := Normalize(entityB)
	if normA == "" || normB == "" {
		return AnswerResult{}, false
	}

	for i := range snap.Relations {
		rel := &snap.Relations[i]
		source := Normalize(rel.Source.Value)
		target := Normalize(rel.Target.Value)

		forward := ContainsEither(source, normA) && ContainsEither(target, normB)
		backward := ContainsEither(source, normB) && ContainsEither(target, normA)
		if !forward && !backward {
			continue
		}

		answer := rel.Description
		if answer == "" {
			answer = fmt.Sprintf("%s %s %s", rel.Source.Value, rel.Name, rel.Target.Value)
		}

		return AnswerResult{
			Answer:          answer,
			Source:          AnswerSourceRelation,
			Confidence:      r.relationConfidence,
			JSONData:        rel,
			NeedsValidation: true,
		}, true
	}

	return AnswerResult{}, false
}

// attributeViaRelation collects every relation whose source matches the
// entity and whose target type or relation name matches the attribute. The
// first value is the answer; extras go in a parenthetical.
func (r *Resolver) attributeViaRelation(attribute, entity string, snap *models.Snapshot) (AnswerResult, bool) {
	normAttr := Normalize(attribute)
	normEntity := Normalize(entity)
	if normAttr == "" || normEntity == "" {
		return AnswerResult{}, false
	}

	var values []string
	var matched []models.RelationView
	for _, rel := range snap.Relations {
		if !ContainsEither(Normalize(rel.Source.Value), normEntity) {
			continue
		}
		typeMatch := ContainsEither(Normalize(rel.Target.Type), normAttr)
		nameMatch := ContainsEither(Normalize(rel.Name), normAttr)
		if !typeMatch && !nameMatch {
			continue
		}
		values = append(values, rel.Target.Value)
		matched = append(matched, rel)
	}

	if len(values) == 0 {
		return AnswerResult{}, false
	}

	answer := fmt.Sprintf("The %s of %s is: %s", attribute, entity, values[0])
	if len(values) > 1 {
		answer += fmt.Sprintf(" (also: %s)", strings.Join(values[1:], ", "))
	}

	return AnswerResult{
		Answer:          answer,
		Source:          AnswerSourceAttribute,
		Confidence:      r.relationConfidence,
		JSONData:        matched,
		NeedsValidation: true,
	}, true
}

func (r *Resolver) renderNode(node TreeNode) (string, interface{}) {
	switch node.Kind {
	case ListNode:
		return r.listPreview(node.List), node.List
	default:
		return node.Scalar, node.Scalar
	}
}

// listPreview joins up to listPreviewMax values and appends an "and N more"
// suffix when truncated.
func (r *Resolver) listPreview(values []string) string {
	max := r.listPreviewMax
	if max <= 0 {
		max = 3
	}
	if len(values) <= max {
		return strings.Join(values, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(values[:max], ", "), len(values)-max)
}
