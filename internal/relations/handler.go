package relations

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/docuqa/backend/internal/qa"
	"github.com/docuqa/backend/internal/storage/models"
	"github.com/docuqa/backend/pkg/logger"
)

// ActionType is the closed set of pending actions the handler can emit.
type ActionType string

const (
	ActionNotFound          ActionType = "not_found"
	ActionSelectAnnotations ActionType = "select_annotations"
	ActionConfirmCreate     ActionType = "confirm_create_relation"
	ActionSuggestCreate     ActionType = "suggest_create"
	ActionSelectRelation    ActionType = "select_relation"
	ActionConfirmModify     ActionType = "confirm_modify_relation"
	ActionConfirmDelete     ActionType = "confirm_delete_relation"
	ActionEmptyList         ActionType = "empty_list"
)

// AnnotationRef identifies one candidate annotation in a pending action.
type AnnotationRef struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Type string `json:"type"`
	Page int    `json:"page"`
}

// RelationRef identifies one existing relation in a pending action.
type RelationRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SourceText  string `json:"source_text"`
	TargetText  string `json:"target_text"`
	IsValidated bool   `json:"is_validated"`
}

// PendingAction is the handler's output for every mutating intent: a
// proposal the caller must confirm through the executor before anything is
// written.
type PendingAction struct {
	Type               ActionType      `json:"type"`
	DocumentID         string          `json:"document_id"`
	SourceAnnotationID string          `json:"source_annotation_id,omitempty"`
	TargetAnnotationID string          `json:"target_annotation_id,omitempty"`
	SuggestedName      string          `json:"suggested_name,omitempty"`
	CurrentName        string          `json:"current_name,omitempty"`
	CurrentDescription string          `json:"current_description,omitempty"`
	Candidates         []AnnotationRef `json:"candidates,omitempty"`
	Relations          []RelationRef   `json:"relations,omitempty"`
	Message            string          `json:"message"`
}

// Result is the handler outcome. Handled=false means the question should
// fall through to the regular answer path.
type Result struct {
	Answer  string         `json:"answer,omitempty"`
	Action  *PendingAction `json:"action,omitempty"`
	Handled bool           `json:"-"`
}

// Store is the read-only storage slice the handler needs.
type Store interface {
	GetAnnotationsByDocument(documentID string) ([]models.Annotation, error)
	GetAnnotation(id string) (*models.Annotation, error)
	GetRelationshipsBetween(aID, bID string) ([]models.AnnotationRelationship, error)
	GetRelationshipsByDocument(documentID string, validatedOnly bool) ([]models.AnnotationRelationship, error)
}

// Handler resolves relation-domain questions against a document's
// annotations. It never writes: every mutating intent ends in a confirm_*
// action so the actual write, and its authorization, stays with the caller.
type Handler struct {
	store      Store
	classifier *Classifier
	listMax    int
}

func NewHandler(store Store, listMax int) *Handler {
	if listMax <= 0 {
		listMax = 10
	}
	return &Handler{
		store:      store,
		classifier: NewClassifier(),
		listMax:    listMax,
	}
}

// Triggered exposes the trigger check for the QA engine's routing.
func (h *Handler) Triggered(question string) bool {
	return h.classifier.Triggered(question)
}

// Handle classifies and dispatches the question. A triggered question that
// matches no relation pattern returns Handled=false so the caller can fall
// back to the answer resolver.
func (h *Handler) Handle(question, documentID string) (Result, error) {
	classification, ok := h.classifier.Classify(question)
	if !ok {
		return Result{Handled: false}, nil
	}

	logger.Debug("Relation intent matched",
		zap.String("intent", string(classification.Intent)),
		zap.String("doc_id", documentID),
	)

	if classification.Intent == RelationIntentList {
		return h.handleList(documentID, classification.Filter)
	}

	sourceMatches, err := h.findAnnotationsByText(classification.SourceText, documentID)
	if err != nil {
		return Result{}, err
	}
	targetMatches, err := h.findAnnotationsByText(classification.TargetText, documentID)
	if err != nil {
		return Result{}, err
	}

	if action := h.resolveAmbiguity(documentID, classification, sourceMatches, targetMatches); action != nil {
		return Result{Action: action, Handled: true}, nil
	}

	source := &sourceMatches[0]
	target := &targetMatches[0]

	switch classification.Intent {
	case RelationIntentCreate:
		return h.handleCreate(documentID, source, target)
	case RelationIntentQuery:
		return h.handleQuery(documentID, source, target)
	case RelationIntentModify:
		return h.handleModify(documentID, source, target)
	case RelationIntentDelete:
		return h.handleDelete(documentID, source, target)
	default:
		return Result{Handled: false}, nil
	}
}

// findAnnotationsByText returns every annotation whose normalized value
// bidirectionally substring-matches the normalized query text.
func (h *Handler) findAnnotationsByText(text, documentID string) ([]models.Annotation, error) {
	annotations, err := h.store.GetAnnotationsByDocument(documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to search annotations: %w", err)
	}

	normalized := qa.Normalize(text)
	if normalized == "" {
		return nil, nil
	}

	var matches []models.Annotation
	for _, a := range annotations {
		if qa.ContainsEither(qa.Normalize(a.Value), normalized) {
			matches = append(matches, a)
		}
	}
	return matches, nil
}

// resolveAmbiguity returns the not_found / select_annotations action when
// either side has zero or several matches, nil when both sides are unique.
func (h *Handler) resolveAmbiguity(documentID string, classification Classification, sourceMatches, targetMatches []models.Annotation) *PendingAction {
	if len(sourceMatches) == 0 || len(targetMatches) == 0 {
		missing := classification.SourceText
		if len(sourceMatches) > 0 {
			missing = classification.TargetText
		}
		return &PendingAction{
			Type:       ActionNotFound,
			DocumentID: documentID,
			Message:    fmt.Sprintf("No annotation matches %q in this document. Create the annotation first, then retry.", missing),
		}
	}

	if len(sourceMatches) > 1 || len(targetMatches) > 1 {
		var candidates []AnnotationRef
		if len(sourceMatches) > 1 {
			candidates = append(candidates, annotationRefs(sourceMatches)...)
		}
		if len(targetMatches) > 1 {
			candidates = append(candidates, annotationRefs(targetMatches)...)
		}
		return &PendingAction{
			Type:       ActionSelectAnnotations,
			DocumentID: documentID,
			Candidates: candidates,
			Message:    "Several annotations match. Select the exact ones and retry with their ids.",
		}
	}

	return nil
}

func (h *Handler) handleCreate(documentID string, source, target *models.Annotation) (Result, error) {
	suggested := SuggestName(source.EntityType, target.EntityType)

	action := &PendingAction{
		Type:               ActionConfirmCreate,
		DocumentID:         documentID,
		SourceAnnotationID: source.ID,
		TargetAnnotationID: target.ID,
		SuggestedName:      suggested,
		Message: fmt.Sprintf("Confirm creating relation %q between %q and %q.",
			suggested, source.Value, target.Value),
	}
	return Result{Action: action, Handled: true}, nil
}

func (h *Handler) handleQuery(documentID string, source, target *models.Annotation) (Result, error) {
	existing, err := h.store.GetRelationshipsBetween(source.ID, target.ID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to query relations: %w", err)
	}

	if len(existing) == 0 {
		suggested := SuggestName(source.EntityType, target.EntityType)
		action := &PendingAction{
			Type:               ActionSuggestCreate,
			DocumentID:         documentID,
			SourceAnnotationID: source.ID,
			TargetAnnotationID: target.ID,
			SuggestedName:      suggested,
			Message: fmt.Sprintf("No relation exists between %q and %q. You could create one, for example %q.",
				source.Value, target.Value, suggested),
		}
		return Result{Action: action, Handled: true}, nil
	}

	var lines []string
	for i := range existing {
		rel := &existing[i]
		status := "not validated"
		if rel.IsValidated {
			status = "validated by " + rel.ValidatedBy
		}
		lines = append(lines, fmt.Sprintf("%s (%s)", rel.Name, status))
	}

	answer := fmt.Sprintf("Relations between %q and %q: %s",
		source.Value, target.Value, strings.Join(lines, "; "))
	return Result{Answer: answer, Handled: true}, nil
}

func (h *Handler) handleModify(documentID string, source, target *models.Annotation) (Result, error) {
	existing, err := h.store.GetRelationshipsBetween(source.ID, target.ID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to query relations: %w", err)
	}

	if len(existing) == 0 {
		action := &PendingAction{
			Type:       ActionNotFound,
			DocumentID: documentID,
			Message:    fmt.Sprintf("No relation exists between %q and %q.", source.Value, target.Value),
		}
		return Result{Action: action, Handled: true}, nil
	}

	if len(existing) > 1 {
		action := &PendingAction{
			Type:       ActionSelectRelation,
			DocumentID: documentID,
			Relations:  relationRefs(existing, source, target),
			Message:    "Several relations exist between these annotations. Select the one to modify.",
		}
		return Result{Action: action, Handled: true}, nil
	}

	rel := &existing[0]
	action := &PendingAction{
		Type:               ActionConfirmModify,
		DocumentID:         documentID,
		SourceAnnotationID: source.ID,
		TargetAnnotationID: target.ID,
		CurrentName:        rel.Name,
		CurrentDescription: rel.Description,
		Relations:          relationRefs(existing, source, target),
		Message:            fmt.Sprintf("Confirm modifying relation %q between %q and %q.", rel.Name, source.Value, target.Value),
	}
	return Result{Action: action, Handled: true}, nil
}

func (h *Handler) handleDelete(documentID string, source, target *models.Annotation) (Result, error) {
	existing, err := h.store.GetRelationshipsBetween(source.ID, target.ID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to query relations: %w", err)
	}

	if len(existing) == 0 {
		action := &PendingAction{
			Type:       ActionNotFound,
			DocumentID: documentID,
			Message:    fmt.Sprintf("No relation exists between %q and %q.", source.Value, target.Value),
		}
		return Result{Action: action, Handled: true}, nil
	}

	action := &PendingAction{
		Type:       ActionConfirmDelete,
		DocumentID: documentID,
		Relations:  relationRefs(existing, source, target),
		Message:    fmt.Sprintf("Confirm deleting %d relation(s) between %q and %q.", len(existing), source.Value, target.Value),
	}
	return Result{Action: action, Handled: true}, nil
}

func (h *Handler) handleList(documentID, filter string) (Result, error) {
	relationships, err := h.store.GetRelationshipsByDocument(documentID, false)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list relations: %w", err)
	}

	annotations, err := h.store.GetAnnotationsByDocument(documentID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load annotations: %w", err)
	}
	byID := make(map[string]*models.Annotation, len(annotations))
	for i := range annotations {
		byID[annotations[i].ID] = &annotations[i]
	}

	normalizedFilter := qa.Normalize(filter)

	var lines []string
	total := 0
	for i := range relationships {
		rel := &relationships[i]
		source := byID[rel.SourceID]
		target := byID[rel.TargetID]
		if source == nil || target == nil {
			continue
		}

		if normalizedFilter != "" &&
			!qa.ContainsEither(qa.Normalize(source.Value), normalizedFilter) &&
			!qa.ContainsEither(qa.Normalize(target.Value), normalizedFilter) {
			continue
		}

		total++
		if len(lines) < h.listMax {
			lines = append(lines, fmt.Sprintf("%s -[%s]-> %s", source.Value, rel.Name, target.Value))
		}
	}

	if total == 0 {
		action := &PendingAction{
			Type:       ActionEmptyList,
			DocumentID: documentID,
			Message:    "This document has no relations yet.",
		}
		return Result{Action: action, Handled: true}, nil
	}

	answer := strings.Join(lines, "\n")
	if total > len(lines) {
		answer += fmt.Sprintf("\nand %d more", total-len(lines))
	}
	return Result{Answer: answer, Handled: true}, nil
}

func annotationRefs(annotations []models.Annotation) []AnnotationRef {
	refs := make([]AnnotationRef, 0, len(annotations))
	for _, a := range annotations {
		refs = append(refs, AnnotationRef{ID: a.ID, Text: a.Value, Type: a.EntityType, Page: a.PageNumber})
	}
	return refs
}

func relationRefs(relationships []models.AnnotationRelationship, source, target *models.Annotation) []RelationRef {
	refs := make([]RelationRef, 0, len(relationships))
	for i := range relationships {
		rel := &relationships[i]
		refs = append(refs, RelationRef{
			ID:          rel.ID,
			Name:        rel.Name,
			Description: rel.Description,
			SourceText:  source.Value,
			TargetText:  target.Value,
			IsValidated: rel.IsValidated,
		})
	}
	return refs
}
