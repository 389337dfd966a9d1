package relations

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/docuqa/backend/internal/storage/models"
	"github.com/docuqa/backend/pkg/logger"
)

// ConfirmRequest is a pending action the caller approved, sent back for
// execution. The handler proposed it; only here does a write happen.
type ConfirmRequest struct {
	Action             ActionType `json:"action"`
	SourceAnnotationID string     `json:"source_annotation_id,omitempty"`
	TargetAnnotationID string     `json:"target_annotation_id,omitempty"`
	Name               string     `json:"name,omitempty"`
	Description        string     `json:"description,omitempty"`
	RelationID         string     `json:"relation_id,omitempty"`
	Actor              string     `json:"actor"`
}

// ConfirmResult reports what the executor did.
type ConfirmResult struct {
	Status   string                         `json:"status"`
	Relation *models.AnnotationRelationship `json:"relation,omitempty"`
	Message  string                         `json:"message"`
}

// Executor turns confirmed pending actions into store mutations through
// the relation service.
type Executor struct {
	service *Service
}

func NewExecutor(service *Service) *Executor {
	return &Executor{service: service}
}

// Execute dispatches one confirmed action. Unknown action types are
// rejected; a duplicate create comes back as a conflict result instead of
// an error so the caller can link to the existing relation.
func (e *Executor) Execute(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	logger.Info("Executing confirmed relation action",
		zap.String("action", string(req.Action)),
		zap.String("actor", req.Actor),
	)

	switch req.Action {
	case ActionConfirmCreate, ActionSuggestCreate:
		return e.executeCreate(ctx, req)
	case ActionConfirmModify:
		return e.executeModify(ctx, req)
	case ActionConfirmDelete:
		return e.executeDelete(ctx, req)
	default:
		return nil, fmt.Errorf("action %q is not executable", req.Action)
	}
}

func (e *Executor) executeCreate(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	if req.SourceAnnotationID == "" || req.TargetAnnotationID == "" {
		return nil, errors.New("source and target annotation ids are required")
	}

	name := req.Name
	if name == "" {
		name = defaultRelationName
	}

	rel, err := e.service.CreateFromSuggestion(ctx,
		req.SourceAnnotationID, req.TargetAnnotationID, name, req.Description, req.Actor)

	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return &ConfirmResult{
			Status:  "conflict",
			Message: fmt.Sprintf("A relation %q already exists between these annotations (id %s).", name, conflict.ExistingID),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return &ConfirmResult{
		Status:   "created",
		Relation: rel,
		Message:  fmt.Sprintf("Relation %q created.", rel.Name),
	}, nil
}

func (e *Executor) executeModify(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	if req.RelationID == "" {
		return nil, errors.New("relation id is required")
	}

	var name, description *string
	if req.Name != "" {
		name = &req.Name
	}
	if req.Description != "" {
		description = &req.Description
	}
	if name == nil && description == nil {
		return nil, errors.New("nothing to modify")
	}

	rel, err := e.service.UpdateRelation(ctx, req.RelationID, name, description)
	if err != nil {
		return nil, err
	}

	return &ConfirmResult{
		Status:   "modified",
		Relation: rel,
		Message:  fmt.Sprintf("Relation updated to %q.", rel.Name),
	}, nil
}

func (e *Executor) executeDelete(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	if req.RelationID == "" {
		return nil, errors.New("relation id is required")
	}

	if err := e.service.DeleteRelation(ctx, req.RelationID); err != nil {
		return nil, err
	}

	return &ConfirmResult{
		Status:  "deleted",
		Message: "Relation deleted.",
	}, nil
}
