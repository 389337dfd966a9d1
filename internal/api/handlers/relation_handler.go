package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/docuqa/backend/internal/relations"
)

type RelationHandler struct {
	service  *relations.Service
	executor *relations.Executor
}

func NewRelationHandler(service *relations.Service, executor *relations.Executor) *RelationHandler {
	return &RelationHandler{service: service, executor: executor}
}

type createRelationRequest struct {
	SourceAnnotationID string `json:"source_annotation_id"`
	TargetAnnotationID string `json:"target_annotation_id"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	CreatedBy          string `json:"created_by"`
}

// Create handles POST /api/v1/relations. A duplicate (source, target,
// name) tuple returns 409 with the existing id.
func (h *RelationHandler) Create(c *fiber.Ctx) error {
	var req createRelationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}
	if req.SourceAnnotationID == "" || req.TargetAnnotationID == "" || req.Name == "" {
		return badRequest(c, "source_annotation_id, target_annotation_id and name are required")
	}

	rel, err := h.service.CreateFromSuggestion(c.UserContext(),
		req.SourceAnnotationID, req.TargetAnnotationID, req.Name, req.Description, actor(c, req.CreatedBy))
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(rel)
}

type updateRelationRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Update handles PUT /api/v1/relations/:id.
func (h *RelationHandler) Update(c *fiber.Ctx) error {
	var req updateRelationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}
	if req.Name == nil && req.Description == nil {
		return badRequest(c, "nothing to update")
	}

	rel, err := h.service.UpdateRelation(c.UserContext(), c.Params("id"), req.Name, req.Description)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(rel)
}

// Delete handles DELETE /api/v1/relations/:id.
func (h *RelationHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.DeleteRelation(c.UserContext(), c.Params("id")); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"status": "deleted"})
}

// Validate handles POST /api/v1/relations/:id/validate.
func (h *RelationHandler) Validate(c *fiber.Ctx) error {
	validatedBy := c.Get("X-Actor")
	if validatedBy == "" {
		return badRequest(c, "X-Actor header is required")
	}

	rel, err := h.service.ValidateRelation(c.UserContext(), c.Params("id"), validatedBy)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(rel)
}

// Confirm handles POST /api/v1/relations/confirm: executing a pending
// action a human approved.
func (h *RelationHandler) Confirm(c *fiber.Ctx) error {
	var req relations.ConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}
	req.Actor = actor(c, req.Actor)
	if req.Actor == "" {
		return badRequest(c, "actor is required")
	}

	result, err := h.executor.Execute(c.UserContext(), req)
	if err != nil {
		return fail(c, err)
	}

	status := fiber.StatusOK
	if result.Status == "created" {
		status = fiber.StatusCreated
	} else if result.Status == "conflict" {
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(result)
}
