package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/docuqa/backend/internal/query"
	"github.com/docuqa/backend/pkg/logger"
)

type AskHandler struct {
	engine *query.Engine
}

func NewAskHandler(engine *query.Engine) *AskHandler {
	return &AskHandler{engine: engine}
}

type askRequest struct {
	Question   string `json:"question"`
	DocumentID string `json:"document_id"`
	UserID     string `json:"user_id"`
}

// Ask handles POST /api/v1/ask.
func (h *AskHandler) Ask(c *fiber.Ctx) error {
	var req askRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}
	if req.Question == "" {
		return badRequest(c, "question is required")
	}
	if req.DocumentID == "" {
		return badRequest(c, "document_id is required")
	}

	response, err := h.engine.Ask(c.UserContext(), req.Question, req.DocumentID, actor(c, req.UserID))
	if err != nil {
		logger.Error("Ask failed",
			zap.String("doc_id", req.DocumentID),
			zap.Error(err),
		)
		return fail(c, err)
	}

	return c.JSON(response)
}

// History handles GET /api/v1/questions?document_id=...&limit=....
func (h *AskHandler) History(c *fiber.Ctx) error {
	documentID := c.Query("document_id")
	if documentID == "" {
		return badRequest(c, "document_id is required")
	}

	records, err := h.engine.History(documentID, c.QueryInt("limit", 50))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"document_id": documentID,
		"questions":   records,
	})
}
