package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/docuqa/backend/internal/ingestion"
)

type DocumentHandler struct {
	processor *ingestion.Processor
}

func NewDocumentHandler(processor *ingestion.Processor) *DocumentHandler {
	return &DocumentHandler{processor: processor}
}

type importRequest struct {
	Title    string `json:"title"`
	HTML     string `json:"html"`
	Language string `json:"language"`
}

// Import handles POST /api/v1/documents.
func (h *DocumentHandler) Import(c *fiber.Ctx) error {
	var req importRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}
	if req.Title == "" || req.HTML == "" {
		return badRequest(c, "title and html are required")
	}
	if req.Language == "" {
		req.Language = "fr"
	}

	result, err := h.processor.ImportHTML(req.Title, req.HTML, req.Language, actor(c, "importer"))
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}
