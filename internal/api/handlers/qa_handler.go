package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/docuqa/backend/internal/metrics"
	"github.com/docuqa/backend/internal/qa"
	"github.com/docuqa/backend/internal/storage/models"
)

// FeedbackStore persists thumbs-up/down on answered questions.
type FeedbackStore interface {
	StoreFeedback(feedback *models.AnswerFeedback) error
}

type QAHandler struct {
	registry *qa.Registry
	feedback FeedbackStore
}

func NewQAHandler(registry *qa.Registry, feedback FeedbackStore) *QAHandler {
	return &QAHandler{registry: registry, feedback: feedback}
}

type validateRequest struct {
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	DocumentID  string   `json:"document_id"`
	ValidatedBy string   `json:"validated_by"`
	SourceType  string   `json:"source_type"`
	JSONPath    string   `json:"json_path"`
	Tags        []string `json:"tags"`
	IsGlobal    bool     `json:"is_global"`
}

// Validate handles POST /api/v1/qa/validate.
func (h *QAHandler) Validate(c *fiber.Ctx) error {
	var req validateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}
	if req.Question == "" || req.Answer == "" {
		return badRequest(c, "question and answer are required")
	}

	validatedBy := actor(c, req.ValidatedBy)
	if validatedBy == "" {
		return badRequest(c, "validated_by is required")
	}

	record, err := h.registry.Validate(c.UserContext(), qa.ValidateRequest{
		Question:    req.Question,
		Answer:      req.Answer,
		DocumentID:  req.DocumentID,
		ValidatedBy: validatedBy,
		SourceType:  models.SourceType(req.SourceType),
		JSONPath:    req.JSONPath,
		Tags:        req.Tags,
		IsGlobal:    req.IsGlobal,
	})
	if err != nil {
		return fail(c, err)
	}

	metrics.ValidatedAnswers.Inc()
	return c.Status(fiber.StatusCreated).JSON(record)
}

type correctRequest struct {
	Answer      string `json:"answer"`
	CorrectedBy string `json:"corrected_by"`
}

// Correct handles POST /api/v1/qa/:id/correct.
func (h *QAHandler) Correct(c *fiber.Ctx) error {
	var req correctRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}
	if req.Answer == "" {
		return badRequest(c, "answer is required")
	}

	correctedBy := actor(c, req.CorrectedBy)
	if correctedBy == "" {
		return badRequest(c, "corrected_by is required")
	}

	record, err := h.registry.Correct(c.UserContext(), c.Params("id"), req.Answer, correctedBy)
	if err != nil {
		return fail(c, err)
	}

	metrics.AnswerCorrections.Inc()
	return c.JSON(record)
}

// List handles GET /api/v1/qa?document_id=....
func (h *QAHandler) List(c *fiber.Ctx) error {
	documentID := c.Query("document_id")
	if documentID == "" {
		return badRequest(c, "document_id is required")
	}

	records, err := h.registry.List(documentID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"document_id":  documentID,
		"validated_qa": records,
	})
}

// Delete handles DELETE /api/v1/qa/:id. Only the original validator or a
// caller flagged privileged may delete.
func (h *QAHandler) Delete(c *fiber.Ctx) error {
	deletedBy := c.Get("X-Actor")
	if deletedBy == "" {
		return badRequest(c, "X-Actor header is required")
	}
	privileged := c.Get("X-Privileged") == "true"

	if err := h.registry.Delete(c.UserContext(), c.Params("id"), deletedBy, privileged); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"status": "deleted"})
}

type feedbackRequest struct {
	QuestionID string `json:"question_id"`
	Helpful    bool   `json:"helpful"`
	Comment    string `json:"comment"`
}

// Feedback handles POST /api/v1/feedback.
func (h *QAHandler) Feedback(c *fiber.Ctx) error {
	var req feedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}
	if req.QuestionID == "" {
		return badRequest(c, "question_id is required")
	}

	err := h.feedback.StoreFeedback(&models.AnswerFeedback{
		QuestionID: req.QuestionID,
		Helpful:    req.Helpful,
		Comment:    req.Comment,
	})
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "recorded"})
}
