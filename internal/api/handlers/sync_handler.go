package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/docuqa/backend/internal/evaluation"
	"github.com/docuqa/backend/internal/metrics"
	"github.com/docuqa/backend/internal/syncengine"
)

type SyncHandler struct {
	engine    *syncengine.Engine
	evaluator *evaluation.Evaluator
}

func NewSyncHandler(engine *syncengine.Engine, evaluator *evaluation.Evaluator) *SyncHandler {
	return &SyncHandler{engine: engine, evaluator: evaluator}
}

// Sync handles POST /api/v1/sync/:document_id: full rebuild of relations
// and validated Q&A in the document snapshot.
func (h *SyncHandler) Sync(c *fiber.Ctx) error {
	documentID := c.Params("document_id")
	syncedBy := c.Get("X-Actor")
	if syncedBy == "" {
		syncedBy = "system"
	}

	stats, err := h.engine.SyncDocument(c.UserContext(), documentID, syncedBy)
	if err != nil {
		metrics.SyncOperations.WithLabelValues("rebuild", "error").Inc()
		return fail(c, err)
	}

	metrics.SyncOperations.WithLabelValues("rebuild", "ok").Inc()
	return c.JSON(stats)
}

// Status handles GET /api/v1/sync/:document_id/status.
func (h *SyncHandler) Status(c *fiber.Ctx) error {
	status, err := h.engine.GetSyncStatus(c.Params("document_id"))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(status)
}

// Evaluate handles POST /api/v1/evaluate/:document_id: replays every
// validated question through the resolver and reports accuracy.
func (h *SyncHandler) Evaluate(c *fiber.Ctx) error {
	report, err := h.evaluator.EvaluateDocument(c.Params("document_id"))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(report)
}
