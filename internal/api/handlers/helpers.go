package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/docuqa/backend/internal/qa"
	"github.com/docuqa/backend/internal/relations"
	"github.com/docuqa/backend/internal/storage/sqlite"
)

// actor reads the acting user from the X-Actor header, falling back to a
// body-provided value.
func actor(c *fiber.Ctx, fromBody string) string {
	if v := c.Get("X-Actor"); v != "" {
		return v
	}
	return fromBody
}

// fail maps domain errors onto HTTP statuses.
func fail(c *fiber.Ctx, err error) error {
	var conflict *relations.ConflictError
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &conflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":       err.Error(),
			"existing_id": conflict.ExistingID,
		})
	case errors.Is(err, qa.ErrNotAuthorized):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": message})
}
