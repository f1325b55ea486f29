package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"go_branch_chat/pkg/logging"
	"go_branch_chat/pkg/snapshot"
	"go_branch_chat/pkg/tree"
	"go_branch_chat/platform/storage"
	"go_branch_chat/repository"
	"go_branch_chat/services"
)

// statusOf maps domain errors onto HTTP statuses.
func statusOf(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, repository.ErrTreeNotFound),
		errors.Is(err, tree.ErrNodeNotFound),
		errors.Is(err, tree.ErrBranchNotFound),
		errors.Is(err, storage.ErrObjectNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, tree.ErrInvalidName),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrMissingUserID),
		errors.Is(err, services.ErrMissingAPIKey):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrCorruptSnapshot),
		errors.Is(err, snapshot.ErrDanglingReference),
		errors.Is(err, snapshot.ErrMalformedDate),
		errors.Is(err, tree.ErrInvariant):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrStaleContext):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrCompletionFailed):
		return fiber.StatusBadGateway
	case errors.Is(err, services.ErrStorageDisabled):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders every error as {"error": msg}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := statusOf(err)
	msg := err.Error()
	if code == fiber.StatusInternalServerError {
		logging.Logger.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
		msg = "internal server error"
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
