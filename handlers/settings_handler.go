package handlers

import (
	"github.com/gofiber/fiber/v2"

	"go_branch_chat/services"
)

type SettingsHandler struct {
	settings *services.SettingsService
}

func NewSettingsHandler(settings *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// GetSettings never returns the raw API key.
func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	s, err := h.settings.Get(c.UserContext(), c.Params("user_id"))
	if err != nil {
		return err
	}
	return c.JSON(s.Masked())
}

func (h *SettingsHandler) UpdateSettings(c *fiber.Ctx) error {
	var req services.SettingsOverride
	if err := parseBody(c, &req); err != nil {
		return err
	}
	s, err := h.settings.Update(c.UserContext(), c.Params("user_id"), &req)
	if err != nil {
		return err
	}
	return c.JSON(s.Masked())
}

func (h *SettingsHandler) DeleteSettings(c *fiber.Ctx) error {
	if err := h.settings.Delete(c.UserContext(), c.Params("user_id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
