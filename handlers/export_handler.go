package handlers

import (
	"github.com/gofiber/fiber/v2"

	"go_branch_chat/models"
	"go_branch_chat/pkg/snapshot"
	"go_branch_chat/services"
)

type ExportHandler struct {
	exports *services.ExportService
}

func NewExportHandler(exports *services.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

func (h *ExportHandler) ExportTree(c *fiber.Ctx) error {
	res, err := h.exports.ExportTree(c.UserContext(), c.Params("tree_id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *ExportHandler) ImportTree(c *fiber.Ctx) error {
	var req models.ImportReq
	if err := parseBody(c, &req); err != nil {
		return err
	}
	t, err := h.exports.ImportTree(c.UserContext(), req.FileKey)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(snapshot.ToSnapshot(t))
}

func (h *ExportHandler) Backup(c *fiber.Ctx) error {
	res, err := h.exports.Backup(c.UserContext(), c.Query("current_tree_id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *ExportHandler) Restore(c *fiber.Ctx) error {
	var req models.ImportReq
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.exports.Restore(c.UserContext(), req.FileKey)
	if err != nil {
		return err
	}
	return c.JSON(res)
}
