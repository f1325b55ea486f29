package handlers

import (
	"github.com/gofiber/fiber/v2"

	"go_branch_chat/models"
	"go_branch_chat/services"
)

type ChatHandler struct {
	chat *services.ChatService
}

func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) AskQuestion(c *fiber.Ctx) error {
	var req models.AskReq
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.UserID == "" {
		req.UserID = c.Get("X-User-ID")
	}
	res, err := h.chat.Ask(c.UserContext(), c.Params("tree_id"), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}
