package handlers

import (
	"context"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"go_branch_chat/models"
	"go_branch_chat/pkg/logging"
	"go_branch_chat/platform/events"
)

type WSHandler struct {
	publisher events.Publisher
}

func NewWSHandler(publisher events.Publisher) *WSHandler {
	return &WSHandler{publisher: publisher}
}

func (h *WSHandler) WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.NewError(fiber.StatusUpgradeRequired, "not a websocket request")
}

// matches reports whether a client watching treeID wants event. "*" watches
// every tree, which the tree list view uses.
func matches(treeID string, event *models.TreeEvent) bool {
	return treeID == "*" || event.TreeID == treeID
}

// HandleTreeEvents streams events of one tree until the client goes away.
func (h *WSHandler) HandleTreeEvents(c *websocket.Conn) {
	treeID := c.Params("tree_id")
	log := logging.Component("ws").With("tree_id", treeID)
	log.Info("websocket connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// reads only detect the close; clients send nothing meaningful
	go func() {
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	eventChan, err := h.publisher.Subscribe(ctx)
	if err != nil {
		log.Error("subscribe failed", "error", err)
		_ = c.WriteJSON(fiber.Map{"type": "error", "error": "failed to subscribe"})
		return
	}
	if err := c.WriteJSON(fiber.Map{"type": "connected", "tree_id": treeID}); err != nil {
		return
	}

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if !matches(treeID, event) {
				continue
			}
			if err := c.WriteJSON(event); err != nil {
				log.Warn("websocket write failed", "error", err)
				return
			}
		case <-ctx.Done():
			log.Info("websocket closed")
			return
		}
	}
}
