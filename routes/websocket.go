package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"go_branch_chat/handlers"
)

func SetupWebSocketRoutes(app *fiber.App, wsHandler *handlers.WSHandler) {
	ws := app.Group("/ws")
	ws.Use("/trees/:tree_id", wsHandler.WebSocketUpgrade)
	ws.Get("/trees/:tree_id", websocket.New(wsHandler.HandleTreeEvents))
}
