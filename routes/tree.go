package routes

import (
	"github.com/gofiber/fiber/v2"

	"go_branch_chat/handlers"
)

func RegisterTreeRoutes(app *fiber.App, treeHandler *handlers.TreeHandler, chatHandler *handlers.ChatHandler) {
	trees := app.Group("/api/trees")
	trees.Get("/", treeHandler.ListTrees)
	trees.Post("/", treeHandler.CreateTree)
	trees.Get("/:tree_id", treeHandler.GetTree)
	trees.Patch("/:tree_id", treeHandler.RenameTree)
	trees.Delete("/:tree_id", treeHandler.DeleteTree)

	trees.Post("/:tree_id/messages", treeHandler.AppendExchange)
	trees.Post("/:tree_id/questions", chatHandler.AskQuestion)
	trees.Get("/:tree_id/path", treeHandler.GetPath)
	trees.Get("/:tree_id/layout", treeHandler.GetLayout)
	trees.Get("/:tree_id/stats", treeHandler.GetStats)

	trees.Post("/:tree_id/branches", treeHandler.CreateBranch)
	trees.Post("/:tree_id/branches/:branch_id/select", treeHandler.SelectBranch)
	trees.Post("/:tree_id/branches/:branch_id/activate", treeHandler.ActivateBranch)
	trees.Post("/:tree_id/navigate", treeHandler.Navigate)

	trees.Put("/:tree_id/positions", treeHandler.SavePositions)
	trees.Delete("/:tree_id/positions", treeHandler.ClearPositions)
	trees.Put("/:tree_id/viewport", treeHandler.SetViewport)
}

func RegisterExportRoutes(app *fiber.App, exportHandler *handlers.ExportHandler) {
	app.Post("/api/trees/import", exportHandler.ImportTree)
	app.Post("/api/trees/:tree_id/export", exportHandler.ExportTree)

	backups := app.Group("/api/backups")
	backups.Post("/", exportHandler.Backup)
	backups.Post("/restore", exportHandler.Restore)
}

func RegisterSettingsRoutes(app *fiber.App, settingsHandler *handlers.SettingsHandler) {
	settings := app.Group("/api/settings")
	settings.Get("/:user_id", settingsHandler.GetSettings)
	settings.Put("/:user_id", settingsHandler.UpdateSettings)
	settings.Delete("/:user_id", settingsHandler.DeleteSettings)
}
