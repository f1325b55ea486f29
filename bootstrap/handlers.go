package bootstrap

import "go_branch_chat/handlers"

type Handlers struct {
	TreeHandler     *handlers.TreeHandler
	ChatHandler     *handlers.ChatHandler
	SettingsHandler *handlers.SettingsHandler
	ExportHandler   *handlers.ExportHandler
	WSHandler       *handlers.WSHandler
}

func NewHandlers(services *Services, infra *Infrastructure) *Handlers {
	return &Handlers{
		TreeHandler:     handlers.NewTreeHandler(services.TreeService),
		ChatHandler:     handlers.NewChatHandler(services.ChatService),
		SettingsHandler: handlers.NewSettingsHandler(services.SettingsService),
		ExportHandler:   handlers.NewExportHandler(services.ExportService),
		WSHandler:       handlers.NewWSHandler(infra.EventPublisher),
	}
}
