package bootstrap

import (
	"go_branch_chat/config"
	"go_branch_chat/pkg/tree"
	"go_branch_chat/services"
)

type Services struct {
	TreeService     *services.TreeService
	ChatService     *services.ChatService
	SettingsService *services.SettingsService
	ExportService   *services.ExportService
}

func NewServices(cfg *config.Config, repos *Repositories, infra *Infrastructure) *Services {
	res := &Services{}

	res.TreeService = services.NewTreeService(repos.TreeRepository, infra.Cache, infra.EventPublisher,
		tree.NewEngine(), cfg.CacheTTL)

	res.SettingsService = services.NewSettingsService(infra.Cache, services.CompletionSettings{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
	}, cfg.CacheTTL)

	res.ChatService = services.NewChatService(res.TreeService,
		services.NewOpenAIClient(cfg.LLMTimeout), res.SettingsService)

	// a typed nil pointer would make the interface non-nil
	var store services.ObjectStore
	if infra.Storage != nil {
		store = infra.Storage
	}
	res.ExportService = services.NewExportService(store, res.TreeService, cfg.ExportURLTTL)
	return res
}
