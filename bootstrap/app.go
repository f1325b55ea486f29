package bootstrap

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"go_branch_chat/config"
	"go_branch_chat/handlers"
	"go_branch_chat/middleware"
	"go_branch_chat/pkg/logging"
	"go_branch_chat/routes"
)

type App struct {
	Cfg            *config.Config
	Infrastructure *Infrastructure
	Repositories   *Repositories
	Services       *Services
	Handlers       *Handlers
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Cfg: cfg}
	infra, err := NewInfrastructure(ctx, cfg)
	if err != nil {
		logging.Logger.Error("infrastructure init failed", "error", err)
		return nil, err
	}
	app.Infrastructure = infra
	app.Repositories = NewRepositories(infra.DB)
	app.Services = NewServices(cfg, app.Repositories, infra)
	app.Handlers = NewHandlers(app.Services, infra)

	if cfg.SeedDemo {
		if _, _, err := app.Services.TreeService.SeedDemo(ctx); err != nil {
			logging.Logger.Warn("demo seed failed", "error", err)
		}
	}
	return app, nil
}

// NewServer builds the fiber app with every route mounted.
func (a *App) NewServer() *fiber.App {
	server := fiber.New(fiber.Config{
		AppName:      "go_branch_chat",
		ErrorHandler: handlers.ErrorHandler,
		// params are used as lock and cache keys after the handler returns
		Immutable: true,
	})
	server.Use(recover.New())
	server.Use(middleware.Logger(a.Cfg.AppEnv))
	server.Use(middleware.CORS(a.Cfg.AllowOrigins))

	server.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	routes.RegisterExportRoutes(server, a.Handlers.ExportHandler)
	routes.RegisterTreeRoutes(server, a.Handlers.TreeHandler, a.Handlers.ChatHandler)
	routes.RegisterSettingsRoutes(server, a.Handlers.SettingsHandler)
	routes.SetupWebSocketRoutes(server, a.Handlers.WSHandler)
	return server
}

func (a *App) Shutdown() error {
	if a == nil || a.Infrastructure == nil {
		return nil
	}
	return a.Infrastructure.Shutdown()
}
