package webapi

import (
	"github.com/amirasaad/ledger/pkg/app"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// New builds the Fiber application with all command and query routes
// registered.
func New(a *app.App) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		AppName: "ledger",
	})
	fiberApp.Use(recover.New())
	fiberApp.Use(cors.New())

	HealthRoutes(fiberApp)
	CommandRoutes(fiberApp, a.LedgerService)
	QueryRoutes(fiberApp, a.QueryService, a.Config.Query)

	return fiberApp
}
