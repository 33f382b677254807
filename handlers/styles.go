package handlers

import (
	"style-cards-backend/middleware"
	"style-cards-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupStyleRoutes(app *fiber.App, catalogService *services.CatalogService, activationService *services.ActivationService) {
	// Public catalog reads
	app.Get("/styles", catalogService.GetAllStyleCards)
	app.Get("/styles/:id", catalogService.GetStyleCardByID)
	app.Get("/styles/:id/activations", func(c *fiber.Ctx) error {
		c.Request().URI().QueryArgs().Set("style_id", c.Params("id"))
		return activationService.GetActivations(c)
	})

	// Internal scoring ingestion: service token, no user context
	internal := app.Group("/internal", middleware.ServiceAuthMiddleware())
	internal.Post("/styles/activate", activationService.CreateActivation)
	internal.Get("/activations", activationService.GetActivations)

	// Admin catalog management
	userCtx := middleware.UserContextMiddleware()
	app.Post("/admin/styles", userCtx, middleware.RequireAdmin(), catalogService.CreateStyleCard)
	app.Patch("/admin/styles/:id", userCtx, middleware.RequireAdmin(), catalogService.UpdateStyleCard)
}
