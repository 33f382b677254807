package handlers

import (
	"style-cards-backend/middleware"
	"style-cards-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPackRoutes(app *fiber.App, packService *services.PackService) {
	// Public: pack catalog
	app.Get("/packs/types", packService.GetPackTypes)

	// Authenticated purchase + reveal
	userCtx := middleware.UserContextMiddleware()
	app.Post("/packs/purchase", userCtx, packService.PurchasePacks)
	app.Get("/packs/purchases", userCtx, packService.GetMyPurchases)
	app.Get("/packs/purchases/:id", userCtx, packService.GetPurchaseByID)

	// Admin pack definitions
	app.Post("/admin/packs/types", userCtx, middleware.RequireAdmin(), packService.CreatePackType)
}
