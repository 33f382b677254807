package handlers

import (
	"style-cards-backend/middleware"
	"style-cards-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMarketplaceRoutes(app *fiber.App, marketplaceService *services.MarketplaceService) {
	// Public browse
	app.Get("/marketplace/listings", marketplaceService.GetListings)
	app.Get("/marketplace/listings/:id", marketplaceService.GetListingByID)

	// Authenticated trade actions
	userCtx := middleware.UserContextMiddleware()
	app.Post("/marketplace/listings", userCtx, marketplaceService.CreateListing)
	app.Post("/marketplace/listings/:id/purchase", userCtx, marketplaceService.PurchaseListing)
	app.Post("/marketplace/listings/:id/cancel", userCtx, marketplaceService.CancelListing)
}
