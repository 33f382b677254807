package handlers

import (
	"style-cards-backend/middleware"
	"style-cards-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, userService *services.UserService) {
	// Public leaderboards
	app.Get("/leaderboard", userService.GetLeaderboard)
	app.Get("/leaderboard/weekly", userService.GetWeeklyLeaderboard)

	// Authenticated profile reads
	userCtx := middleware.UserContextMiddleware()
	app.Get("/users/me", userCtx, userService.GetMe)
	app.Get("/users/me/styles", userCtx, userService.GetMyStyles)
	app.Get("/users/me/transactions", userCtx, userService.GetMyTransactions)
}
