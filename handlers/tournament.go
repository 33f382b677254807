package handlers

import (
	"style-cards-backend/middleware"
	"style-cards-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTournamentRoutes(app *fiber.App, tournamentService *services.TournamentService) {
	// Public reads
	app.Get("/tournaments", tournamentService.GetAllTournaments)
	app.Get("/tournaments/:id", tournamentService.GetTournamentByID)
	app.Get("/tournaments/:id/leaderboard", tournamentService.GetLeaderboard)

	// Authenticated entry
	userCtx := middleware.UserContextMiddleware()
	app.Post("/tournaments/:id/enter", userCtx, tournamentService.EnterTournament)

	// Admin lifecycle
	admin := middleware.RequireAdmin()
	app.Post("/admin/tournaments", userCtx, admin, tournamentService.CreateTournament)
	app.Patch("/admin/tournaments/:id/status", userCtx, admin, tournamentService.UpdateTournamentStatus)
	app.Post("/admin/tournaments/:id/finalize", userCtx, admin, tournamentService.FinalizeTournament)
}
