package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"style-cards-backend/handlers"
	"style-cards-backend/models"
	"style-cards-backend/services"
	"style-cards-backend/utils"
	"style-cards-backend/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: utils.ErrorHandler,
	})

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("ALLOWED_ORIGINS not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(allowedOriginsList, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Name, X-User-Roles",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.StyleCard{},
		&models.PlatformUser{},
		&models.WalletMirror{},
		&models.UserStyle{},
		&models.PackType{},
		&models.PackTypeSlot{},
		&models.PackPurchase{},
		&models.PackPurchaseCard{},
		&models.StyleActivation{},
		&models.MarketplaceListing{},
		&models.UserTransaction{},
		&models.Tournament{},
		&models.TournamentEntry{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := services.SeedDefaultCatalog(db); err != nil {
		log.Fatal("failed to seed style catalog:", err)
	}
	if err := services.SeedDefaultPackTypes(db); err != nil {
		log.Fatal("failed to seed pack types:", err)
	}

	catalogService := services.NewCatalogService(db)
	packService := services.NewPackService(db)
	activationService := services.NewActivationService(db)
	marketplaceService := services.NewMarketplaceService(db)
	tournamentService := services.NewTournamentService(db)
	userService := services.NewUserService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	statsClient := workers.NewStatsClient()
	go workers.PollMatchStats(ctx, statsClient, activationService, 60*time.Second)

	walletSyncClient := workers.NewWalletSyncClient(db)
	go workers.PollWallets(ctx, walletSyncClient, 10*time.Second)

	marketplaceService.StartExpirySweeper()
	userService.StartWeeklyReset()

	handlers.SetupStyleRoutes(app, catalogService, activationService)
	handlers.SetupPackRoutes(app, packService)
	handlers.SetupMarketplaceRoutes(app, marketplaceService)
	handlers.SetupTournamentRoutes(app, tournamentService)
	handlers.SetupUserRoutes(app, userService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("Server running on http://localhost:%s", port)
	log.Println("Match stats polling running (every 60s)")
	log.Println("Wallet polling running (every 10s)")

	<-ctx.Done()
	log.Println("Shutting down server...")
}
