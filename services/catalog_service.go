package services

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"

	"style-cards-backend/models"
	"style-cards-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type CatalogService struct {
	DB *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

// GetAllStyleCards lists catalog cards, optionally filtered by rarity,
// category and active flag (?rarity=RARE&category=attacking&active=true).
func (s *CatalogService) GetAllStyleCards(c *fiber.Ctx) error {
	query := s.DB.Model(&models.StyleCard{})

	if r := c.Query("rarity"); r != "" {
		rarity := models.Rarity(r)
		if !rarity.Valid() {
			return c.Status(400).JSON(fiber.Map{"error": "invalid rarity"})
		}
		query = query.Where("rarity = ?", rarity)
	}
	if cat := c.Query("category"); cat != "" {
		query = query.Where("category = ?", cat)
	}
	if active := c.Query("active"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	}

	var cards []models.StyleCard
	if err := query.Order("rarity, name").Find(&cards).Error; err != nil {
		log.Printf("ERROR fetching style cards: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch style cards"})
	}
	return c.JSON(cards)
}

func (s *CatalogService) GetStyleCardByID(c *fiber.Ctx) error {
	id := c.Params("id")
	var card models.StyleCard
	if err := s.DB.First(&card, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "style card not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(card)
}

// CreateStyleCard creates a catalog card (admin only). Multipart form:
// name, rarity, category, description, base_points, bonus_multiplier,
// max_supply, plus an optional artwork file uploaded to R2.
func (s *CatalogService) CreateStyleCard(c *fiber.Ctx) error {
	name := c.FormValue("name")
	rarityStr := c.FormValue("rarity")
	category := c.FormValue("category")

	if name == "" || rarityStr == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name and rarity are required"})
	}
	rarity := models.Rarity(rarityStr)
	if !rarity.Valid() {
		return c.Status(400).JSON(fiber.Map{"error": "rarity must be one of COMMON, RARE, LEGENDARY, MYTHIC"})
	}

	basePoints := int64(0)
	if v := c.FormValue("base_points"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return c.Status(400).JSON(fiber.Map{"error": "base_points must be a non-negative integer"})
		}
		basePoints = n
	}

	maxSupply := int64(0)
	if v := c.FormValue("max_supply"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return c.Status(400).JSON(fiber.Map{"error": "max_supply must be a non-negative integer"})
		}
		maxSupply = n
	}

	// Bonus multiplier defaults to the rarity's tier multiplier.
	bonusMultiplier := rarity.Multiplier()
	if v := c.FormValue("bonus_multiplier"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 1.0 {
			return c.Status(400).JSON(fiber.Map{"error": "bonus_multiplier must be a number >= 1.0"})
		}
		bonusMultiplier = f
	}

	var count int64
	s.DB.Model(&models.StyleCard{}).Where("name = ?", name).Count(&count)
	if count > 0 {
		return c.Status(409).JSON(fiber.Map{"error": "style card with this name already exists"})
	}

	var artworkURL string
	if artwork, err := c.FormFile("artwork"); err == nil && artwork.Size > 0 {
		ext := filepath.Ext(artwork.Filename)
		if ext == "" {
			ext = ".jpg"
		}
		key := "cards/artwork/" + uuid.NewString() + ext
		url, err := utils.UploadArtwork(artwork, key)
		if err != nil {
			log.Printf("ERROR uploading card artwork: %v", err)
			return c.Status(500).JSON(fiber.Map{"error": "failed to upload artwork"})
		}
		artworkURL = url
	}

	card := &models.StyleCard{
		ID:              uuid.NewString(),
		Name:            name,
		Slug:            slug.Make(name),
		Rarity:          rarity,
		Category:        category,
		Description:     c.FormValue("description"),
		BasePoints:      basePoints,
		BonusMultiplier: bonusMultiplier,
		MaxSupply:       maxSupply,
		ArtworkURL:      artworkURL,
		IsActive:        true,
	}
	if err := s.DB.Create(card).Error; err != nil {
		log.Printf("ERROR creating style card: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}
	return c.Status(201).JSON(card)
}

// UpdateStyleCard updates mutable card fields (admin only). Identity,
// rarity and supply counters are not editable here.
func (s *CatalogService) UpdateStyleCard(c *fiber.Ctx) error {
	id := c.Params("id")
	var card models.StyleCard
	if err := s.DB.First(&card, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "style card not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Description *string  `json:"description"`
		Category    *string  `json:"category"`
		BasePoints  *int64   `json:"base_points"`
		MaxSupply   *int64   `json:"max_supply"`
		Multiplier  *float64 `json:"bonus_multiplier"`
		IsActive    *bool    `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}

	updates := map[string]interface{}{}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.BasePoints != nil {
		if *req.BasePoints < 0 {
			return c.Status(400).JSON(fiber.Map{"error": "base_points must be non-negative"})
		}
		updates["base_points"] = *req.BasePoints
	}
	if req.MaxSupply != nil {
		if *req.MaxSupply != 0 && *req.MaxSupply < card.CurrentSupply {
			return c.Status(400).JSON(fiber.Map{"error": "max_supply cannot be below current supply"})
		}
		updates["max_supply"] = *req.MaxSupply
	}
	if req.Multiplier != nil {
		if *req.Multiplier < 1.0 {
			return c.Status(400).JSON(fiber.Map{"error": "bonus_multiplier must be >= 1.0"})
		}
		updates["bonus_multiplier"] = *req.Multiplier
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.DB.Model(&card).Updates(updates).Error; err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "update failed"})
		}
	}
	s.DB.First(&card, "id = ?", id)
	return c.JSON(card)
}

// catalogSeed describes one default catalog entry.
type catalogSeed struct {
	name       string
	rarity     models.Rarity
	category   string
	basePoints int64
}

var defaultCatalog = []catalogSeed{
	{StyleClinicalFinisher, models.RarityLegendary, "attacking", 10},
	{StyleSpeedster, models.RarityRare, "dribbling", 5},
	{StyleBallWinner, models.RarityRare, "defending", 2},
	{StylePlaymaker, models.RarityLegendary, "playmaking", 8},
	{"Wall", models.RarityCommon, "defending", 1},
	{"Engine", models.RarityCommon, "stamina", 1},
	{"Sharpshooter", models.RarityRare, "attacking", 4},
	{"Maestro", models.RarityMythic, "playmaking", 12},
}

// SeedDefaultCatalog inserts the default style cards if the catalog is
// empty. Safe to call on every boot.
func SeedDefaultCatalog(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.StyleCard{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, sc := range defaultCatalog {
		card := models.StyleCard{
			ID:              uuid.NewString(),
			Name:            sc.name,
			Slug:            slug.Make(sc.name),
			Rarity:          sc.rarity,
			Category:        sc.category,
			BasePoints:      sc.basePoints,
			BonusMultiplier: sc.rarity.Multiplier(),
			IsActive:        true,
		}
		if err := db.Create(&card).Error; err != nil {
			return fmt.Errorf("seeding card %q: %w", sc.name, err)
		}
	}
	log.Printf("Seeded %d default style cards", len(defaultCatalog))
	return nil
}
