package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand"

	"style-cards-backend/models"
	"style-cards-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NoCardsAvailableError aborts a purchase when a requested rarity has no
// drawable cards (empty pool, or every candidate at its supply cap).
type NoCardsAvailableError struct {
	Rarity models.Rarity
}

func (e *NoCardsAvailableError) Error() string {
	return fmt.Sprintf("no cards available for rarity %s", e.Rarity)
}

type PackService struct {
	DB *gorm.DB
}

func NewPackService(db *gorm.DB) *PackService {
	return &PackService{DB: db}
}

// PurchaseResult is what a committed purchase hands back to the caller:
// the transaction record plus every granted card in draw order.
type PurchaseResult struct {
	Purchase *models.PackPurchase `json:"purchase"`
	Cards    []models.StyleCard   `json:"cards"`
}

// GetPackTypes lists active pack definitions with their rarity slots.
func (s *PackService) GetPackTypes(c *fiber.Ctx) error {
	var types []models.PackType
	err := s.DB.Where("is_active = ?", true).
		Preload("Slots", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"sort_order\" ASC")
		}).
		Order("price ASC").
		Find(&types).Error
	if err != nil {
		log.Printf("ERROR fetching pack types: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch pack types"})
	}
	return c.JSON(types)
}

// PurchasePacks buys quantity packs of a type for the authenticated user.
func (s *PackService) PurchasePacks(c *fiber.Ctx) error {
	type Req struct {
		PackType string `json:"pack_type" validate:"required"`
		Quantity int    `json:"quantity" validate:"required,min=1"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.PackType == "" {
		return c.Status(400).JSON(fiber.Map{"error": "pack_type is required"})
	}
	if req.Quantity < 1 {
		return c.Status(400).JSON(fiber.Map{"error": "quantity must be >= 1"})
	}

	userID := c.Locals("user_id").(string)
	username, _ := c.Locals("username").(string)

	result, err := s.Purchase(userID, username, req.PackType, req.Quantity)
	if err != nil {
		var noCards *NoCardsAvailableError
		if errors.As(err, &noCards) {
			return utils.ResourceExhausted(noCards.Error())
		}
		return err
	}
	return c.JSON(result)
}

// GetMyPurchases lists the authenticated user's purchase history.
func (s *PackService) GetMyPurchases(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	var purchases []models.PackPurchase
	if err := s.DB.Where("external_user_id = ?", userID).
		Order("created_at DESC").
		Find(&purchases).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch purchases"})
	}
	return c.JSON(purchases)
}

// GetPurchaseByID returns one purchase with its granted cards: the
// idempotent "pack reveal" read, backed by the purchase-card join table.
func (s *PackService) GetPurchaseByID(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	var purchase models.PackPurchase
	err := s.DB.Preload("Cards", func(db *gorm.DB) *gorm.DB {
		return db.Order("pack_index ASC, position ASC")
	}).Preload("Cards.StyleCard").
		First(&purchase, "id = ? AND external_user_id = ?", c.Params("id"), userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "purchase not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(purchase)
}

// Purchase executes the pack purchase as one atomic unit: debit, draw,
// grant, count. Nothing persists if any pack in the batch fails to draw.
func (s *PackService) Purchase(userID, username, packTypeName string, quantity int) (*PurchaseResult, error) {
	var result *PurchaseResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var pt models.PackType
		err := tx.Preload("Slots", func(db *gorm.DB) *gorm.DB {
			return db.Order("\"sort_order\" ASC")
		}).First(&pt, "name = ? AND is_active = ?", packTypeName, true).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFound("PACK_TYPE_NOT_FOUND", "unknown pack type")
			}
			return err
		}

		user, err := ensureUser(tx, userID, username)
		if err != nil {
			return err
		}

		totalCost := pt.Price * int64(quantity)
		res := tx.Model(&models.PlatformUser{}).
			Where("external_user_id = ? AND balance >= ?", userID, totalCost).
			Update("balance", gorm.Expr("balance - ?", totalCost))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.Conflict("INSUFFICIENT_BALANCE",
				fmt.Sprintf("balance %d is below pack cost %d", user.Balance, totalCost))
		}
		// Re-read so the wallet log records the post-debit balance even
		// when another debit landed between ensureUser and the update.
		if err := tx.First(user, "external_user_id = ?", userID).Error; err != nil {
			return err
		}

		purchase := &models.PackPurchase{
			ID:             uuid.NewString(),
			ExternalUserID: userID,
			PackTypeID:     pt.ID,
			PackTypeName:   pt.Name,
			Quantity:       quantity,
			UnitPrice:      pt.Price,
			TotalCost:      totalCost,
		}
		if err := tx.Create(purchase).Error; err != nil {
			return err
		}

		// supplyDrawn carries per-card draw counts across all packs in
		// this purchase so cap checks see the whole batch.
		supplyDrawn := map[string]int64{}
		var granted []models.StyleCard

		for packIdx := 0; packIdx < quantity; packIdx++ {
			picks, err := s.drawPack(tx, &pt, supplyDrawn)
			if err != nil {
				return err
			}
			for pos, card := range picks {
				if err := grantCard(tx, userID, card.ID); err != nil {
					return err
				}
				link := models.PackPurchaseCard{
					ID:             uuid.NewString(),
					PackPurchaseID: purchase.ID,
					StyleCardID:    card.ID,
					PackIndex:      packIdx,
					Position:       pos,
				}
				if err := tx.Create(&link).Error; err != nil {
					return err
				}
				granted = append(granted, card)
			}
		}

		// Apply supply increments with the cap re-checked at write time,
		// so concurrent purchases cannot overshoot max_supply.
		for cardID, drawn := range supplyDrawn {
			res := tx.Model(&models.StyleCard{}).
				Where("id = ? AND (max_supply = 0 OR current_supply + ? <= max_supply)", cardID, drawn).
				Update("current_supply", gorm.Expr("current_supply + ?", drawn))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return utils.ResourceExhausted("card supply exhausted during purchase")
			}
		}

		if err := tx.Model(&models.PlatformUser{}).
			Where("external_user_id = ?", userID).
			Update("packs_purchased", gorm.Expr("packs_purchased + ?", quantity)).Error; err != nil {
			return err
		}

		txRecord := models.UserTransaction{
			ID:             uuid.NewString(),
			ExternalUserID: userID,
			Kind:           models.TxPackPurchase,
			Amount:         -totalCost,
			BalanceAfter:   user.Balance,
			Reference:      purchase.ID,
			Note:           fmt.Sprintf("%d x %s", quantity, pt.Name),
		}
		if err := tx.Create(&txRecord).Error; err != nil {
			return err
		}

		result = &PurchaseResult{Purchase: purchase, Cards: granted}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// drawPack draws one pack's worth of cards: for each rarity slot, pick
// Count cards at random from that rarity's drawable pool. Slots with a
// zero count are skipped outright. supplyDrawn tracks draws already made
// in the surrounding purchase so capped cards drop out of the pool as
// the batch consumes their remaining supply.
func (s *PackService) drawPack(tx *gorm.DB, pt *models.PackType, supplyDrawn map[string]int64) ([]models.StyleCard, error) {
	var picks []models.StyleCard

	for _, slot := range pt.Slots {
		if slot.Count == 0 {
			continue
		}

		var pool []models.StyleCard
		if err := tx.Where("rarity = ? AND is_active = ?", slot.Rarity, true).
			Order("name").
			Find(&pool).Error; err != nil {
			return nil, err
		}

		pickedInPack := map[string]bool{}
		for i := 0; i < slot.Count; i++ {
			eligible := make([]models.StyleCard, 0, len(pool))
			for _, card := range pool {
				projected := card
				projected.CurrentSupply += supplyDrawn[card.ID]
				if !projected.SupplyAvailable() {
					continue
				}
				if pt.DrawMode == models.DrawWithoutReplacement && pickedInPack[card.ID] {
					continue
				}
				eligible = append(eligible, card)
			}
			if len(eligible) == 0 {
				return nil, &NoCardsAvailableError{Rarity: slot.Rarity}
			}

			// Top-level rand is safe for concurrent purchase handlers.
			card := eligible[rand.Intn(len(eligible))]
			supplyDrawn[card.ID]++
			pickedInPack[card.ID] = true
			picks = append(picks, card)
		}
	}
	return picks, nil
}

// grantCard upserts the ownership ledger row for (user, card): a second
// copy of the same card increments Quantity on the existing row.
func grantCard(tx *gorm.DB, userID, cardID string) error {
	var owned models.UserStyle
	err := tx.Where("external_user_id = ? AND style_card_id = ?", userID, cardID).First(&owned).Error
	if err == nil {
		return tx.Model(&owned).Update("quantity", gorm.Expr("quantity + 1")).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	owned = models.UserStyle{
		ID:             uuid.NewString(),
		ExternalUserID: userID,
		StyleCardID:    cardID,
		Quantity:       1,
	}
	return tx.Create(&owned).Error
}

// CreatePackType defines a new pack (admin only). The rarity distribution
// must add up to card_count exactly.
func (s *PackService) CreatePackType(c *fiber.Ctx) error {
	type SlotReq struct {
		Rarity models.Rarity `json:"rarity"`
		Count  int           `json:"count"`
	}
	type Req struct {
		Name      string          `json:"name" validate:"required"`
		Price     int64           `json:"price" validate:"required"`
		CardCount int             `json:"card_count" validate:"required,min=1"`
		DrawMode  models.DrawMode `json:"draw_mode"`
		Slots     []SlotReq       `json:"slots" validate:"required"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Name == "" || req.CardCount < 1 || len(req.Slots) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "name, card_count and slots are required"})
	}
	if req.Price < 0 {
		return c.Status(400).JSON(fiber.Map{"error": "price must be non-negative"})
	}
	if req.DrawMode == "" {
		req.DrawMode = models.DrawWithReplacement
	}
	if req.DrawMode != models.DrawWithReplacement && req.DrawMode != models.DrawWithoutReplacement {
		return c.Status(400).JSON(fiber.Map{"error": "invalid draw_mode"})
	}

	sum := 0
	for _, slot := range req.Slots {
		if !slot.Rarity.Valid() {
			return c.Status(400).JSON(fiber.Map{"error": "invalid rarity in slots"})
		}
		if slot.Count < 0 {
			return c.Status(400).JSON(fiber.Map{"error": "slot count must be non-negative"})
		}
		sum += slot.Count
	}
	if sum != req.CardCount {
		return c.Status(400).JSON(fiber.Map{"error": "slot counts must sum to card_count"})
	}

	var count int64
	s.DB.Model(&models.PackType{}).Where("name = ?", req.Name).Count(&count)
	if count > 0 {
		return c.Status(409).JSON(fiber.Map{"error": "pack type with this name already exists"})
	}

	pt := &models.PackType{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Price:     req.Price,
		CardCount: req.CardCount,
		DrawMode:  req.DrawMode,
		IsActive:  true,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Slots").Create(pt).Error; err != nil {
			return err
		}
		for i, slot := range req.Slots {
			row := models.PackTypeSlot{
				ID:         uuid.NewString(),
				PackTypeID: pt.ID,
				Rarity:     slot.Rarity,
				Count:      slot.Count,
				SortOrder:  i,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			pt.Slots = append(pt.Slots, row)
		}
		return nil
	})
	if err != nil {
		log.Printf("ERROR creating pack type: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}
	return c.Status(201).JSON(pt)
}

// defaultPackTypes seeded when the table is empty.
var defaultPackTypes = []struct {
	name      string
	price     int64
	cardCount int
	slots     map[models.Rarity]int
}{
	{"Starter Pack", 100, 3, map[models.Rarity]int{models.RarityCommon: 2, models.RarityRare: 1}},
	{"Pro Pack", 500, 5, map[models.Rarity]int{models.RarityCommon: 2, models.RarityRare: 2, models.RarityLegendary: 1}},
	{"Elite Pack", 2000, 5, map[models.Rarity]int{models.RarityRare: 2, models.RarityLegendary: 2, models.RarityMythic: 1}},
}

// SeedDefaultPackTypes inserts the default pack catalog if none exist.
func SeedDefaultPackTypes(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.PackType{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	order := []models.Rarity{models.RarityCommon, models.RarityRare, models.RarityLegendary, models.RarityMythic}
	for _, def := range defaultPackTypes {
		pt := models.PackType{
			ID:        uuid.NewString(),
			Name:      def.name,
			Price:     def.price,
			CardCount: def.cardCount,
			DrawMode:  models.DrawWithReplacement,
			IsActive:  true,
		}
		if err := db.Create(&pt).Error; err != nil {
			return fmt.Errorf("seeding pack type %q: %w", def.name, err)
		}
		i := 0
		for _, rarity := range order {
			n, ok := def.slots[rarity]
			if !ok {
				continue
			}
			slot := models.PackTypeSlot{
				ID:         uuid.NewString(),
				PackTypeID: pt.ID,
				Rarity:     rarity,
				Count:      n,
				SortOrder:  i,
			}
			i++
			if err := db.Create(&slot).Error; err != nil {
				return err
			}
		}
	}
	log.Printf("Seeded %d default pack types", len(defaultPackTypes))
	return nil
}
