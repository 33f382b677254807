package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"style-cards-backend/models"
	"style-cards-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	listingLifetime = 30 * 24 * time.Hour
	platformFeePct  = 5 // percent of sale price kept by the platform
)

// TransferHistoryPolicy decides what happens to a card's point history on
// resale: "reset" starts the buyer at zero, "carry" moves the seller's
// per-card points over with the card.
type TransferHistoryPolicy string

const (
	TransferReset TransferHistoryPolicy = "reset"
	TransferCarry TransferHistoryPolicy = "carry"
)

type MarketplaceService struct {
	DB              *gorm.DB
	MinListingPrice int64
	HistoryPolicy   TransferHistoryPolicy
}

func NewMarketplaceService(db *gorm.DB) *MarketplaceService {
	minPrice := int64(10)
	if v := os.Getenv("MIN_LISTING_PRICE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			minPrice = n
		}
	}
	policy := TransferReset
	if v := os.Getenv("TRANSFER_HISTORY_POLICY"); v == string(TransferCarry) {
		policy = TransferCarry
	}
	return &MarketplaceService{
		DB:              db,
		MinListingPrice: minPrice,
		HistoryPolicy:   policy,
	}
}

// CreateListing offers one of the authenticated user's cards for resale.
func (s *MarketplaceService) CreateListing(c *fiber.Ctx) error {
	type Req struct {
		UserStyleID string `json:"user_style_id" validate:"required,uuid"`
		Price       int64  `json:"price" validate:"required"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.UserStyleID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "user_style_id is required"})
	}
	if req.Price < s.MinListingPrice {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("price must be at least %d", s.MinListingPrice),
		})
	}

	userID := c.Locals("user_id").(string)

	var owned models.UserStyle
	err := s.DB.First(&owned, "id = ? AND external_user_id = ?", req.UserStyleID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound("STYLE_NOT_OWNED", "style not owned by user")
		}
		return err
	}

	var active int64
	s.DB.Model(&models.MarketplaceListing{}).
		Where("user_style_id = ? AND status = ?", owned.ID, models.ListingActive).
		Count(&active)
	if active > 0 {
		return utils.Conflict("ALREADY_LISTED", "style is already listed for sale")
	}

	listing := &models.MarketplaceListing{
		ID:          uuid.NewString(),
		UserStyleID: owned.ID,
		StyleCardID: owned.StyleCardID,
		SellerID:    userID,
		Price:       req.Price,
		Status:      models.ListingActive,
		ExpiresAt:   time.Now().Add(listingLifetime),
	}
	if err := s.DB.Create(listing).Error; err != nil {
		log.Printf("ERROR creating listing: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}
	return c.Status(201).JSON(listing)
}

// GetListings returns ACTIVE listings (overdue ones are expired first).
func (s *MarketplaceService) GetListings(c *fiber.Ctx) error {
	if err := s.ExpireOverdueListings(); err != nil {
		log.Printf("ERROR expiring overdue listings: %v", err)
	}
	query := s.DB.Preload("StyleCard").
		Where("status = ?", models.ListingActive)
	if cardID := c.Query("style_card_id"); cardID != "" {
		query = query.Where("style_card_id = ?", cardID)
	}
	var listings []models.MarketplaceListing
	if err := query.Order("created_at DESC").Find(&listings).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch listings"})
	}
	return c.JSON(listings)
}

// GetListingByID returns one listing, transitioning it to EXPIRED if read
// past its expiry.
func (s *MarketplaceService) GetListingByID(c *fiber.Ctx) error {
	var listing models.MarketplaceListing
	err := s.DB.Preload("StyleCard").First(&listing, "id = ?", c.Params("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "listing not found"})
		}
		return err
	}
	if listing.Status == models.ListingActive && time.Now().After(listing.ExpiresAt) {
		if err := s.DB.Model(&listing).Update("status", models.ListingExpired).Error; err == nil {
			listing.Status = models.ListingExpired
		}
	}
	return c.JSON(listing)
}

// PurchaseListing buys a listed card for the authenticated user.
func (s *MarketplaceService) PurchaseListing(c *fiber.Ctx) error {
	buyerID := c.Locals("user_id").(string)
	username, _ := c.Locals("username").(string)
	result, err := s.Buy(c.Params("id"), buyerID, username)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// TransferResult reports one completed marketplace sale.
type TransferResult struct {
	Listing        *models.MarketplaceListing `json:"listing"`
	BuyerPaid      int64                      `json:"buyer_paid"`
	SellerProceeds int64                      `json:"seller_proceeds"`
	PlatformFee    int64                      `json:"platform_fee"`
	HistoryPolicy  TransferHistoryPolicy      `json:"history_policy"`
}

// Buy executes the purchase atomically: state checks, buyer debit, seller
// credit at 95% (fee floor-rounded), ownership transfer per the history
// policy, and the SOLD transition. Self-purchase is rejected regardless
// of listing state; an overdue listing is transitioned to EXPIRED and the
// sale refused.
func (s *MarketplaceService) Buy(listingID, buyerID, buyerName string) (*TransferResult, error) {
	var result *TransferResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var listing models.MarketplaceListing
		if err := tx.First(&listing, "id = ?", listingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFound("LISTING_NOT_FOUND", "listing not found")
			}
			return err
		}

		if listing.SellerID == buyerID {
			return utils.Validation("cannot purchase your own listing")
		}

		if listing.Status == models.ListingActive && time.Now().After(listing.ExpiresAt) {
			if err := tx.Model(&listing).Update("status", models.ListingExpired).Error; err != nil {
				return err
			}
			return utils.Conflict("LISTING_EXPIRED", "listing has expired")
		}
		if listing.Status.Terminal() {
			return utils.Conflict("LISTING_NOT_ACTIVE",
				fmt.Sprintf("listing is %s", listing.Status))
		}

		if _, err := ensureUser(tx, buyerID, buyerName); err != nil {
			return err
		}

		// Debit buyer (guarded, so a racing purchase cannot overdraw).
		res := tx.Model(&models.PlatformUser{}).
			Where("external_user_id = ? AND balance >= ?", buyerID, listing.Price).
			Update("balance", gorm.Expr("balance - ?", listing.Price))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.Conflict("INSUFFICIENT_BALANCE", "balance is below listing price")
		}

		proceeds := listing.Price * (100 - platformFeePct) / 100
		if err := tx.Model(&models.PlatformUser{}).
			Where("external_user_id = ?", listing.SellerID).
			Update("balance", gorm.Expr("balance + ?", proceeds)).Error; err != nil {
			return err
		}

		if err := s.transferOwnership(tx, &listing, buyerID); err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&listing).Updates(map[string]interface{}{
			"status":          models.ListingSold,
			"buyer_id":        buyerID,
			"sold_at":         &now,
			"seller_proceeds": proceeds,
		}).Error; err != nil {
			return err
		}

		buyerTx := models.UserTransaction{
			ID:             uuid.NewString(),
			ExternalUserID: buyerID,
			Kind:           models.TxMarketPurchase,
			Amount:         -listing.Price,
			Reference:      listing.ID,
		}
		sellerTx := models.UserTransaction{
			ID:             uuid.NewString(),
			ExternalUserID: listing.SellerID,
			Kind:           models.TxMarketSale,
			Amount:         proceeds,
			Reference:      listing.ID,
		}
		if err := tx.Create(&buyerTx).Error; err != nil {
			return err
		}
		if err := tx.Create(&sellerTx).Error; err != nil {
			return err
		}

		listing.Status = models.ListingSold
		listing.BuyerID = buyerID
		listing.SoldAt = &now
		listing.SellerProceeds = proceeds
		result = &TransferResult{
			Listing:        &listing,
			BuyerPaid:      listing.Price,
			SellerProceeds: proceeds,
			PlatformFee:    listing.Price - proceeds,
			HistoryPolicy:  s.HistoryPolicy,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// transferOwnership moves one copy of the card from seller to buyer.
// The seller's row is decremented (removed at quantity zero); the buyer's
// row is created or incremented. Point history follows the configured
// policy: under "reset" the buyer's holding starts at zero, under "carry"
// the seller's per-card points travel with the copy.
func (s *MarketplaceService) transferOwnership(tx *gorm.DB, listing *models.MarketplaceListing, buyerID string) error {
	var sellerRow models.UserStyle
	err := tx.First(&sellerRow, "id = ?", listing.UserStyleID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Conflict("STYLE_GONE", "seller no longer owns this style")
		}
		return err
	}

	carryPoints := int64(0)
	carryWeekly := int64(0)
	carryActivations := int64(0)
	if s.HistoryPolicy == TransferCarry {
		carryPoints = sellerRow.TotalPoints
		carryWeekly = sellerRow.WeeklyPoints
		carryActivations = sellerRow.ActivationCount
	}

	if sellerRow.Quantity > 1 {
		if err := tx.Model(&sellerRow).Update("quantity", gorm.Expr("quantity - 1")).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Delete(&sellerRow).Error; err != nil {
			return err
		}
		if s.HistoryPolicy == TransferCarry {
			// The holding left the seller entirely; their aggregates follow.
			if err := tx.Model(&models.PlatformUser{}).
				Where("external_user_id = ?", sellerRow.ExternalUserID).
				Updates(map[string]interface{}{
					"total_points":  gorm.Expr("total_points - ?", carryPoints),
					"weekly_points": gorm.Expr("weekly_points - ?", carryWeekly),
				}).Error; err != nil {
				return err
			}
		}
	}

	var buyerRow models.UserStyle
	err = tx.Where("external_user_id = ? AND style_card_id = ?", buyerID, listing.StyleCardID).
		First(&buyerRow).Error
	if err == nil {
		updates := map[string]interface{}{"quantity": gorm.Expr("quantity + 1")}
		if s.HistoryPolicy == TransferCarry {
			updates["total_points"] = gorm.Expr("total_points + ?", carryPoints)
			updates["weekly_points"] = gorm.Expr("weekly_points + ?", carryWeekly)
			updates["activation_count"] = gorm.Expr("activation_count + ?", carryActivations)
		}
		if err := tx.Model(&buyerRow).Updates(updates).Error; err != nil {
			return err
		}
	} else if errors.Is(err, gorm.ErrRecordNotFound) {
		buyerRow = models.UserStyle{
			ID:              uuid.NewString(),
			ExternalUserID:  buyerID,
			StyleCardID:     listing.StyleCardID,
			Quantity:        1,
			TotalPoints:     carryPoints,
			WeeklyPoints:    carryWeekly,
			ActivationCount: carryActivations,
		}
		if err := tx.Create(&buyerRow).Error; err != nil {
			return err
		}
	} else {
		return err
	}

	if s.HistoryPolicy == TransferCarry && carryPoints != 0 {
		if err := tx.Model(&models.PlatformUser{}).
			Where("external_user_id = ?", buyerID).
			Updates(map[string]interface{}{
				"total_points":  gorm.Expr("total_points + ?", carryPoints),
				"weekly_points": gorm.Expr("weekly_points + ?", carryWeekly),
			}).Error; err != nil {
			return err
		}
	}
	return nil
}

// CancelListing withdraws an ACTIVE listing (owner only).
func (s *MarketplaceService) CancelListing(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var listing models.MarketplaceListing
	err := s.DB.First(&listing, "id = ?", c.Params("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "listing not found"})
		}
		return err
	}
	if listing.SellerID != userID {
		return c.Status(403).JSON(fiber.Map{"error": "only the seller can cancel a listing"})
	}
	// An overdue listing expires rather than cancels, same as on Buy.
	if listing.Status == models.ListingActive && time.Now().After(listing.ExpiresAt) {
		if err := s.DB.Model(&listing).Update("status", models.ListingExpired).Error; err != nil {
			return err
		}
		return utils.Conflict("LISTING_EXPIRED", "listing has expired")
	}
	if listing.Status.Terminal() {
		return utils.Conflict("LISTING_NOT_ACTIVE",
			fmt.Sprintf("listing is %s", listing.Status))
	}

	now := time.Now()
	if err := s.DB.Model(&listing).Updates(map[string]interface{}{
		"status":       models.ListingCancelled,
		"cancelled_at": &now,
	}).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "cancel failed"})
	}
	listing.Status = models.ListingCancelled
	listing.CancelledAt = &now
	return c.JSON(listing)
}

// ExpireOverdueListings transitions every overdue ACTIVE listing to
// EXPIRED. Called lazily on reads and by the scheduler sweep.
func (s *MarketplaceService) ExpireOverdueListings() error {
	res := s.DB.Model(&models.MarketplaceListing{}).
		Where("status = ? AND expires_at < ?", models.ListingActive, time.Now()).
		Update("status", models.ListingExpired)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		log.Printf("Expired %d overdue marketplace listing(s)", res.RowsAffected)
	}
	return nil
}
