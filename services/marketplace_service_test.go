package services

import (
	"errors"
	"testing"
	"time"

	"style-cards-backend/models"
	"style-cards-backend/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedListing(t *testing.T, db *gorm.DB, owned *models.UserStyle, price int64, status models.ListingStatus, expiresAt time.Time) *models.MarketplaceListing {
	t.Helper()
	listing := &models.MarketplaceListing{
		ID:          uuid.NewString(),
		UserStyleID: owned.ID,
		StyleCardID: owned.StyleCardID,
		SellerID:    owned.ExternalUserID,
		Price:       price,
		Status:      status,
		ExpiresAt:   expiresAt,
	}
	require.NoError(t, db.Create(listing).Error)
	return listing
}

func newMarketplace(db *gorm.DB) *MarketplaceService {
	return &MarketplaceService{DB: db, MinListingPrice: 10, HistoryPolicy: TransferReset}
}

func TestBuySplitsPriceBetweenSellerAndPlatform(t *testing.T) {
	db := newTestDB(t)
	card := seedCard(t, db, "Clinical Finisher", models.RarityLegendary, 0)
	seedUser(t, db, "seller", 0)
	seedUser(t, db, "buyer", 2000)
	owned := seedOwnership(t, db, "seller", card.ID, 1, 40)
	listing := seedListing(t, db, owned, 1000, models.ListingActive, time.Now().Add(time.Hour))

	svc := newMarketplace(db)
	result, err := svc.Buy(listing.ID, "buyer", "buyer")
	require.NoError(t, err)
	require.Equal(t, int64(1000), result.BuyerPaid)
	require.Equal(t, int64(950), result.SellerProceeds)
	require.Equal(t, int64(50), result.PlatformFee)

	var buyer, seller models.PlatformUser
	require.NoError(t, db.First(&buyer, "external_user_id = ?", "buyer").Error)
	require.NoError(t, db.First(&seller, "external_user_id = ?", "seller").Error)
	require.Equal(t, int64(1000), buyer.Balance)
	require.Equal(t, int64(950), seller.Balance)

	var updated models.MarketplaceListing
	require.NoError(t, db.First(&updated, "id = ?", listing.ID).Error)
	require.Equal(t, models.ListingSold, updated.Status)
	require.Equal(t, "buyer", updated.BuyerID)
	require.NotNil(t, updated.SoldAt)
	require.Equal(t, int64(950), updated.SellerProceeds)

	// Card moved: seller's row gone, buyer holds one copy with reset history.
	var gone models.UserStyle
	err = db.First(&gone, "id = ?", owned.ID).Error
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	var bought models.UserStyle
	require.NoError(t, db.First(&bought, "external_user_id = ? AND style_card_id = ?", "buyer", card.ID).Error)
	require.Equal(t, int64(1), bought.Quantity)
	require.Zero(t, bought.TotalPoints)

	var txs []models.UserTransaction
	require.NoError(t, db.Where("reference = ?", listing.ID).Order("amount ASC").Find(&txs).Error)
	require.Len(t, txs, 2)
	require.Equal(t, int64(-1000), txs[0].Amount)
	require.Equal(t, models.TxMarketPurchase, txs[0].Kind)
	require.Equal(t, int64(950), txs[1].Amount)
	require.Equal(t, models.TxMarketSale, txs[1].Kind)
}

func TestBuyFeeRoundsInPlatformFavor(t *testing.T) {
	db := newTestDB(t)
	card := seedCard(t, db, "Speedster", models.RarityRare, 0)
	seedUser(t, db, "seller", 0)
	seedUser(t, db, "buyer", 1000)
	owned := seedOwnership(t, db, "seller", card.ID, 1, 0)
	listing := seedListing(t, db, owned, 999, models.ListingActive, time.Now().Add(time.Hour))

	result, err := newMarketplace(db).Buy(listing.ID, "buyer", "buyer")
	require.NoError(t, err)
	require.Equal(t, int64(949), result.SellerProceeds) // floor(999 * 0.95)
	require.Equal(t, int64(50), result.PlatformFee)
	require.Equal(t, result.BuyerPaid, result.SellerProceeds+result.PlatformFee)
}

func TestBuyExpiredListingTransitionsAndRefuses(t *testing.T) {
	db := newTestDB(t)
	card := seedCard(t, db, "Playmaker", models.RarityLegendary, 0)
	seedUser(t, db, "seller", 0)
	seedUser(t, db, "buyer", 2000)
	owned := seedOwnership(t, db, "seller", card.ID, 1, 0)
	listing := seedListing(t, db, owned, 500, models.ListingActive, time.Now().Add(-time.Minute))

	_, err := newMarketplace(db).Buy(listing.ID, "buyer", "buyer")
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "LISTING_EXPIRED", appErr.Code)

	var updated models.MarketplaceListing
	require.NoError(t, db.First(&updated, "id = ?", listing.ID).Error)
	require.Equal(t, models.ListingExpired, updated.Status)

	var buyer models.PlatformUser
	require.NoError(t, db.First(&buyer, "external_user_id = ?", "buyer").Error)
	require.Equal(t, int64(2000), buyer.Balance)

	var still models.UserStyle
	require.NoError(t, db.First(&still, "id = ?", owned.ID).Error)
	require.Equal(t, int64(1), still.Quantity)
}

func TestBuyTerminalListingRefused(t *testing.T) {
	db := newTestDB(t)
	card := seedCard(t, db, "Ball Winner", models.RarityCommon, 0)
	seedUser(t, db, "seller", 0)
	seedUser(t, db, "buyer", 1000)
	owned := seedOwnership(t, db, "seller", card.ID, 1, 0)

	for _, status := range []models.ListingStatus{models.ListingSold, models.ListingCancelled, models.ListingExpired} {
		listing := seedListing(t, db, owned, 100, status, time.Now().Add(time.Hour))
		_, err := newMarketplace(db).Buy(listing.ID, "buyer", "buyer")
		var appErr *utils.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, "LISTING_NOT_ACTIVE", appErr.Code)
	}
}

func TestBuyOwnListingRejectedRegardlessOfState(t *testing.T) {
	db := newTestDB(t)
	card := seedCard(t, db, "Speedster", models.RarityRare, 0)
	seedUser(t, db, "seller", 5000)
	owned := seedOwnership(t, db, "seller", card.ID, 1, 0)

	for _, status := range []models.ListingStatus{models.ListingActive, models.ListingCancelled} {
		listing := seedListing(t, db, owned, 100, status, time.Now().Add(time.Hour))
		_, err := newMarketplace(db).Buy(listing.ID, "seller", "seller")
		var appErr *utils.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, 400, appErr.Status)
	}
}

func TestBuyInsufficientBalance(t *testing.T) {
	db := newTestDB(t)
	card := seedCard(t, db, "Playmaker", models.RarityLegendary, 0)
	seedUser(t, db, "seller", 0)
	seedUser(t, db, "buyer", 100)
	owned := seedOwnership(t, db, "seller", card.ID, 1, 0)
	listing := seedListing(t, db, owned, 500, models.ListingActive, time.Now().Add(time.Hour))

	_, err := newMarketplace(db).Buy(listing.ID, "buyer", "buyer")
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "INSUFFICIENT_BALANCE", appErr.Code)

	var updated models.MarketplaceListing
	require.NoError(t, db.First(&updated, "id = ?", listing.ID).Error)
	require.Equal(t, models.ListingActive, updated.Status)
}

func TestBuyDecrementsMultiCopyHolding(t *testing.T) {
	db := newTestDB(t)
	card := seedCard(t, db, "Tiki Taka", models.RarityCommon, 0)
	seedUser(t, db, "seller", 0)
	seedUser(t, db, "buyer", 1000)
	owned := seedOwnership(t, db, "seller", card.ID, 3, 0)
	listing := seedListing(t, db, owned, 100, models.ListingActive, time.Now().Add(time.Hour))

	_, err := newMarketplace(db).Buy(listing.ID, "buyer", "buyer")
	require.NoError(t, err)

	var sellerRow models.UserStyle
	require.NoError(t, db.First(&sellerRow, "id = ?", owned.ID).Error)
	require.Equal(t, int64(2), sellerRow.Quantity)
}

func TestBuyCarryPolicyMovesPointHistory(t *testing.T) {
	db := newTestDB(t)
	card := seedCard(t, db, "Clinical Finisher", models.RarityLegendary, 0)
	seller := seedUser(t, db, "seller", 0)
	seedUser(t, db, "buyer", 1000)
	owned := seedOwnership(t, db, "seller", card.ID, 1, 40)
	require.NoError(t, db.Model(seller).Updates(map[string]interface{}{
		"total_points": 40, "weekly_points": 40,
	}).Error)
	listing := seedListing(t, db, owned, 200, models.ListingActive, time.Now().Add(time.Hour))

	svc := newMarketplace(db)
	svc.HistoryPolicy = TransferCarry
	result, err := svc.Buy(listing.ID, "buyer", "buyer")
	require.NoError(t, err)
	require.Equal(t, TransferCarry, result.HistoryPolicy)

	var bought models.UserStyle
	require.NoError(t, db.First(&bought, "external_user_id = ? AND style_card_id = ?", "buyer", card.ID).Error)
	require.Equal(t, int64(40), bought.TotalPoints)
	require.Equal(t, int64(40), bought.WeeklyPoints)

	var buyerUser, sellerUser models.PlatformUser
	require.NoError(t, db.First(&buyerUser, "external_user_id = ?", "buyer").Error)
	require.NoError(t, db.First(&sellerUser, "external_user_id = ?", "seller").Error)
	require.Equal(t, int64(40), buyerUser.TotalPoints)
	require.Zero(t, sellerUser.TotalPoints)
}

func TestExpireOverdueListings(t *testing.T) {
	db := newTestDB(t)
	card := seedCard(t, db, "Speedster", models.RarityRare, 0)
	seedUser(t, db, "seller", 0)
	owned := seedOwnership(t, db, "seller", card.ID, 3, 0)

	seedListing(t, db, owned, 100, models.ListingActive, time.Now().Add(-time.Hour))
	seedListing(t, db, owned, 100, models.ListingActive, time.Now().Add(-time.Minute))
	fresh := seedListing(t, db, owned, 100, models.ListingActive, time.Now().Add(time.Hour))
	sold := seedListing(t, db, owned, 100, models.ListingSold, time.Now().Add(-time.Hour))

	require.NoError(t, newMarketplace(db).ExpireOverdueListings())

	var expired int64
	db.Model(&models.MarketplaceListing{}).Where("status = ?", models.ListingExpired).Count(&expired)
	require.Equal(t, int64(2), expired)

	var stillActive, stillSold models.MarketplaceListing
	require.NoError(t, db.First(&stillActive, "id = ?", fresh.ID).Error)
	require.NoError(t, db.First(&stillSold, "id = ?", sold.ID).Error)
	require.Equal(t, models.ListingActive, stillActive.Status)
	require.Equal(t, models.ListingSold, stillSold.Status)
}
