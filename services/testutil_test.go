package services

import (
	"fmt"
	"path/filepath"
	"testing"

	"style-cards-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a per-test in-memory database to avoid cross-test
// interference.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
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
	))
	return db
}

// newConcurrentTestDB opens a file-backed database for tests that run
// writers in parallel. Shared-cache in-memory sqlite aborts concurrent
// transactions with "table is locked"; a file DB with a busy timeout
// and immediate transactions serializes them instead.
func newConcurrentTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate",
		filepath.Join(t.TempDir(), "test.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
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
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, externalID string, balance int64) *models.PlatformUser {
	t.Helper()
	user := &models.PlatformUser{
		ID:             uuid.NewString(),
		ExternalUserID: externalID,
		Username:       externalID,
		Balance:        balance,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedCard(t *testing.T, db *gorm.DB, name string, rarity models.Rarity, maxSupply int64) *models.StyleCard {
	t.Helper()
	card := &models.StyleCard{
		ID:              uuid.NewString(),
		Name:            name,
		Slug:            name,
		Rarity:          rarity,
		BonusMultiplier: rarity.Multiplier(),
		MaxSupply:       maxSupply,
		IsActive:        true,
	}
	require.NoError(t, db.Create(card).Error)
	return card
}

func seedPackType(t *testing.T, db *gorm.DB, name string, price int64, mode models.DrawMode, slots map[models.Rarity]int) *models.PackType {
	t.Helper()
	cardCount := 0
	for _, n := range slots {
		cardCount += n
	}
	pt := &models.PackType{
		ID:        uuid.NewString(),
		Name:      name,
		Price:     price,
		CardCount: cardCount,
		DrawMode:  mode,
		IsActive:  true,
	}
	require.NoError(t, db.Create(pt).Error)
	i := 0
	for _, rarity := range []models.Rarity{models.RarityCommon, models.RarityRare, models.RarityLegendary, models.RarityMythic} {
		n, ok := slots[rarity]
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
		require.NoError(t, db.Create(&slot).Error)
		pt.Slots = append(pt.Slots, slot)
	}
	return pt
}

func seedOwnership(t *testing.T, db *gorm.DB, userID, cardID string, quantity, points int64) *models.UserStyle {
	t.Helper()
	row := &models.UserStyle{
		ID:             uuid.NewString(),
		ExternalUserID: userID,
		StyleCardID:    cardID,
		Quantity:       quantity,
		TotalPoints:    points,
		WeeklyPoints:   points,
	}
	require.NoError(t, db.Create(row).Error)
	return row
}
