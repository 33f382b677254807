package services

import (
	"errors"
	"log"

	"style-cards-backend/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// ensureUser fetches the local user row for an external ID, creating it
// on first touch. Idempotent; shared by every service that needs a user.
func ensureUser(tx *gorm.DB, externalUserID, username string) (*models.PlatformUser, error) {
	var user models.PlatformUser
	err := tx.Where("external_user_id = ?", externalUserID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if username == "" {
		username = externalUserID
	}
	user = models.PlatformUser{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Username:       username,
	}
	if err := tx.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetMe returns the authenticated user's profile, creating it on first call.
func (s *UserService) GetMe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	username, _ := c.Locals("username").(string)
	user, err := ensureUser(s.DB, userID, username)
	if err != nil {
		log.Printf("ERROR ensuring user %s: %v", userID, err)
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(user)
}

// GetMyStyles returns the authenticated user's ownership ledger.
func (s *UserService) GetMyStyles(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	var owned []models.UserStyle
	if err := s.DB.Preload("StyleCard").
		Where("external_user_id = ?", userID).
		Order("acquired_at DESC").
		Find(&owned).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch owned styles"})
	}
	return c.JSON(owned)
}

// GetMyTransactions returns the authenticated user's wallet log, newest first.
func (s *UserService) GetMyTransactions(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	var txs []models.UserTransaction
	if err := s.DB.Where("external_user_id = ?", userID).
		Order("created_at DESC").
		Limit(200).
		Find(&txs).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch transactions"})
	}
	return c.JSON(txs)
}

// GetLeaderboard ranks users by cumulative points.
func (s *UserService) GetLeaderboard(c *fiber.Ctx) error {
	return s.leaderboard(c, "total_points")
}

// GetWeeklyLeaderboard ranks users by this gameweek's points.
func (s *UserService) GetWeeklyLeaderboard(c *fiber.Ctx) error {
	return s.leaderboard(c, "weekly_points")
}

func (s *UserService) leaderboard(c *fiber.Ctx, column string) error {
	type Row struct {
		ExternalUserID string `json:"external_user_id"`
		Username       string `json:"username"`
		Points         int64  `json:"points"`
		Rank           int    `json:"rank"`
	}
	var rows []Row
	err := s.DB.Model(&models.PlatformUser{}).
		Select("external_user_id, username, " + column + " as points").
		Order(column + " DESC").
		Limit(100).
		Scan(&rows).Error
	if err != nil {
		log.Printf("ERROR fetching leaderboard: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return c.JSON(rows)
}

// ResetWeeklyPoints zeroes the rolling weekly totals on users and ledger
// rows. Run by the scheduler at gameweek rollover.
func (s *UserService) ResetWeeklyPoints() error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PlatformUser{}).
			Where("weekly_points <> 0").
			Update("weekly_points", 0).Error; err != nil {
			return err
		}
		return tx.Model(&models.UserStyle{}).
			Where("weekly_points <> 0").
			Update("weekly_points", 0).Error
	})
}
