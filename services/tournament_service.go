package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"style-cards-backend/models"
	"style-cards-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TournamentService struct {
	DB *gorm.DB
}

func NewTournamentService(db *gorm.DB) *TournamentService {
	return &TournamentService{DB: db}
}

// CreateTournament creates a tournament in draft state (admin only).
func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	type Req struct {
		Name          string `json:"name" validate:"required"`
		Description   string `json:"description"`
		EntryFee      int64  `json:"entry_fee"`
		PrizePool     string `json:"prize_pool"`
		Season        string `json:"season"`
		StartGameweek int    `json:"start_gameweek"`
		EndGameweek   int    `json:"end_gameweek"`
		MaxEntries    int    `json:"max_entries"`
		StartTime     string `json:"start_time"` // RFC3339
		EndTime       string `json:"end_time"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name is required"})
	}
	if req.EntryFee < 0 {
		return c.Status(400).JSON(fiber.Map{"error": "entry_fee must be non-negative"})
	}
	if req.EndGameweek < req.StartGameweek {
		return c.Status(400).JSON(fiber.Map{"error": "end_gameweek must not be before start_gameweek"})
	}

	var startTime, endTime time.Time
	var err error
	if req.StartTime != "" {
		startTime, err = time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid start_time (use RFC3339)"})
		}
	}
	if req.EndTime != "" {
		endTime, err = time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid end_time (use RFC3339)"})
		}
	}

	tournament := &models.Tournament{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Description:   req.Description,
		EntryFee:      req.EntryFee,
		PrizePool:     req.PrizePool,
		Season:        req.Season,
		StartGameweek: req.StartGameweek,
		EndGameweek:   req.EndGameweek,
		MaxEntries:    req.MaxEntries,
		Status:        models.TournamentDraft,
		StartTime:     startTime,
		EndTime:       endTime,
	}
	if err := s.DB.Create(tournament).Error; err != nil {
		log.Printf("ERROR creating tournament: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}
	return c.Status(201).JSON(tournament)
}

// GetAllTournaments lists tournaments with their entry counts.
func (s *TournamentService) GetAllTournaments(c *fiber.Ctx) error {
	var tournaments []models.Tournament
	query := s.DB.Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&tournaments).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tournaments"})
	}
	for i := range tournaments {
		s.DB.Model(&models.TournamentEntry{}).
			Where("tournament_id = ?", tournaments[i].ID).
			Count(&tournaments[i].EntriesCount)
	}
	return c.JSON(tournaments)
}

func (s *TournamentService) GetTournamentByID(c *fiber.Ctx) error {
	var tournament models.Tournament
	err := s.DB.First(&tournament, "id = ?", c.Params("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	s.DB.Model(&models.TournamentEntry{}).
		Where("tournament_id = ?", tournament.ID).
		Count(&tournament.EntriesCount)
	return c.JSON(tournament)
}

// UpdateTournamentStatus moves a tournament along draft → active → completed.
func (s *TournamentService) UpdateTournamentStatus(c *fiber.Ctx) error {
	type Req struct {
		Status models.TournamentStatus `json:"status" validate:"oneof=draft active completed"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	switch req.Status {
	case models.TournamentDraft, models.TournamentActive, models.TournamentCompleted:
	default:
		return c.Status(400).JSON(fiber.Map{"error": "invalid status"})
	}

	result := s.DB.Model(&models.Tournament{}).
		Where("id = ?", c.Params("id")).
		Update("status", req.Status)
	if result.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB update failed"})
	}
	if result.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
	}

	var updated models.Tournament
	s.DB.First(&updated, "id = ?", c.Params("id"))
	return c.JSON(updated)
}

// EnterTournament joins the authenticated user, debiting the entry fee.
func (s *TournamentService) EnterTournament(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	username, _ := c.Locals("username").(string)
	entry, err := s.Enter(c.Params("id"), userID, username)
	if err != nil {
		return err
	}
	return c.Status(201).JSON(entry)
}

// Enter atomically validates the tournament state, checks capacity and
// duplicates, debits the fee and creates the entry.
func (s *TournamentService) Enter(tournamentID, userID, username string) (*models.TournamentEntry, error) {
	var entry *models.TournamentEntry

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var tournament models.Tournament
		if err := tx.First(&tournament, "id = ?", tournamentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFound("TOURNAMENT_NOT_FOUND", "tournament not found")
			}
			return err
		}
		if tournament.Status != models.TournamentActive {
			return utils.Conflict("TOURNAMENT_NOT_ACTIVE",
				fmt.Sprintf("tournament is %s", tournament.Status))
		}

		var existing int64
		tx.Model(&models.TournamentEntry{}).
			Where("tournament_id = ? AND external_user_id = ?", tournamentID, userID).
			Count(&existing)
		if existing > 0 {
			return utils.Conflict("ALREADY_ENTERED", "user already entered this tournament")
		}

		if tournament.MaxEntries > 0 {
			var count int64
			tx.Model(&models.TournamentEntry{}).
				Where("tournament_id = ?", tournamentID).
				Count(&count)
			if int(count) >= tournament.MaxEntries {
				return utils.Conflict("TOURNAMENT_FULL", "tournament is full")
			}
		}

		user, err := ensureUser(tx, userID, username)
		if err != nil {
			return err
		}

		if tournament.EntryFee > 0 {
			res := tx.Model(&models.PlatformUser{}).
				Where("external_user_id = ? AND balance >= ?", userID, tournament.EntryFee).
				Update("balance", gorm.Expr("balance - ?", tournament.EntryFee))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return utils.Conflict("INSUFFICIENT_BALANCE", "balance is below the entry fee")
			}
			// Record the post-debit balance, not the stale pre-debit read.
			if err := tx.First(user, "external_user_id = ?", userID).Error; err != nil {
				return err
			}
			feeTx := models.UserTransaction{
				ID:             uuid.NewString(),
				ExternalUserID: userID,
				Kind:           models.TxTournamentEntry,
				Amount:         -tournament.EntryFee,
				BalanceAfter:   user.Balance,
				Reference:      tournamentID,
				Note:           tournament.Name,
			}
			if err := tx.Create(&feeTx).Error; err != nil {
				return err
			}
		}

		entry = &models.TournamentEntry{
			ID:             uuid.NewString(),
			TournamentID:   tournamentID,
			ExternalUserID: userID,
			Username:       user.Username,
			FeePaid:        tournament.EntryFee,
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// GetLeaderboard returns a tournament's entries ordered by points with
// ties sharing a rank (completed tournaments keep their finalized ranks).
func (s *TournamentService) GetLeaderboard(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", tournamentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	var entries []models.TournamentEntry
	if err := s.DB.Where("tournament_id = ?", tournamentID).
		Order("points DESC, joined_at ASC").
		Find(&entries).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
	}

	type Row struct {
		models.TournamentEntry
		Rank int `json:"rank"`
	}
	rows := make([]Row, 0, len(entries))
	rank := 0
	var prevPoints int64 = -1
	for i, e := range entries {
		if tournament.Status == models.TournamentCompleted && e.FinalRank > 0 {
			rows = append(rows, Row{TournamentEntry: e, Rank: e.FinalRank})
			continue
		}
		if e.Points != prevPoints {
			rank = i + 1
			prevPoints = e.Points
		}
		rows = append(rows, Row{TournamentEntry: e, Rank: rank})
	}
	return c.JSON(rows)
}

// FinalizeTournament assigns final ranks and completes the tournament
// (admin only).
func (s *TournamentService) FinalizeTournament(c *fiber.Ctx) error {
	tournamentID := c.Params("id")

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var tournament models.Tournament
		if err := tx.First(&tournament, "id = ?", tournamentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFound("TOURNAMENT_NOT_FOUND", "tournament not found")
			}
			return err
		}
		if tournament.Status != models.TournamentActive {
			return utils.Conflict("TOURNAMENT_NOT_ACTIVE", "only active tournaments can be finalized")
		}

		var entries []models.TournamentEntry
		if err := tx.Where("tournament_id = ?", tournamentID).
			Order("points DESC, joined_at ASC").
			Find(&entries).Error; err != nil {
			return err
		}

		rank := 0
		var prevPoints int64 = -1
		for i := range entries {
			if entries[i].Points != prevPoints {
				rank = i + 1
				prevPoints = entries[i].Points
			}
			if err := tx.Model(&entries[i]).Update("final_rank", rank).Error; err != nil {
				return err
			}
		}

		return tx.Model(&tournament).Update("status", models.TournamentCompleted).Error
	})
	if err != nil {
		return err
	}

	var updated models.Tournament
	s.DB.First(&updated, "id = ?", tournamentID)
	return c.JSON(updated)
}
