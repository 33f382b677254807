package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"style-cards-backend/models"
	"style-cards-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivationService struct {
	DB *gorm.DB
}

func NewActivationService(db *gorm.DB) *ActivationService {
	return &ActivationService{DB: db}
}

// CreateActivation is the internal scoring endpoint (service-token
// gated). It records an activation and fans points out to every current
// holder of the card, returning the affected-owner count.
func (s *ActivationService) CreateActivation(c *fiber.Ctx) error {
	type Req struct {
		StyleID     string  `json:"style_id" validate:"required,uuid"`
		PlayerID    string  `json:"player_id"`
		PlayerName  string  `json:"player_name"`
		MatchID     string  `json:"match_id"`
		Gameweek    int     `json:"gameweek" validate:"required"`
		Season      string  `json:"season" validate:"required"`
		Rank        int     `json:"rank"`
		Points      int64   `json:"points" validate:"required"`
		BonusPoints int64   `json:"bonus_points"`
		Confidence  float64 `json:"confidence"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.StyleID == "" || req.Season == "" || req.Gameweek < 1 {
		return c.Status(400).JSON(fiber.Map{"error": "style_id, season and gameweek are required"})
	}
	if req.Points < 0 || req.BonusPoints < 0 {
		return c.Status(400).JSON(fiber.Map{"error": "points must be non-negative"})
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		return c.Status(400).JSON(fiber.Map{"error": "confidence must be within [0,1]"})
	}

	act := &models.StyleActivation{
		ID:          uuid.NewString(),
		StyleCardID: req.StyleID,
		PlayerID:    req.PlayerID,
		PlayerName:  req.PlayerName,
		MatchID:     req.MatchID,
		Gameweek:    req.Gameweek,
		Season:      req.Season,
		Rank:        req.Rank,
		Points:      req.Points,
		BonusPoints: req.BonusPoints,
		Confidence:  req.Confidence,
	}
	owners, err := s.Ingest(act)
	if err != nil {
		return err
	}
	return c.Status(201).JSON(fiber.Map{
		"activation":     act,
		"owners_updated": owners,
	})
}

// GetActivations lists a card's activations, newest gameweek first.
func (s *ActivationService) GetActivations(c *fiber.Ctx) error {
	var acts []models.StyleActivation
	query := s.DB.Order("season DESC, gameweek DESC, rank ASC")
	if styleID := c.Query("style_id"); styleID != "" {
		query = query.Where("style_card_id = ?", styleID)
	}
	if err := query.Limit(200).Find(&acts).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch activations"})
	}
	return c.JSON(acts)
}

// Ingest validates and persists an activation, updates the card's
// aggregates, then propagates points to owners. The insert and the
// aggregate bump are atomic; the fan-out is a batch of independent
// per-owner updates (see Propagate).
func (s *ActivationService) Ingest(act *models.StyleActivation) (int64, error) {
	var card models.StyleCard
	if err := s.DB.First(&card, "id = ?", act.StyleCardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, utils.NotFound("STYLE_NOT_FOUND", "style card not found")
		}
		return 0, err
	}

	if act.Rank == 0 {
		rank, err := s.nextRank(act)
		if err != nil {
			return 0, err
		}
		act.Rank = rank
	}
	if act.ID == "" {
		act.ID = uuid.NewString()
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(act).Error; err != nil {
			if isUniqueViolation(err) {
				return utils.Conflict("DUPLICATE_ACTIVATION",
					"activation already recorded for this card, gameweek, season and rank")
			}
			return err
		}
		return tx.Model(&models.StyleCard{}).
			Where("id = ?", card.ID).
			Updates(map[string]interface{}{
				"total_points":      gorm.Expr("total_points + ?", act.TotalAward()),
				"total_activations": gorm.Expr("total_activations + 1"),
			}).Error
	})
	if err != nil {
		return 0, err
	}

	owners := s.Propagate(act)
	if err := s.DB.Model(act).Update("owners_reached", owners).Error; err != nil {
		log.Printf("ERROR recording owners reached for activation %s: %v", act.ID, err)
	}
	return owners, nil
}

// nextRank assigns the next free rank within (card, gameweek, season) so
// multiple activations of one card in the same gameweek stay unique.
func (s *ActivationService) nextRank(act *models.StyleActivation) (int, error) {
	var count int64
	err := s.DB.Model(&models.StyleActivation{}).
		Where("style_card_id = ? AND gameweek = ? AND season = ?",
			act.StyleCardID, act.Gameweek, act.Season).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count) + 1, nil
}

// Propagate fans an activation's points out to every ownership row of
// the card. Each owner is its own small transaction: ledger row, user
// totals and any active tournament entries advance together or not at
// all. A failed owner is logged and skipped so the rest of the
// batch still receives points. Returns the number of owners updated.
func (s *ActivationService) Propagate(act *models.StyleActivation) int64 {
	var owners []models.UserStyle
	if err := s.DB.Where("style_card_id = ?", act.StyleCardID).Find(&owners).Error; err != nil {
		log.Printf("ERROR fetching owners for activation %s: %v", act.ID, err)
		return 0
	}

	award := act.TotalAward()
	var updated int64
	for _, owner := range owners {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.UserStyle{}).
				Where("id = ?", owner.ID).
				Updates(map[string]interface{}{
					"total_points":     gorm.Expr("total_points + ?", award),
					"weekly_points":    gorm.Expr("weekly_points + ?", award),
					"activation_count": gorm.Expr("activation_count + 1"),
				}).Error; err != nil {
				return err
			}
			res := tx.Model(&models.PlatformUser{}).
				Where("external_user_id = ?", owner.ExternalUserID).
				Updates(map[string]interface{}{
					"total_points":  gorm.Expr("total_points + ?", award),
					"weekly_points": gorm.Expr("weekly_points + ?", award),
				})
			if res.Error != nil {
				return res.Error
			}
			// Ledger and user totals move together; an ownership row
			// without a user row must not count as updated.
			if res.RowsAffected == 0 {
				return fmt.Errorf("no user row for owner %s", owner.ExternalUserID)
			}
			// Accrue into any active tournaments the owner has entered.
			return tx.Model(&models.TournamentEntry{}).
				Where("external_user_id = ? AND tournament_id IN (?)",
					owner.ExternalUserID,
					tx.Model(&models.Tournament{}).Select("id").Where("status = ?", models.TournamentActive),
				).
				Update("points", gorm.Expr("points + ?", award)).Error
		})
		if err != nil {
			log.Printf("ERROR propagating activation %s to owner %s: %v", act.ID, owner.ExternalUserID, err)
			continue
		}
		updated++
	}
	return updated
}

// ScoreAndIngest runs the scoring rules over one statline and records an
// activation per matched style. Used by the stats ingestion worker.
// Duplicate (card, gameweek, season, rank) tuples are skipped quietly so
// re-polled matches do not double-award.
func (s *ActivationService) ScoreAndIngest(st PlayerStatline) (created int, err error) {
	for _, match := range EvaluatePerformance(st) {
		var card models.StyleCard
		err := s.DB.First(&card, "name = ? AND is_active = ?", match.StyleName, true).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("scorer matched style %q with no active catalog card, skipping", match.StyleName)
				continue
			}
			return created, err
		}

		// A re-polled match must not award the same performance twice.
		var dup int64
		if err := s.DB.Model(&models.StyleActivation{}).
			Where("style_card_id = ? AND match_id = ? AND player_id = ?", card.ID, st.MatchID, st.PlayerID).
			Count(&dup).Error; err != nil {
			return created, err
		}
		if dup > 0 {
			continue
		}

		act := &models.StyleActivation{
			ID:          uuid.NewString(),
			StyleCardID: card.ID,
			PlayerID:    st.PlayerID,
			PlayerName:  st.PlayerName,
			MatchID:     st.MatchID,
			Gameweek:    st.Gameweek,
			Season:      st.Season,
			Points:      match.Points,
			BonusPoints: RarityBonus(match.Points, card.BonusMultiplier),
			Confidence:  match.Confidence,
		}
		if _, err := s.Ingest(act); err != nil {
			var appErr *utils.AppError
			if errors.As(err, &appErr) && appErr.Code == "DUPLICATE_ACTIVATION" {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
