package services

import (
	"testing"

	"style-cards-backend/models"
	"style-cards-backend/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestIngestPropagatesToEveryOwner(t *testing.T) {
	db := newTestDB(t)
	card := seedCard(t, db, "Clinical Finisher", models.RarityLegendary, 0)

	for _, id := range []string{"owner-1", "owner-2", "owner-3"} {
		seedUser(t, db, id, 0)
		seedOwnership(t, db, id, card.ID, 1, 0)
	}
	// A holder of a different card must not receive points.
	other := seedCard(t, db, "Ball Winner", models.RarityCommon, 0)
	seedUser(t, db, "bystander", 0)
	seedOwnership(t, db, "bystander", other.ID, 1, 0)

	svc := NewActivationService(db)
	act := &models.StyleActivation{
		StyleCardID: card.ID,
		Gameweek:    12,
		Season:      "2025/26",
		Rank:        1,
		Points:      10,
		BonusPoints: 10,
	}
	owners, err := svc.Ingest(act)
	require.NoError(t, err)
	require.Equal(t, int64(3), owners)

	for _, id := range []string{"owner-1", "owner-2", "owner-3"} {
		var owned models.UserStyle
		require.NoError(t, db.First(&owned, "external_user_id = ? AND style_card_id = ?", id, card.ID).Error)
		require.Equal(t, int64(20), owned.TotalPoints)
		require.Equal(t, int64(20), owned.WeeklyPoints)
		require.Equal(t, int64(1), owned.ActivationCount)

		var user models.PlatformUser
		require.NoError(t, db.First(&user, "external_user_id = ?", id).Error)
		require.Equal(t, int64(20), user.TotalPoints)
		require.Equal(t, int64(20), user.WeeklyPoints)
	}

	var bystander models.PlatformUser
	require.NoError(t, db.First(&bystander, "external_user_id = ?", "bystander").Error)
	require.Zero(t, bystander.TotalPoints)

	var fresh models.StyleCard
	require.NoError(t, db.First(&fresh, "id = ?", card.ID).Error)
	require.Equal(t, int64(20), fresh.TotalPoints)
	require.Equal(t, int64(1), fresh.TotalActivations)

	var stored models.StyleActivation
	require.NoError(t, db.First(&stored, "id = ?", act.ID).Error)
	require.Equal(t, int64(3), stored.OwnersReached)
}

func TestIngestSkipsOwnerWithoutUserRow(t *testing.T) {
	db := newTestDB(t)
	card := seedCard(t, db, "Clinical Finisher", models.RarityLegendary, 0)

	seedUser(t, db, "owner-1", 0)
	seedOwnership(t, db, "owner-1", card.ID, 1, 0)
	// Ownership row whose platform user never synced. Its award must
	// roll back whole, not leave a half-updated ledger.
	seedOwnership(t, db, "ghost", card.ID, 1, 0)

	svc := NewActivationService(db)
	owners, err := svc.Ingest(&models.StyleActivation{
		StyleCardID: card.ID,
		Gameweek:    12,
		Season:      "2025/26",
		Rank:        1,
		Points:      10,
		BonusPoints: 10,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), owners)

	var healthy models.UserStyle
	require.NoError(t, db.First(&healthy, "external_user_id = ? AND style_card_id = ?", "owner-1", card.ID).Error)
	require.Equal(t, int64(20), healthy.TotalPoints)

	var orphan models.UserStyle
	require.NoError(t, db.First(&orphan, "external_user_id = ? AND style_card_id = ?", "ghost", card.ID).Error)
	require.Zero(t, orphan.TotalPoints)
	require.Zero(t, orphan.ActivationCount)
}

func TestIngestAccruesIntoActiveTournaments(t *testing.T) {
	db := newTestDB(t)
	card := seedCard(t, db, "Playmaker", models.RarityLegendary, 0)
	seedUser(t, db, "owner-1", 0)
	seedOwnership(t, db, "owner-1", card.ID, 1, 0)

	active := models.Tournament{ID: uuid.NewString(), Name: "GW Cup", Status: models.TournamentActive}
	draft := models.Tournament{ID: uuid.NewString(), Name: "Later Cup", Status: models.TournamentDraft}
	require.NoError(t, db.Create(&active).Error)
	require.NoError(t, db.Create(&draft).Error)
	for _, tournament := range []models.Tournament{active, draft} {
		require.NoError(t, db.Create(&models.TournamentEntry{
			ID:             uuid.NewString(),
			TournamentID:   tournament.ID,
			ExternalUserID: "owner-1",
		}).Error)
	}

	_, err := NewActivationService(db).Ingest(&models.StyleActivation{
		StyleCardID: card.ID,
		Gameweek:    3,
		Season:      "2025/26",
		Rank:        1,
		Points:      15,
	})
	require.NoError(t, err)

	var activeEntry, draftEntry models.TournamentEntry
	require.NoError(t, db.First(&activeEntry, "tournament_id = ?", active.ID).Error)
	require.NoError(t, db.First(&draftEntry, "tournament_id = ?", draft.ID).Error)
	require.Equal(t, int64(15), activeEntry.Points)
	require.Zero(t, draftEntry.Points)
}

func TestIngestRejectsDuplicateTuple(t *testing.T) {
	db := newTestDB(t)
	card := seedCard(t, db, "Speedster", models.RarityRare, 0)
	seedUser(t, db, "owner-1", 0)
	seedOwnership(t, db, "owner-1", card.ID, 1, 0)

	svc := NewActivationService(db)
	first := &models.StyleActivation{
		StyleCardID: card.ID, Gameweek: 5, Season: "2025/26", Rank: 1, Points: 5,
	}
	_, err := svc.Ingest(first)
	require.NoError(t, err)

	dup := &models.StyleActivation{
		StyleCardID: card.ID, Gameweek: 5, Season: "2025/26", Rank: 1, Points: 5,
	}
	_, err = svc.Ingest(dup)
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "DUPLICATE_ACTIVATION", appErr.Code)

	// The failed ingest must not have awarded anything.
	var owned models.UserStyle
	require.NoError(t, db.First(&owned, "external_user_id = ?", "owner-1").Error)
	require.Equal(t, int64(5), owned.TotalPoints)

	var fresh models.StyleCard
	require.NoError(t, db.First(&fresh, "id = ?", card.ID).Error)
	require.Equal(t, int64(1), fresh.TotalActivations)
}

func TestIngestAssignsNextFreeRank(t *testing.T) {
	db := newTestDB(t)
	card := seedCard(t, db, "Clinical Finisher", models.RarityLegendary, 0)

	svc := NewActivationService(db)
	first := &models.StyleActivation{
		StyleCardID: card.ID, Gameweek: 7, Season: "2025/26", Points: 10, MatchID: "m-1",
	}
	second := &models.StyleActivation{
		StyleCardID: card.ID, Gameweek: 7, Season: "2025/26", Points: 20, MatchID: "m-2",
	}
	_, err := svc.Ingest(first)
	require.NoError(t, err)
	_, err = svc.Ingest(second)
	require.NoError(t, err)

	require.Equal(t, 1, first.Rank)
	require.Equal(t, 2, second.Rank)

	// A different gameweek starts its own rank sequence.
	third := &models.StyleActivation{
		StyleCardID: card.ID, Gameweek: 8, Season: "2025/26", Points: 10,
	}
	_, err = svc.Ingest(third)
	require.NoError(t, err)
	require.Equal(t, 1, third.Rank)
}

func TestIngestUnknownCard(t *testing.T) {
	db := newTestDB(t)
	_, err := NewActivationService(db).Ingest(&models.StyleActivation{
		StyleCardID: uuid.NewString(), Gameweek: 1, Season: "2025/26", Points: 10,
	})
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "STYLE_NOT_FOUND", appErr.Code)
}

func TestScoreAndIngestRecordsOneActivationPerMatchedStyle(t *testing.T) {
	db := newTestDB(t)
	finisher := seedCard(t, db, "Clinical Finisher", models.RarityLegendary, 0)
	speedster := seedCard(t, db, "Speedster", models.RarityRare, 0)
	ballWinner := seedCard(t, db, "Ball Winner", models.RarityCommon, 0)
	playmaker := seedCard(t, db, "Playmaker", models.RarityLegendary, 0)

	seedUser(t, db, "owner-1", 0)
	seedOwnership(t, db, "owner-1", finisher.ID, 1, 0)

	svc := NewActivationService(db)
	statline := PlayerStatline{
		PlayerID:           "p-9",
		PlayerName:         "E. Haaland",
		MatchID:            "m-100",
		Gameweek:           12,
		Season:             "2025/26",
		Goals:              2,
		Assists:            1,
		PassAccuracy:       90,
		SuccessfulDribbles: 4,
		KeyPasses:          2,
	}
	created, err := svc.ScoreAndIngest(statline)
	require.NoError(t, err)
	require.Equal(t, 3, created)

	assertActivation := func(cardID string, points, bonus int64) {
		var act models.StyleActivation
		require.NoError(t, db.First(&act, "style_card_id = ? AND match_id = ?", cardID, "m-100").Error)
		require.Equal(t, points, act.Points)
		require.Equal(t, bonus, act.BonusPoints)
	}
	assertActivation(finisher.ID, 20, 20) // legendary doubles the award
	assertActivation(speedster.ID, 5, 2)  // 1.5x bonus truncates
	assertActivation(playmaker.ID, 12, 12)

	var ballWinnerActs int64
	db.Model(&models.StyleActivation{}).Where("style_card_id = ?", ballWinner.ID).Count(&ballWinnerActs)
	require.Zero(t, ballWinnerActs)

	// Owner of the finisher card receives points plus rarity bonus.
	var owned models.UserStyle
	require.NoError(t, db.First(&owned, "external_user_id = ?", "owner-1").Error)
	require.Equal(t, int64(40), owned.TotalPoints)

	// Re-polling the same match must not double-award.
	created, err = svc.ScoreAndIngest(statline)
	require.NoError(t, err)
	require.Zero(t, created)

	require.NoError(t, db.First(&owned, "id = ?", owned.ID).Error)
	require.Equal(t, int64(40), owned.TotalPoints)
}

func TestScoreAndIngestSkipsStylesMissingFromCatalog(t *testing.T) {
	db := newTestDB(t)
	seedCard(t, db, "Clinical Finisher", models.RarityLegendary, 0)
	// No Playmaker card seeded.

	created, err := NewActivationService(db).ScoreAndIngest(PlayerStatline{
		PlayerID: "p-1", MatchID: "m-1", Gameweek: 1, Season: "2025/26",
		Goals: 1, Assists: 1,
	})
	require.NoError(t, err)
	require.Equal(t, 1, created)
}
