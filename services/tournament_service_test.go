package services

import (
	"testing"

	"style-cards-backend/models"
	"style-cards-backend/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedTournament(t *testing.T, db *gorm.DB, fee int64, maxEntries int, status models.TournamentStatus) *models.Tournament {
	t.Helper()
	tournament := &models.Tournament{
		ID:         uuid.NewString(),
		Name:       "Gameweek Cup",
		EntryFee:   fee,
		MaxEntries: maxEntries,
		Season:     "2025/26",
		Status:     status,
	}
	require.NoError(t, db.Create(tournament).Error)
	return tournament
}

func TestEnterDebitsFeeAndCreatesEntry(t *testing.T) {
	db := newTestDB(t)
	tournament := seedTournament(t, db, 50, 0, models.TournamentActive)
	seedUser(t, db, "user-1", 200)

	entry, err := NewTournamentService(db).Enter(tournament.ID, "user-1", "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(50), entry.FeePaid)
	require.Zero(t, entry.Points)

	var user models.PlatformUser
	require.NoError(t, db.First(&user, "external_user_id = ?", "user-1").Error)
	require.Equal(t, int64(150), user.Balance)

	var feeTx models.UserTransaction
	require.NoError(t, db.First(&feeTx, "external_user_id = ? AND kind = ?", "user-1", models.TxTournamentEntry).Error)
	require.Equal(t, int64(-50), feeTx.Amount)
	require.Equal(t, int64(150), feeTx.BalanceAfter)
	require.Equal(t, tournament.ID, feeTx.Reference)
}

func TestEnterFreeTournamentSkipsWalletLog(t *testing.T) {
	db := newTestDB(t)
	tournament := seedTournament(t, db, 0, 0, models.TournamentActive)
	seedUser(t, db, "user-1", 0)

	_, err := NewTournamentService(db).Enter(tournament.ID, "user-1", "user-1")
	require.NoError(t, err)

	var txs int64
	db.Model(&models.UserTransaction{}).Count(&txs)
	require.Zero(t, txs)
}

func TestEnterRejectsDuplicate(t *testing.T) {
	db := newTestDB(t)
	tournament := seedTournament(t, db, 50, 0, models.TournamentActive)
	seedUser(t, db, "user-1", 500)

	svc := NewTournamentService(db)
	_, err := svc.Enter(tournament.ID, "user-1", "user-1")
	require.NoError(t, err)

	_, err = svc.Enter(tournament.ID, "user-1", "user-1")
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "ALREADY_ENTERED", appErr.Code)

	// The fee must only have been taken once.
	var user models.PlatformUser
	require.NoError(t, db.First(&user, "external_user_id = ?", "user-1").Error)
	require.Equal(t, int64(450), user.Balance)
}

func TestEnterRejectsInactiveTournament(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-1", 500)

	svc := NewTournamentService(db)
	for _, status := range []models.TournamentStatus{models.TournamentDraft, models.TournamentCompleted} {
		tournament := seedTournament(t, db, 50, 0, status)
		_, err := svc.Enter(tournament.ID, "user-1", "user-1")
		var appErr *utils.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, "TOURNAMENT_NOT_ACTIVE", appErr.Code)
	}
}

func TestEnterRejectsWhenFull(t *testing.T) {
	db := newTestDB(t)
	tournament := seedTournament(t, db, 0, 1, models.TournamentActive)
	seedUser(t, db, "user-1", 0)
	seedUser(t, db, "user-2", 0)

	svc := NewTournamentService(db)
	_, err := svc.Enter(tournament.ID, "user-1", "user-1")
	require.NoError(t, err)

	_, err = svc.Enter(tournament.ID, "user-2", "user-2")
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "TOURNAMENT_FULL", appErr.Code)
}

func TestEnterInsufficientBalanceLeavesNoEntry(t *testing.T) {
	db := newTestDB(t)
	tournament := seedTournament(t, db, 100, 0, models.TournamentActive)
	seedUser(t, db, "user-1", 40)

	_, err := NewTournamentService(db).Enter(tournament.ID, "user-1", "user-1")
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "INSUFFICIENT_BALANCE", appErr.Code)

	var entries int64
	db.Model(&models.TournamentEntry{}).Count(&entries)
	require.Zero(t, entries)

	var user models.PlatformUser
	require.NoError(t, db.First(&user, "external_user_id = ?", "user-1").Error)
	require.Equal(t, int64(40), user.Balance)
}

func TestEnterUnknownTournament(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-1", 100)

	_, err := NewTournamentService(db).Enter(uuid.NewString(), "user-1", "user-1")
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "TOURNAMENT_NOT_FOUND", appErr.Code)
}
