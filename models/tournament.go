package models

import "time"

// TournamentStatus: draft → active → completed.
type TournamentStatus string

const (
	TournamentDraft     TournamentStatus = "draft"
	TournamentActive    TournamentStatus = "active"
	TournamentCompleted TournamentStatus = "completed"
)

// Tournament is an entry-fee competition scored over a gameweek span.
// Points accrue per entry from style activations while the tournament
// is active.
type Tournament struct {
	ID            string           `gorm:"primaryKey;type:uuid" json:"id"`
	Name          string           `gorm:"not null" json:"name"`
	Description   string           `gorm:"type:text" json:"description"`
	EntryFee      int64            `json:"entry_fee" gorm:"default:0"` // credits
	PrizePool     string           `json:"prize_pool"`
	Season        string           `gorm:"type:varchar(16)" json:"season"`
	StartGameweek int              `json:"start_gameweek"`
	EndGameweek   int              `json:"end_gameweek"`
	MaxEntries    int              `json:"max_entries" gorm:"default:0"` // 0 = unlimited
	Status        TournamentStatus `gorm:"type:varchar(16);default:'draft';index" json:"status"`
	StartTime     time.Time        `json:"start_time"`
	EndTime       time.Time        `json:"end_time"`

	Entries []TournamentEntry `json:"entries,omitempty" gorm:"foreignKey:TournamentID"`

	// Calculated fields (not stored in DB)
	EntriesCount int64 `json:"entries_count,omitempty" gorm:"-"`

	Timestamps
}

// TournamentEntry is one user's paid participation; same ledger shape as
// UserStyle but scoped to the tournament.
type TournamentEntry struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	TournamentID   string `gorm:"not null;index:idx_tournament_user,unique" json:"tournament_id"`
	ExternalUserID string `gorm:"not null;index:idx_tournament_user,unique" json:"external_user_id"`
	Username       string `json:"username"`

	FeePaid   int64 `json:"fee_paid"`
	Points    int64 `json:"points" gorm:"default:0"`
	FinalRank int   `json:"final_rank" gorm:"default:0"` // 0 = not ranked yet

	JoinedAt time.Time `json:"joined_at" gorm:"autoCreateTime"`

	Timestamps
}
