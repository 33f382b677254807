package models

import "time"

// StyleActivation is a scoring event: one match performance triggering
// one style card. Unique per (card, gameweek, season, rank) so re-ingested
// match data cannot double-award points.
type StyleActivation struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	StyleCardID string `gorm:"not null;index:idx_activation_tuple,unique" json:"style_card_id"`
	Gameweek    int    `gorm:"not null;index:idx_activation_tuple,unique" json:"gameweek"`
	Season      string `gorm:"type:varchar(16);not null;index:idx_activation_tuple,unique" json:"season"`
	Rank        int    `gorm:"not null;index:idx_activation_tuple,unique" json:"rank"`

	PlayerID   string `gorm:"index" json:"player_id"`
	PlayerName string `json:"player_name"`
	MatchID    string `gorm:"index" json:"match_id"`

	Points      int64   `json:"points" gorm:"not null"`
	BonusPoints int64   `json:"bonus_points" gorm:"default:0"`
	Confidence  float64 `json:"confidence"` // [0,1]

	// How many ownership rows the fan-out reached (diagnostic, set after propagation)
	OwnersReached int64 `json:"owners_reached" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	StyleCard StyleCard `json:"style_card,omitempty" gorm:"foreignKey:StyleCardID"`
}

// TotalAward is the amount fanned out to each owner.
func (a *StyleActivation) TotalAward() int64 {
	return a.Points + a.BonusPoints
}
