package models

import "time"

// UserStyle is the ownership ledger: one row per (user, card) pair.
// Re-acquisition of the same card increments Quantity on the existing
// row rather than creating a second one.
type UserStyle struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"not null;index:idx_user_card,unique" json:"external_user_id"`
	StyleCardID    string `gorm:"not null;index:idx_user_card,unique" json:"style_card_id"`

	Quantity int64 `json:"quantity" gorm:"default:1"`

	// Point history for this holding
	TotalPoints     int64 `json:"total_points" gorm:"default:0"`
	WeeklyPoints    int64 `json:"weekly_points" gorm:"default:0"`
	ActivationCount int64 `json:"activation_count" gorm:"default:0"`

	AcquiredAt time.Time `json:"acquired_at" gorm:"autoCreateTime"`

	StyleCard StyleCard `json:"style_card,omitempty" gorm:"foreignKey:StyleCardID"`

	Timestamps
}
