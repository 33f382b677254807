package models

import (
	"time"

	"gorm.io/gorm"
)

// PlatformUser is the local record for a user of the collectibles
// platform, keyed by the auth provider's external ID. Balance is in
// whole credits; point totals are denormalized from the ownership ledger.
type PlatformUser struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Username       string `gorm:"index;not null" json:"username"`

	Balance int64 `json:"balance" gorm:"default:0"` // credits

	// Denormalized point totals
	TotalPoints  int64 `json:"total_points" gorm:"default:0"`
	WeeklyPoints int64 `json:"weekly_points" gorm:"default:0"`

	// Activity counters
	PacksPurchased int64 `json:"packs_purchased" gorm:"default:0"`

	Timestamps
}

// WalletMirror mirrors wallet deposit state from the payment provider.
// Populated by the wallet sync worker; read-only for request handlers.
type WalletMirror struct {
	ID             string    `gorm:"primaryKey;type:uuid;not null" json:"id"`
	ExternalUserID string    `gorm:"type:uuid;not null;index" json:"external_user_id"`
	Chain          string    `gorm:"type:varchar(64);not null" json:"chain"`
	Token          string    `gorm:"type:varchar(64);not null" json:"token"`
	Address        string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"address"`
	IsActive       bool      `gorm:"not null" json:"is_active"`
	LastSyncedAt   time.Time `gorm:"not null" json:"last_synced_at"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
