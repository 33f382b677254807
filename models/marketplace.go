package models

import "time"

// ListingStatus is the marketplace listing state machine:
// ACTIVE → SOLD | CANCELLED | EXPIRED. All three right-hand states are
// terminal.
type ListingStatus string

const (
	ListingActive    ListingStatus = "ACTIVE"
	ListingSold      ListingStatus = "SOLD"
	ListingCancelled ListingStatus = "CANCELLED"
	ListingExpired   ListingStatus = "EXPIRED"
)

// Terminal reports whether no further transition is allowed.
func (s ListingStatus) Terminal() bool {
	return s == ListingSold || s == ListingCancelled || s == ListingExpired
}

// MarketplaceListing offers one owned card instance for resale.
type MarketplaceListing struct {
	ID             string        `gorm:"primaryKey;type:uuid" json:"id"`
	UserStyleID    string        `gorm:"not null;index" json:"user_style_id"`
	StyleCardID    string        `gorm:"not null;index" json:"style_card_id"`
	SellerID       string        `gorm:"not null;index" json:"seller_id"` // external user ID
	Price          int64         `json:"price" gorm:"not null"`           // credits
	Status         ListingStatus `gorm:"type:varchar(16);not null;default:'ACTIVE';index" json:"status"`
	ExpiresAt      time.Time     `gorm:"not null;index" json:"expires_at"`
	BuyerID        string        `gorm:"index" json:"buyer_id,omitempty"`
	SoldAt         *time.Time    `json:"sold_at,omitempty"`
	CancelledAt    *time.Time    `json:"cancelled_at,omitempty"`
	SellerProceeds int64         `json:"seller_proceeds,omitempty"` // price minus platform fee, set on sale

	StyleCard StyleCard `json:"style_card,omitempty" gorm:"foreignKey:StyleCardID"`

	Timestamps
}
