package models

import "time"

// DrawMode controls whether one pack may contain the same card twice.
type DrawMode string

const (
	DrawWithReplacement    DrawMode = "with_replacement"
	DrawWithoutReplacement DrawMode = "without_replacement"
)

// PackType is a priced bundle definition. The rarity distribution lives
// in child PackTypeSlot rows; the sum of slot counts must equal CardCount.
type PackType struct {
	ID        string   `gorm:"primaryKey;type:uuid" json:"id"`
	Name      string   `gorm:"uniqueIndex;not null" json:"name"`
	Price     int64    `json:"price" gorm:"not null"` // credits per pack
	CardCount int      `json:"card_count" gorm:"not null"`
	DrawMode  DrawMode `json:"draw_mode" gorm:"type:varchar(24);default:'with_replacement'"`
	IsActive  bool     `json:"is_active" gorm:"default:true"`

	Slots []PackTypeSlot `json:"slots,omitempty" gorm:"foreignKey:PackTypeID"`

	Timestamps
}

// PackTypeSlot holds how many cards of one rarity a pack yields.
type PackTypeSlot struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	PackTypeID string `gorm:"not null;index" json:"pack_type_id"`
	Rarity     Rarity `gorm:"type:varchar(16);not null" json:"rarity"`
	Count      int    `json:"count" gorm:"not null"`
	SortOrder  int    `json:"sort_order" gorm:"column:sort_order;default:0"`
}

// PackPurchase records one payment for N packs of a type. Immutable once
// committed; granted cards hang off PackPurchaseCard rows so the reveal
// is deterministic rather than inferred from timestamps.
type PackPurchase struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"not null;index" json:"external_user_id"`
	PackTypeID     string `gorm:"not null;index" json:"pack_type_id"`
	PackTypeName   string `json:"pack_type_name"`
	Quantity       int    `json:"quantity" gorm:"not null"`
	UnitPrice      int64  `json:"unit_price" gorm:"not null"`
	TotalCost      int64  `json:"total_cost" gorm:"not null"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	Cards []PackPurchaseCard `json:"cards,omitempty" gorm:"foreignKey:PackPurchaseID"`
}

// PackPurchaseCard links a granted card to the purchase that minted it.
type PackPurchaseCard struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	PackPurchaseID string `gorm:"not null;index" json:"pack_purchase_id"`
	StyleCardID    string `gorm:"not null;index" json:"style_card_id"`
	PackIndex      int    `json:"pack_index"` // which pack within the purchase (0-based)
	Position       int    `json:"position"`   // draw order within the pack

	StyleCard StyleCard `json:"style_card,omitempty" gorm:"foreignKey:StyleCardID"`
}
