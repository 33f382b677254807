package models

import (
	"time"

	"gorm.io/gorm"
)

// Rarity tiers for style cards. Rarity drives both draw distribution
// inside packs and the bonus multiplier applied to activations.
type Rarity string

const (
	RarityCommon    Rarity = "COMMON"
	RarityRare      Rarity = "RARE"
	RarityLegendary Rarity = "LEGENDARY"
	RarityMythic    Rarity = "MYTHIC"
)

// RarityMultipliers maps each tier to its scoring multiplier.
var RarityMultipliers = map[Rarity]float64{
	RarityCommon:    1.0,
	RarityRare:      1.5,
	RarityLegendary: 2.0,
	RarityMythic:    3.0,
}

// Multiplier returns the scoring multiplier for a rarity (1.0 for unknown tiers).
func (r Rarity) Multiplier() float64 {
	if m, ok := RarityMultipliers[r]; ok {
		return m
	}
	return 1.0
}

// Valid reports whether r is one of the four known tiers.
func (r Rarity) Valid() bool {
	_, ok := RarityMultipliers[r]
	return ok
}

// StyleCard is a catalog-defined collectible template (not an owned
// instance). Immutable after seeding except CurrentSupply and the
// activation aggregates.
type StyleCard struct {
	ID              string  `gorm:"primaryKey;type:uuid" json:"id"`
	Name            string  `gorm:"uniqueIndex;not null" json:"name"`
	Slug            string  `gorm:"uniqueIndex;not null" json:"slug"`
	Rarity          Rarity  `gorm:"type:varchar(16);not null;index" json:"rarity"`
	Category        string  `gorm:"type:varchar(32);index" json:"category"` // e.g. attacking, defending, playmaking
	Description     string  `gorm:"type:text" json:"description"`
	BasePoints      int64   `json:"base_points" gorm:"default:0"`
	BonusMultiplier float64 `json:"bonus_multiplier" gorm:"default:1.0"`
	ArtworkURL      string  `gorm:"type:text" json:"artwork_url"`

	// Supply control. MaxSupply == 0 means uncapped.
	MaxSupply     int64 `json:"max_supply" gorm:"default:0"`
	CurrentSupply int64 `json:"current_supply" gorm:"default:0"`

	// Activation aggregates (admin/scoring driven)
	TotalPoints      int64 `json:"total_points" gorm:"default:0"`
	TotalActivations int64 `json:"total_activations" gorm:"default:0"`

	IsActive bool `json:"is_active" gorm:"default:true;index"`

	Timestamps
}

// SupplyAvailable reports whether another instance of this card may be minted.
func (c *StyleCard) SupplyAvailable() bool {
	return c.MaxSupply == 0 || c.CurrentSupply < c.MaxSupply
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
