package models

import "time"

// TransactionKind classifies wallet movements.
type TransactionKind string

const (
	TxPackPurchase    TransactionKind = "pack_purchase"
	TxMarketPurchase  TransactionKind = "market_purchase"
	TxMarketSale      TransactionKind = "market_sale"
	TxTournamentEntry TransactionKind = "tournament_entry"
	TxWalletSync      TransactionKind = "wallet_sync"
)

// UserTransaction is the append-only credit/debit log. Amount is signed:
// negative for debits, positive for credits.
type UserTransaction struct {
	ID             string          `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string          `gorm:"not null;index" json:"external_user_id"`
	Kind           TransactionKind `gorm:"type:varchar(32);not null;index" json:"kind"`
	Amount         int64           `json:"amount" gorm:"not null"`
	BalanceAfter   int64           `json:"balance_after"`

	// Reference ties the entry to its source record (purchase ID, listing
	// ID, deposit reference) and makes external credits idempotent.
	Reference string `gorm:"index" json:"reference,omitempty"`
	Note      string `json:"note,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
