// workers/wallet_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"style-cards-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletSyncClient mirrors wallet state and confirmed deposits from the
// payment provider into local balances.
type WalletSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewWalletSyncClient(db *gorm.DB) *WalletSyncClient {
	baseURL := os.Getenv("WALLET_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("WALLET_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("STYLE_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("STYLE_SERVICE_TOKEN environment variable is required for wallet sync")
	}
	return &WalletSyncClient{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WalletDeposit is one confirmed credit from the payment provider.
type WalletDeposit struct {
	ExternalUserID string    `json:"external_user_id"`
	Amount         int64     `json:"amount"` // credits
	Reference      string    `json:"reference"`
	ConfirmedAt    time.Time `json:"confirmed_at"`
}

type walletChangesResponse struct {
	Wallets  []models.WalletMirror `json:"wallets"`
	Deposits []WalletDeposit       `json:"deposits"`
}

// GetWalletChanges fetches wallet rows and confirmed deposits since the
// given watermark.
func (c *WalletSyncClient) GetWalletChanges(ctx context.Context, since time.Time) (*walletChangesResponse, error) {
	u, err := url.Parse(fmt.Sprintf("%s/api/v1/public/wallets", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	q := u.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call wallet service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("wallet service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response walletChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode wallet service response: %w", err)
	}
	return &response, nil
}

// applyDeposit credits one confirmed deposit. The transaction reference
// makes replays idempotent: a deposit already logged is skipped.
func (c *WalletSyncClient) applyDeposit(dep WalletDeposit) error {
	return c.DB.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.UserTransaction{}).
			Where("kind = ? AND reference = ?", models.TxWalletSync, dep.Reference).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		res := tx.Model(&models.PlatformUser{}).
			Where("external_user_id = ?", dep.ExternalUserID).
			Update("balance", gorm.Expr("balance + ?", dep.Amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// User not materialized locally yet; the deposit will be
			// re-delivered on the next poll window.
			return fmt.Errorf("no local user for deposit %s", dep.Reference)
		}

		record := models.UserTransaction{
			ID:             uuid.NewString(),
			ExternalUserID: dep.ExternalUserID,
			Kind:           models.TxWalletSync,
			Amount:         dep.Amount,
			Reference:      dep.Reference,
		}
		return tx.Create(&record).Error
	})
}

// PollWallets mirrors wallet rows and applies confirmed deposits.
func PollWallets(ctx context.Context, client *WalletSyncClient, pollInterval time.Duration) {
	log.Println("Starting wallet polling...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Wallet polling stopped.")
			return
		case <-ticker.C:
			pollStart := time.Now().UTC()

			changes, err := client.GetWalletChanges(ctx, lastSyncTime)
			if err != nil {
				log.Printf("Error polling wallets: %v", err)
				continue
			}

			if len(changes.Wallets) > 0 {
				if err := client.DB.Clauses(
					clause.OnConflict{
						Columns: []clause.Column{{Name: "address"}},
						DoUpdates: clause.AssignmentColumns([]string{
							"external_user_id",
							"chain",
							"token",
							"is_active",
							"last_synced_at",
							"updated_at",
						}),
					},
				).Create(&changes.Wallets).Error; err != nil {
					log.Printf("Failed to upsert %d wallet(s): %v", len(changes.Wallets), err)
					// Retry the same window next tick.
					continue
				}
			}

			failed := false
			for _, dep := range changes.Deposits {
				if err := client.applyDeposit(dep); err != nil {
					log.Printf("Failed to apply deposit %s: %v", dep.Reference, err)
					failed = true
				}
			}

			if !failed {
				lastSyncTime = pollStart
			}
		}
	}
}
