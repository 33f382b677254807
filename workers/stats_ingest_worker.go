// workers/stats_ingest_worker.go
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

	"style-cards-backend/services"
)

// StatsClient pulls finalized per-match player statlines from the
// external sports-statistics provider.
type StatsClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewStatsClient() *StatsClient {
	baseURL := os.Getenv("STATS_PROVIDER_URL")
	if baseURL == "" {
		log.Fatal("STATS_PROVIDER_URL environment variable is required")
	}
	token := os.Getenv("STATS_PROVIDER_TOKEN")
	if token == "" {
		log.Fatal("STATS_PROVIDER_TOKEN environment variable is required")
	}
	return &StatsClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetFinalizedStatlines fetches statlines for matches finalized since the
// given watermark.
func (c *StatsClient) GetFinalizedStatlines(ctx context.Context, since time.Time) ([]services.PlayerStatline, error) {
	u, err := url.Parse(fmt.Sprintf("%s/api/v1/performances", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	q := u.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	q.Set("status", "finalized")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call stats provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("stats provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Performances []services.PlayerStatline `json:"performances"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode stats provider response: %w", err)
	}
	return response.Performances, nil
}

// PollMatchStats polls the provider and feeds every new statline through
// the scorer into activations. The watermark only advances after a fully
// successful batch, so failed polls are retried over the same window;
// activation-level dedupe makes the retry safe.
func PollMatchStats(ctx context.Context, client *StatsClient, activations *services.ActivationService, pollInterval time.Duration) {
	log.Println("Starting match stats polling...")
	lastSyncTime := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Match stats polling stopped.")
			return
		case <-ticker.C:
			pollStart := time.Now().UTC()

			statlines, err := client.GetFinalizedStatlines(ctx, lastSyncTime)
			if err != nil {
				log.Printf("Error polling match stats: %v", err)
				continue
			}
			if len(statlines) == 0 {
				continue
			}

			created := 0
			failed := false
			for _, st := range statlines {
				n, err := activations.ScoreAndIngest(st)
				if err != nil {
					log.Printf("Error ingesting statline for player %s match %s: %v", st.PlayerID, st.MatchID, err)
					failed = true
					continue
				}
				created += n
			}
			log.Printf("Processed %d statline(s), created %d activation(s)", len(statlines), created)

			if !failed {
				lastSyncTime = pollStart
			}
		}
	}
}
