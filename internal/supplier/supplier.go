package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/XavierBriggs/fortuna/services/arb-scorer/pkg/models"
)

// Client fetches prediction payloads from the model-serving endpoint. When no
// endpoint is configured, or the endpoint is unreachable, it falls back to the
// built-in sample payload so the rest of the pipeline stays exercisable.
type Client struct {
	modelURL   string
	httpClient *http.Client
}

// NewClient creates a prediction supplier client. An empty modelURL means
// sample-only mode.
func NewClient(modelURL string) *Client {
	return &Client{
		modelURL: modelURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// FetchPrediction returns the latest prediction payload for one game
func (c *Client) FetchPrediction(ctx context.Context) (models.Prediction, error) {
	if c.modelURL == "" {
		return SamplePrediction(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.modelURL, bytes.NewReader([]byte("{}")))
	if err != nil {
		return models.Prediction{}, fmt.Errorf("failed to build model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		fmt.Printf("⚠️  could not reach model (%v) - falling back to sample\n", err)
		return SamplePrediction(), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("⚠️  model returned HTTP %d - falling back to sample\n", resp.StatusCode)
		return SamplePrediction(), nil
	}

	var prediction models.Prediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return models.Prediction{}, fmt.Errorf("failed to decode prediction payload: %w", err)
	}

	return prediction, nil
}

// FetchAllPredictions returns prediction payloads for every tracked game.
// Without a configured endpoint this is the single sample game.
func (c *Client) FetchAllPredictions(ctx context.Context) ([]models.Prediction, error) {
	prediction, err := c.FetchPrediction(ctx)
	if err != nil {
		return nil, err
	}
	return []models.Prediction{prediction}, nil
}

// SamplePrediction is the reference Rockets/Knicks payload: one true arb
// (the spread) and two no-edge markets.
func SamplePrediction() models.Prediction {
	open1, open2 := 138, 133
	totalOpen1, totalOpen2 := -110, -105
	mlOpen1, mlOpen2 := -115, 110

	return models.Prediction{
		Game: models.Game{
			Category: "basketball",
			Date:     "2023-01-10T20:00:00Z",
			HomeTeam: "Houston Rockets",
			AwayTeam: "New York Knicks",
		},
		Markets: []models.MarketQuote{
			{
				// True arb: +140/+135, barely moved from open
				MarketType: models.MarketTypeSpread,
				Confidence: 0.65,
				Bookmaker1: "DraftKings",
				Bookmaker2: "ESPNBet",
				Price1:     140,
				Price2:     135,
				OpenPrice1: &open1,
				OpenPrice2: &open2,
				Prediction: "home_team wins by 6",
			},
			{
				// No arb: vig present on both sides
				MarketType: models.MarketTypePointsTotal,
				Confidence: 0.61,
				Bookmaker1: "DraftKings",
				Bookmaker2: "FanDuel",
				Price1:     -110,
				Price2:     -105,
				OpenPrice1: &totalOpen1,
				OpenPrice2: &totalOpen2,
				Prediction: "home_team scores over 110",
			},
			{
				// No arb: implied sum above 1
				MarketType: models.MarketTypeMoneyline,
				Confidence: 0.72,
				Bookmaker1: "DraftKings",
				Bookmaker2: "ESPNBet",
				Price1:     -120,
				Price2:     115,
				OpenPrice1: &mlOpen1,
				OpenPrice2: &mlOpen2,
				Prediction: "home_team wins",
			},
		},
	}
}
