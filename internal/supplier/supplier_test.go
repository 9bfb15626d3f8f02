package supplier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/XavierBriggs/fortuna/services/arb-scorer/pkg/models"
)

func TestFetchPredictionSampleMode(t *testing.T) {
	client := NewClient("")

	prediction, err := client.FetchPrediction(context.Background())
	if err != nil {
		t.Fatalf("FetchPrediction error: %v", err)
	}
	if prediction.HomeTeam != "Houston Rockets" {
		t.Errorf("home team = %s, want Houston Rockets", prediction.HomeTeam)
	}
	if len(prediction.Markets) != 3 {
		t.Errorf("markets = %d, want 3", len(prediction.Markets))
	}
}

func TestFetchPredictionFromEndpoint(t *testing.T) {
	payload := models.Prediction{
		Game: models.Game{
			Category: "hockey",
			Date:     "2023-02-01T19:00:00Z",
			HomeTeam: "Bruins",
			AwayTeam: "Rangers",
		},
		Markets: []models.MarketQuote{
			{
				MarketType: models.MarketTypeMoneyline,
				Confidence: 0.70,
				Bookmaker1: "DraftKings",
				Bookmaker2: "FanDuel",
				Price1:     120,
				Price2:     110,
			},
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	prediction, err := client.FetchPrediction(context.Background())
	if err != nil {
		t.Fatalf("FetchPrediction error: %v", err)
	}
	if prediction.HomeTeam != "Bruins" {
		t.Errorf("home team = %s, want Bruins", prediction.HomeTeam)
	}
	if len(prediction.Markets) != 1 {
		t.Errorf("markets = %d, want 1", len(prediction.Markets))
	}
}

func TestFetchPredictionFallsBackOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	prediction, err := client.FetchPrediction(context.Background())
	if err != nil {
		t.Fatalf("FetchPrediction error: %v", err)
	}
	// Unreachable or erroring model degrades to the sample payload
	if prediction.HomeTeam != "Houston Rockets" {
		t.Errorf("expected sample fallback, got %s", prediction.HomeTeam)
	}
}

func TestSamplePredictionHasOneTrueArb(t *testing.T) {
	sample := SamplePrediction()

	spread := sample.Markets[0]
	if spread.MarketType != models.MarketTypeSpread || spread.Price1 != 140 || spread.Price2 != 135 {
		t.Errorf("first sample market should be the +140/+135 spread, got %+v", spread)
	}
	if spread.OpenPrice1 == nil || *spread.OpenPrice1 != 138 {
		t.Error("spread opening price missing or wrong")
	}
}
