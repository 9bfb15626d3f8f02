package scorer

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/XavierBriggs/fortuna/services/arb-scorer/internal/odds"
	"github.com/XavierBriggs/fortuna/services/arb-scorer/pkg/models"
)

func intPtr(v int) *int { return &v }

func sampleGame() models.Game {
	return models.Game{
		Category: "basketball",
		Date:     "2023-01-10T20:00:00Z",
		HomeTeam: "Houston Rockets",
		AwayTeam: "New York Knicks",
	}
}

// spreadQuote is the reference true arb: +140/+135, barely moved from open
func spreadQuote() models.MarketQuote {
	return models.MarketQuote{
		MarketType: models.MarketTypeSpread,
		Confidence: 0.65,
		Bookmaker1: "DraftKings",
		Bookmaker2: "ESPNBet",
		Price1:     140,
		Price2:     135,
		OpenPrice1: intPtr(138),
		OpenPrice2: intPtr(133),
	}
}

// moneylineQuote has an implied sum above 1: no guaranteed edge
func moneylineQuote() models.MarketQuote {
	return models.MarketQuote{
		MarketType: models.MarketTypeMoneyline,
		Confidence: 0.72,
		Bookmaker1: "DraftKings",
		Bookmaker2: "ESPNBet",
		Price1:     -120,
		Price2:     115,
		OpenPrice1: intPtr(-115),
		OpenPrice2: intPtr(110),
	}
}

func TestScoreTrueArbitrage(t *testing.T) {
	result := Score(spreadQuote(), sampleGame(), DefaultConfig())

	if result.Status != StatusAccepted {
		t.Fatalf("expected accepted, got %s (reason=%s err=%v)", result.Status, result.Reason, result.Err)
	}

	opp := result.Opportunity
	if opp.ProfitScore != 1.0 {
		// arb margin 15.78% saturates the 5% profit cap
		t.Errorf("profit score = %v, want 1.0", opp.ProfitScore)
	}
	if opp.KellyStake != 2922 {
		t.Errorf("kelly stake = %d, want 2922", opp.KellyStake)
	}
	if opp.MarketCeiling != 4761 {
		t.Errorf("market ceiling = %d, want 4761", opp.MarketCeiling)
	}
	if opp.OptimalVolume != 2922 {
		t.Errorf("optimal volume = %d, want 2922 (kelly binds)", opp.OptimalVolume)
	}
	if opp.StakeSide1 != 1446 || opp.StakeSide2 != 1476 {
		t.Errorf("stake split = %d/%d, want 1446/1476", opp.StakeSide1, opp.StakeSide2)
	}
	if opp.GuaranteedProfit != 547 {
		t.Errorf("guaranteed profit = %d, want 547", opp.GuaranteedProfit)
	}
	if math.Abs(opp.RiskScore-0.1534) > 0.0001 {
		t.Errorf("risk score = %v, want 0.1534", opp.RiskScore)
	}
	if math.Abs(opp.LineMovement-0.0037) > 0.0001 {
		t.Errorf("line movement = %v, want 0.0037", opp.LineMovement)
	}
	if opp.HomeTeam != "Houston Rockets" || opp.AwayTeam != "New York Knicks" {
		t.Errorf("game context not passed through: %s vs %s", opp.HomeTeam, opp.AwayTeam)
	}
	if len(opp.Sportsbooks) != 2 {
		t.Fatalf("expected 2 sportsbook entries, got %d", len(opp.Sportsbooks))
	}
	if opp.Sportsbooks[0].Stake != opp.StakeSide1 || opp.Sportsbooks[1].Stake != opp.StakeSide2 {
		t.Error("sportsbook entry stakes do not match the stake split")
	}
}

func TestScoreNoGuaranteedEdge(t *testing.T) {
	// -120/+115 has implied sum > 1: kelly 0, volume 0, dropped at the floor
	result := Score(moneylineQuote(), sampleGame(), DefaultConfig())

	if result.Status != StatusDropped {
		t.Fatalf("expected dropped, got %s", result.Status)
	}
	if result.Reason != DropBelowProfitFloor {
		t.Errorf("drop reason = %s, want %s", result.Reason, DropBelowProfitFloor)
	}
}

func TestScoreVigMarketDropped(t *testing.T) {
	// Both sides carry vig (-110/-105): classic no-arb book
	quote := models.MarketQuote{
		MarketType: models.MarketTypePointsTotal,
		Confidence: 0.61,
		Bookmaker1: "DraftKings",
		Bookmaker2: "FanDuel",
		Price1:     -110,
		Price2:     -105,
	}

	result := Score(quote, sampleGame(), DefaultConfig())
	if result.Status != StatusDropped || result.Reason != DropBelowProfitFloor {
		t.Errorf("expected below_profit_floor drop, got %s/%s", result.Status, result.Reason)
	}
}

func TestScoreIdenticalPricesDropped(t *testing.T) {
	quote := spreadQuote()
	quote.Price2 = quote.Price1
	quote.Confidence = 0.99 // degeneracy wins regardless of confidence

	result := Score(quote, sampleGame(), DefaultConfig())
	if result.Status != StatusDropped || result.Reason != DropIdenticalPrices {
		t.Errorf("expected identical_prices drop, got %s/%s", result.Status, result.Reason)
	}
}

func TestScoreSameBookmakerDropped(t *testing.T) {
	quote := spreadQuote()
	quote.Bookmaker2 = quote.Bookmaker1

	result := Score(quote, sampleGame(), DefaultConfig())
	if result.Status != StatusDropped || result.Reason != DropSameBookmaker {
		t.Errorf("expected same_bookmaker drop, got %s/%s", result.Status, result.Reason)
	}
}

func TestScoreZeroPriceFails(t *testing.T) {
	quote := spreadQuote()
	quote.Price1 = 0

	result := Score(quote, sampleGame(), DefaultConfig())
	if result.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	var invalidErr *odds.InvalidOddsError
	if !errors.As(result.Err, &invalidErr) {
		t.Errorf("expected *odds.InvalidOddsError, got %v", result.Err)
	}
}

func TestScoreMissingBookmakerFails(t *testing.T) {
	quote := spreadQuote()
	quote.Bookmaker2 = ""

	// Empty name differs from the other side so the degeneracy check passes;
	// the structural validation must still reject it
	result := Score(quote, sampleGame(), DefaultConfig())
	if result.Status != StatusFailed {
		t.Errorf("expected failed, got %s", result.Status)
	}
}

func TestScoreMissingOpenPricesAssumesZeroMovement(t *testing.T) {
	quote := spreadQuote()
	quote.OpenPrice1 = nil
	quote.OpenPrice2 = nil

	result := Score(quote, sampleGame(), DefaultConfig())
	if result.Status != StatusAccepted {
		t.Fatalf("expected accepted, got %s", result.Status)
	}
	if result.Opportunity.LineMovement != 0 {
		t.Errorf("line movement = %v, want 0 without opening prices", result.Opportunity.LineMovement)
	}
	// Full headroom: ceiling = trigger_threshold * sensitivity
	if result.Opportunity.MarketCeiling != 7500 {
		t.Errorf("market ceiling = %d, want 7500", result.Opportunity.MarketCeiling)
	}
}

func TestScoreIdempotent(t *testing.T) {
	first := Score(spreadQuote(), sampleGame(), DefaultConfig())
	second := Score(spreadQuote(), sampleGame(), DefaultConfig())

	if !reflect.DeepEqual(first, second) {
		t.Error("scoring the same quote twice produced different results")
	}
}

func TestScoreProperties(t *testing.T) {
	// Bounds, stake conservation, three-way minimum, floor enforcement across
	// a spread of price pairs
	cfg := DefaultConfig()
	game := sampleGame()

	pricePairs := [][2]int{
		{140, 135}, {120, 110}, {105, 102}, {250, 230},
		{-110, -105}, {-120, 115}, {150, -130}, {-200, 250},
		{100, -100}, {400, 380},
	}

	for _, pair := range pricePairs {
		quote := models.MarketQuote{
			MarketType: models.MarketTypeSpread,
			Confidence: 0.70,
			Bookmaker1: "DraftKings",
			Bookmaker2: "FanDuel",
			Price1:     pair[0],
			Price2:     pair[1],
		}

		result := Score(quote, game, cfg)
		if result.Status != StatusAccepted {
			continue
		}
		opp := result.Opportunity

		if opp.ProfitScore < 0 || opp.ProfitScore > 1 {
			t.Errorf("prices %v: profit score %v out of [0,1]", pair, opp.ProfitScore)
		}
		if opp.RiskScore < 0 || opp.RiskScore > 1 {
			t.Errorf("prices %v: risk score %v out of [0,1]", pair, opp.RiskScore)
		}
		if diff := opp.StakeSide1 + opp.StakeSide2 - opp.OptimalVolume; diff < -1 || diff > 1 {
			t.Errorf("prices %v: stakes %d+%d stray from volume %d by more than 1",
				pair, opp.StakeSide1, opp.StakeSide2, opp.OptimalVolume)
		}
		if opp.KellyStake > 0 {
			if opp.OptimalVolume > opp.KellyStake {
				t.Errorf("prices %v: volume %d exceeds kelly %d", pair, opp.OptimalVolume, opp.KellyStake)
			}
			if opp.OptimalVolume > opp.MarketCeiling {
				t.Errorf("prices %v: volume %d exceeds ceiling %d", pair, opp.OptimalVolume, opp.MarketCeiling)
			}
		}
		if float64(opp.GuaranteedProfit) < cfg.MinProfitFloor {
			t.Errorf("prices %v: accepted profit %d below floor %.0f", pair, opp.GuaranteedProfit, cfg.MinProfitFloor)
		}
	}
}

func TestScoreGameConfidenceGate(t *testing.T) {
	cfg := DefaultConfig()
	game := sampleGame()

	lowConf := spreadQuote()
	lowConf.Confidence = 0.50
	results := ScoreGame(game, []models.MarketQuote{lowConf}, cfg)
	if results[0].Status != StatusDropped || results[0].Reason != DropLowConfidence {
		t.Errorf("confidence 0.50: expected below_confidence_threshold drop, got %s/%s",
			results[0].Status, results[0].Reason)
	}

	// Boundary is inclusive: exactly at the threshold passes
	atThreshold := spreadQuote()
	atThreshold.Confidence = 0.60
	results = ScoreGame(game, []models.MarketQuote{atThreshold}, cfg)
	if results[0].Status != StatusAccepted {
		t.Errorf("confidence 0.60: expected accepted, got %s/%s", results[0].Status, results[0].Reason)
	}
}

func TestScoreGameIsolatesFailures(t *testing.T) {
	// One malformed market must not abort its siblings
	broken := spreadQuote()
	broken.MarketType = models.MarketTypeMoneyline
	broken.Price1 = 0

	results := ScoreGame(sampleGame(), []models.MarketQuote{broken, spreadQuote()}, DefaultConfig())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != StatusFailed {
		t.Errorf("broken market: expected failed, got %s", results[0].Status)
	}
	if results[1].Status != StatusAccepted {
		t.Errorf("valid market: expected accepted, got %s", results[1].Status)
	}

	accepted := Accepted(results)
	if len(accepted) != 1 {
		t.Errorf("expected 1 accepted opportunity, got %d", len(accepted))
	}
}

func TestScoreGameSamplePayload(t *testing.T) {
	// From the three-market sample only the spread survives: the moneyline
	// and the total have no guaranteed edge
	markets := []models.MarketQuote{
		spreadQuote(),
		{
			MarketType: models.MarketTypePointsTotal,
			Confidence: 0.61,
			Bookmaker1: "DraftKings",
			Bookmaker2: "FanDuel",
			Price1:     -110,
			Price2:     -105,
			OpenPrice1: intPtr(-110),
			OpenPrice2: intPtr(-105),
		},
		moneylineQuote(),
	}

	accepted := Accepted(ScoreGame(sampleGame(), markets, DefaultConfig()))
	if len(accepted) != 1 {
		t.Fatalf("expected 1 accepted opportunity, got %d", len(accepted))
	}
	if accepted[0].MarketType != models.MarketTypeSpread {
		t.Errorf("accepted market = %s, want spread", accepted[0].MarketType)
	}
}

func TestScoreNodeKeepsNonArbs(t *testing.T) {
	node, err := ScoreNode(moneylineQuote(), sampleGame(), DefaultConfig())
	if err != nil {
		t.Fatalf("ScoreNode error: %v", err)
	}
	if node.ProfitScore != 0 {
		t.Errorf("non-arb profit score = %v, want 0", node.ProfitScore)
	}
	if node.Volume != 0 {
		t.Errorf("non-arb volume = %d, want 0", node.Volume)
	}
	if len(node.Sportsbooks) != 2 {
		t.Errorf("expected 2 sportsbook entries, got %d", len(node.Sportsbooks))
	}
}

func TestScoreNodeTrueArb(t *testing.T) {
	node, err := ScoreNode(spreadQuote(), sampleGame(), DefaultConfig())
	if err != nil {
		t.Fatalf("ScoreNode error: %v", err)
	}
	if node.ProfitScore != 1.0 {
		t.Errorf("profit score = %v, want 1.0", node.ProfitScore)
	}
	if node.Volume != 2922 {
		t.Errorf("volume = %d, want 2922", node.Volume)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*ScoringConfig)
	}{
		{"weights not summing to 1", func(c *ScoringConfig) { c.WeightConfidence = 0.50 }},
		{"zero bankroll", func(c *ScoringConfig) { c.Bankroll = 0 }},
		{"negative bankroll", func(c *ScoringConfig) { c.Bankroll = -100 }},
		{"kelly fraction above 1", func(c *ScoringConfig) { c.KellyFraction = 1.5 }},
		{"zero kelly fraction", func(c *ScoringConfig) { c.KellyFraction = 0 }},
		{"bankroll cap above 1", func(c *ScoringConfig) { c.BankrollCapPct = 1.2 }},
		{"negative profit floor", func(c *ScoringConfig) { c.MinProfitFloor = -1 }},
		{"zero trigger threshold", func(c *ScoringConfig) { c.TriggerThreshold = 0 }},
		{"zero profit cap", func(c *ScoringConfig) { c.ProfitCap = 0 }},
		{"zero arb risk cap", func(c *ScoringConfig) { c.ArbRiskCap = 0 }},
		{"zero exposure cap", func(c *ScoringConfig) { c.ExposureCap = 0 }},
		{"missing sensitivity", func(c *ScoringConfig) { delete(c.Sensitivity, models.MarketTypeSpread) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
