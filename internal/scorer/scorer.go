package scorer

import (
	"fmt"
	"math"
	"sync"

	"github.com/XavierBriggs/fortuna/services/arb-scorer/internal/odds"
	"github.com/XavierBriggs/fortuna/services/arb-scorer/pkg/models"
)

// Status classifies the outcome of scoring one market
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusDropped  Status = "dropped" // expected business outcome, not an error
	StatusFailed   Status = "failed"  // structural error in the quote itself
)

// DropReason explains why a market produced no opportunity
type DropReason string

const (
	DropIdenticalPrices  DropReason = "identical_prices"
	DropSameBookmaker    DropReason = "same_bookmaker"
	DropLowConfidence    DropReason = "below_confidence_threshold"
	DropBelowProfitFloor DropReason = "below_profit_floor"
)

// MarketResult is the per-market scoring outcome. Soft drops and structural
// failures are kept distinct so callers never confuse a data error with the
// expected "no qualifying opportunity" case.
type MarketResult struct {
	MarketType  models.MarketType
	Status      Status
	Reason      DropReason
	Err         error
	Opportunity *models.ScoredOpportunity
}

// stakes holds the full-precision intermediate computation for one market
type stakes struct {
	impliedProb1     float64
	impliedProb2     float64
	arbSum           float64
	arbMargin        float64
	lineMovement     float64
	marketCeiling    int
	kellyStake       int
	optimalVolume    int
	stake1           int
	stake2           int
	guaranteedProfit int
}

// Score runs the volume-optimization pipeline on a single market. The
// confidence gate is a batch-level prerequisite (see ScoreGame) and is not
// re-checked here.
func Score(quote models.MarketQuote, game models.Game, cfg ScoringConfig) MarketResult {
	// Degeneracy checks: soft drops, likely upstream data errors
	if quote.Price1 == quote.Price2 {
		return MarketResult{MarketType: quote.MarketType, Status: StatusDropped, Reason: DropIdenticalPrices}
	}
	if quote.Bookmaker1 == quote.Bookmaker2 {
		return MarketResult{MarketType: quote.MarketType, Status: StatusDropped, Reason: DropSameBookmaker}
	}

	s, err := computeStakes(quote, cfg)
	if err != nil {
		return MarketResult{MarketType: quote.MarketType, Status: StatusFailed, Err: err}
	}

	// Profit floor gate: markets that cannot lock in the minimum profit are
	// expected, frequent outcomes - dropped, not errored
	if float64(s.guaranteedProfit) < cfg.MinProfitFloor {
		return MarketResult{MarketType: quote.MarketType, Status: StatusDropped, Reason: DropBelowProfitFloor}
	}

	profitScore, riskScore := scoreQuality(quote.Confidence, s, cfg)

	opp := &models.ScoredOpportunity{
		Category:         game.Category,
		Date:             game.Date,
		HomeTeam:         game.HomeTeam,
		AwayTeam:         game.AwayTeam,
		MarketType:       quote.MarketType,
		Confidence:       quote.Confidence,
		ProfitScore:      round4(profitScore),
		RiskScore:        round4(riskScore),
		OptimalVolume:    s.optimalVolume,
		StakeSide1:       s.stake1,
		StakeSide2:       s.stake2,
		GuaranteedProfit: s.guaranteedProfit,
		LineMovement:     round4(s.lineMovement),
		MarketCeiling:    s.marketCeiling,
		KellyStake:       s.kellyStake,
		Sportsbooks: []models.SportsbookEntry{
			{Name: quote.Bookmaker1, Odds: quote.Price1, Stake: s.stake1},
			{Name: quote.Bookmaker2, Odds: quote.Price2, Stake: s.stake2},
		},
	}

	return MarketResult{MarketType: quote.MarketType, Status: StatusAccepted, Opportunity: opp}
}

// ScoreGame scores every market of one game. The confidence gate runs here,
// before any arithmetic, and markets are scored concurrently - each one is
// independent and the inputs are immutable values. Results come back in input
// order.
func ScoreGame(game models.Game, markets []models.MarketQuote, cfg ScoringConfig) []MarketResult {
	results := make([]MarketResult, len(markets))

	var wg sync.WaitGroup
	for i, quote := range markets {
		if quote.Confidence < cfg.MinConfidence {
			results[i] = MarketResult{MarketType: quote.MarketType, Status: StatusDropped, Reason: DropLowConfidence}
			continue
		}

		wg.Add(1)
		go func(i int, quote models.MarketQuote) {
			defer wg.Done()
			results[i] = Score(quote, game, cfg)
		}(i, quote)
	}
	wg.Wait()

	return results
}

// Accepted extracts the accepted opportunities from a batch of results
func Accepted(results []MarketResult) []models.ScoredOpportunity {
	opportunities := make([]models.ScoredOpportunity, 0, len(results))
	for _, r := range results {
		if r.Status == StatusAccepted {
			opportunities = append(opportunities, *r.Opportunity)
		}
	}
	return opportunities
}

// ScoreNode scores one market without the confidence or profit-floor gates and
// maps it to the frontend node shape. Non-arb markets come back with zero
// volume and zero profit score rather than being dropped.
func ScoreNode(quote models.MarketQuote, game models.Game, cfg ScoringConfig) (models.Node, error) {
	if quote.Price1 == quote.Price2 {
		return models.Node{}, fmt.Errorf("identical prices (%d) on both sides", quote.Price1)
	}
	if quote.Bookmaker1 == quote.Bookmaker2 {
		return models.Node{}, fmt.Errorf("same bookmaker (%s) on both sides", quote.Bookmaker1)
	}

	s, err := computeStakes(quote, cfg)
	if err != nil {
		return models.Node{}, err
	}

	profitScore, riskScore := scoreQuality(quote.Confidence, s, cfg)

	return models.Node{
		Category:    game.Category,
		HomeTeam:    game.HomeTeam,
		AwayTeam:    game.AwayTeam,
		ProfitScore: round4(profitScore),
		RiskScore:   round4(riskScore),
		Confidence:  quote.Confidence,
		Volume:      s.optimalVolume,
		Date:        game.Date,
		MarketType:  quote.MarketType,
		Sportsbooks: []models.SportsbookEntry{
			{Name: quote.Bookmaker1, Odds: quote.Price1, Stake: s.stake1},
			{Name: quote.Bookmaker2, Odds: quote.Price2, Stake: s.stake2},
		},
	}, nil
}

// computeStakes runs the numeric pipeline: decimal odds, arb margin, line
// movement, market ceiling, fractional Kelly, three-way volume minimum,
// proportional split, guaranteed profit. All intermediates stay full precision.
func computeStakes(quote models.MarketQuote, cfg ScoringConfig) (stakes, error) {
	var s stakes

	if quote.Bookmaker1 == "" || quote.Bookmaker2 == "" {
		return s, fmt.Errorf("market %s: missing bookmaker name", quote.MarketType)
	}
	sensitivity, ok := cfg.Sensitivity[quote.MarketType]
	if !ok {
		return s, fmt.Errorf("unknown market type: %q", quote.MarketType)
	}

	dec1, err := odds.ToDecimal(quote.Price1)
	if err != nil {
		return s, fmt.Errorf("market %s side 1: %w", quote.MarketType, err)
	}
	dec2, err := odds.ToDecimal(quote.Price2)
	if err != nil {
		return s, fmt.Errorf("market %s side 2: %w", quote.MarketType, err)
	}
	s.impliedProb1, _ = odds.ImpliedProbability(quote.Price1)
	s.impliedProb2, _ = odds.ImpliedProbability(quote.Price2)

	s.arbSum = 1.0/dec1 + 1.0/dec2
	s.arbMargin = 1.0 - s.arbSum // > 0 means a riskless two-sided position exists

	// Line movement: larger of the two sides' implied-probability drift from
	// open. Missing opening prices mean open defaults to current (zero drift).
	move1, err := sideMovement(quote.Price1, quote.OpenPrice1, s.impliedProb1)
	if err != nil {
		return s, fmt.Errorf("market %s side 1: %w", quote.MarketType, err)
	}
	move2, err := sideMovement(quote.Price2, quote.OpenPrice2, s.impliedProb2)
	if err != nil {
		return s, fmt.Errorf("market %s side 2: %w", quote.MarketType, err)
	}
	s.lineMovement = math.Max(move1, move2)

	// Market ceiling: recent movement eats into the headroom left before this
	// position is assumed to move the line itself. The floor keeps the ceiling
	// nonzero after large drift.
	headroom := math.Max(cfg.TriggerThreshold-s.lineMovement*0.5, 0.001)
	s.marketCeiling = int(math.Round(headroom * sensitivity))

	// Fractional Kelly against the binding (smaller payout) side
	if s.arbMargin > 0 {
		bindingDecimal := math.Min(dec1, dec2)
		if bindingDecimal-1.0 != 0 {
			fullKelly := s.arbMargin / (bindingDecimal - 1.0)
			s.kellyStake = int(math.Round(fullKelly * cfg.KellyFraction * cfg.Bankroll))
		}
	}

	// Hard three-way minimum: whichever constraint binds tightest wins
	if s.kellyStake > 0 {
		bankrollCap := int(math.Round(cfg.Bankroll * cfg.BankrollCapPct))
		s.optimalVolume = s.kellyStake
		if s.marketCeiling < s.optimalVolume {
			s.optimalVolume = s.marketCeiling
		}
		if bankrollCap < s.optimalVolume {
			s.optimalVolume = bankrollCap
		}
	}

	// Proportional split equalizes payout on either outcome up to rounding;
	// the realized minimum payout minus volume is the true guaranteed profit
	if s.optimalVolume > 0 && s.arbSum > 0 {
		volume := float64(s.optimalVolume)
		s.stake1 = int(math.Round(volume * (1.0 / dec1) / s.arbSum))
		s.stake2 = int(math.Round(volume * (1.0 / dec2) / s.arbSum))
		minPayout := math.Min(float64(s.stake1)*dec1, float64(s.stake2)*dec2)
		s.guaranteedProfit = int(math.Round(minPayout - volume))
	}

	return s, nil
}

// sideMovement measures one side's implied-probability drift from open to current
func sideMovement(current int, open *int, currentIP float64) (float64, error) {
	if open == nil || *open == current {
		return 0, nil
	}
	openIP, err := odds.ImpliedProbability(*open)
	if err != nil {
		return 0, err
	}
	return math.Abs(currentIP - openIP), nil
}

// scoreQuality computes the normalized profit and composite risk scores
func scoreQuality(confidence float64, s stakes, cfg ScoringConfig) (profitScore, riskScore float64) {
	if s.arbMargin > 0 {
		profitScore = clamp(s.arbMargin/cfg.ProfitCap, 0, 1)
	}

	confidenceRisk := 1.0 - confidence

	totalImplied := s.impliedProb1 + s.impliedProb2
	arbValidityRisk := 0.0
	if totalImplied >= 1.0 {
		arbValidityRisk = clamp((totalImplied-1.0)/cfg.ArbRiskCap, 0, 1)
	}

	exposureRatio := cfg.ExposureCap
	if s.guaranteedProfit > 0 {
		exposureRatio = float64(s.optimalVolume) / float64(s.guaranteedProfit)
	}
	marketImpactRisk := clamp(exposureRatio/cfg.ExposureCap, 0, 1)

	riskScore = cfg.WeightConfidence*confidenceRisk +
		cfg.WeightArbValidity*arbValidityRisk +
		cfg.WeightMktImpact*marketImpactRisk

	return profitScore, riskScore
}

func clamp(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// round4 rounds to 4 decimal places for display stability
func round4(val float64) float64 {
	return math.Round(val*10000) / 10000
}
