package scorer

import (
	"fmt"
	"math"

	"github.com/XavierBriggs/fortuna/services/arb-scorer/pkg/models"
)

// weightTolerance bounds floating-point drift when checking the risk weights
const weightTolerance = 1e-9

// ScoringConfig holds the process-wide scoring policy. It is assembled once at
// startup, validated, and never mutated afterwards.
type ScoringConfig struct {
	MinConfidence    float64
	Bankroll         float64
	KellyFraction    float64
	BankrollCapPct   float64
	MinProfitFloor   float64
	TriggerThreshold float64

	// USD depth per unit of implied-probability movement, per market type
	Sensitivity map[models.MarketType]float64

	ProfitCap   float64
	ArbRiskCap  float64
	ExposureCap float64

	WeightConfidence  float64
	WeightArbValidity float64
	WeightMktImpact   float64
}

// DefaultConfig returns the production scoring defaults
func DefaultConfig() ScoringConfig {
	return ScoringConfig{
		MinConfidence:    0.60,
		Bankroll:         100000,
		KellyFraction:    0.25,
		BankrollCapPct:   0.10,
		MinProfitFloor:   5,
		TriggerThreshold: 0.005,
		Sensitivity: map[models.MarketType]float64{
			models.MarketTypeMoneyline:   2000000,
			models.MarketTypeSpread:      1500000,
			models.MarketTypePointsTotal: 1000000,
		},
		ProfitCap:         0.05,
		ArbRiskCap:        0.05,
		ExposureCap:       100,
		WeightConfidence:  0.40,
		WeightArbValidity: 0.35,
		WeightMktImpact:   0.25,
	}
}

// Validate checks the configuration invariants. A failure here is a fatal
// startup error, not a per-request one.
func (c ScoringConfig) Validate() error {
	if c.Bankroll <= 0 {
		return fmt.Errorf("bankroll must be positive, got %.2f", c.Bankroll)
	}
	if c.KellyFraction <= 0 || c.KellyFraction > 1.0 {
		return fmt.Errorf("kelly_fraction must be in (0, 1], got %.4f", c.KellyFraction)
	}
	if c.BankrollCapPct <= 0 || c.BankrollCapPct > 1.0 {
		return fmt.Errorf("bankroll_cap_pct must be in (0, 1], got %.4f", c.BankrollCapPct)
	}
	if c.MinProfitFloor < 0 {
		return fmt.Errorf("min_profit_floor must be non-negative, got %.2f", c.MinProfitFloor)
	}
	if c.TriggerThreshold <= 0 {
		return fmt.Errorf("trigger_threshold must be positive, got %.4f", c.TriggerThreshold)
	}
	if c.ProfitCap <= 0 {
		return fmt.Errorf("profit_cap must be positive, got %.4f", c.ProfitCap)
	}
	if c.ArbRiskCap <= 0 {
		return fmt.Errorf("arb_risk_cap must be positive, got %.4f", c.ArbRiskCap)
	}
	if c.ExposureCap <= 0 {
		return fmt.Errorf("exposure_cap must be positive, got %.4f", c.ExposureCap)
	}
	for _, marketType := range []models.MarketType{
		models.MarketTypeMoneyline, models.MarketTypeSpread, models.MarketTypePointsTotal,
	} {
		if c.Sensitivity[marketType] <= 0 {
			return fmt.Errorf("sensitivity for %s must be positive", marketType)
		}
	}

	weightSum := c.WeightConfidence + c.WeightArbValidity + c.WeightMktImpact
	if math.Abs(weightSum-1.0) > weightTolerance {
		return fmt.Errorf("risk weights must sum to 1.0, got %.6f", weightSum)
	}

	return nil
}
