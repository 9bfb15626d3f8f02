package analyzer

import (
	"math"
	"sort"

	"github.com/XavierBriggs/fortuna/services/arb-scorer/pkg/models"
)

// Risk bucket upper bounds (inclusive)
const (
	lowMax      = 0.25
	moderateMax = 0.50
	elevatedMax = 0.75
)

// Analyze folds a batch of scored opportunities into portfolio statistics.
// Empty input yields an all-zero summary with no best opportunity.
func Analyze(opportunities []models.ScoredOpportunity) models.PortfolioSummary {
	if len(opportunities) == 0 {
		return models.PortfolioSummary{
			RankedOpportunities: []models.ScoredOpportunity{},
		}
	}

	ranked := rank(opportunities)

	confirmedArbs := 0
	totalCapital := 0
	totalProfit := 0
	profitSum := 0.0
	riskSum := 0.0
	var distribution models.RiskDistribution

	for _, opp := range opportunities {
		if opp.ProfitScore > 0 {
			confirmedArbs++
		}
		totalCapital += opp.OptimalVolume
		totalProfit += opp.GuaranteedProfit
		profitSum += opp.ProfitScore
		riskSum += opp.RiskScore

		switch {
		case opp.RiskScore <= lowMax:
			distribution.Low++
		case opp.RiskScore <= moderateMax:
			distribution.Moderate++
		case opp.RiskScore <= elevatedMax:
			distribution.Elevated++
		default:
			distribution.High++
		}
	}

	count := len(opportunities)
	best := ranked[0]

	return models.PortfolioSummary{
		TotalOpportunities:   count,
		ConfirmedArbs:        confirmedArbs,
		ValueBets:            count - confirmedArbs,
		TotalCapitalRequired: totalCapital,
		ExpectedTotalProfit:  totalProfit,
		AvgProfitScore:       round4(profitSum / float64(count)),
		AvgRiskScore:         round4(riskSum / float64(count)),
		RiskDistribution:     distribution,
		BestOpportunity:      &best,
		RankedOpportunities:  ranked,
	}
}

// rank sorts by descending profit score, then ascending risk score. Best
// opportunity = highest quality arb with the least risk. The sort is stable so
// equal entries keep their input order.
func rank(opportunities []models.ScoredOpportunity) []models.ScoredOpportunity {
	ranked := make([]models.ScoredOpportunity, len(opportunities))
	copy(ranked, opportunities)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].ProfitScore != ranked[j].ProfitScore {
			return ranked[i].ProfitScore > ranked[j].ProfitScore
		}
		return ranked[i].RiskScore < ranked[j].RiskScore
	})

	return ranked
}

func round4(val float64) float64 {
	return math.Round(val*10000) / 10000
}
