package models

// MarketType identifies the kind of two-way market being quoted
type MarketType string

const (
	MarketTypeMoneyline   MarketType = "moneyline"
	MarketTypeSpread      MarketType = "spread"
	MarketTypePointsTotal MarketType = "points_total"
)

// Game carries the game context passed through to every scored market
type Game struct {
	Category string `json:"category"`
	Date     string `json:"date"` // ISO 8601 game start
	HomeTeam string `json:"home_team"`
	AwayTeam string `json:"away_team"`
}

// MarketQuote is one two-sided market as supplied by the prediction model
type MarketQuote struct {
	MarketType MarketType `json:"market_type"`
	Confidence float64    `json:"confidence"` // 0.0 - 1.0
	Bookmaker1 string     `json:"bookmaker_1"`
	Bookmaker2 string     `json:"bookmaker_2"`
	Price1     int        `json:"price_1"` // Current American odds at bookmaker_1
	Price2     int        `json:"price_2"` // Current American odds at bookmaker_2 (opposing side)
	OpenPrice1 *int       `json:"open_price_1,omitempty"` // Opening odds, if the book exposes them
	OpenPrice2 *int       `json:"open_price_2,omitempty"`
	Prediction string     `json:"prediction,omitempty"` // Human-readable model label (internal only)
}

// Prediction is one game's payload from the prediction supplier
type Prediction struct {
	Game
	Markets []MarketQuote `json:"markets"`
}

// SportsbookEntry is one side of a placed position
type SportsbookEntry struct {
	Name  string `json:"name"`
	Odds  int    `json:"odds"`
	Stake int    `json:"stake"`
}

// ScoredOpportunity is one accepted market with its stake split and quality scores.
// Field names and rounding (4 decimals for scores, integer USD for money) are the
// serialization contract with downstream consumers.
type ScoredOpportunity struct {
	// Game context (pass-through)
	Category   string     `json:"category"`
	Date       string     `json:"date"`
	HomeTeam   string     `json:"home_team"`
	AwayTeam   string     `json:"away_team"`
	MarketType MarketType `json:"market_type"`
	Confidence float64    `json:"confidence"`

	// Scores
	ProfitScore float64 `json:"profit_score"` // 0-1 normalised arb margin quality
	RiskScore   float64 `json:"risk_score"`   // 0-1 composite risk (0 = lowest)

	// Volume
	OptimalVolume    int `json:"optimal_volume"` // Total stake across both books
	StakeSide1       int `json:"stake_side1"`    // USD to place at bookmaker_1
	StakeSide2       int `json:"stake_side2"`    // USD to place at bookmaker_2
	GuaranteedProfit int `json:"guaranteed_profit"`

	// Diagnostics - show which constraint was binding
	LineMovement  float64 `json:"line_movement"`  // Measured IP drift from open to current
	MarketCeiling int     `json:"market_ceiling"` // Estimated max stake before the position moves the line
	KellyStake    int     `json:"kelly_stake"`    // Kelly-optimal stake before ceiling constraint

	Sportsbooks []SportsbookEntry `json:"sportsbooks"`
}

// RiskDistribution buckets opportunities by composite risk score
type RiskDistribution struct {
	Low      int `json:"low"`      // 0.00 - 0.25
	Moderate int `json:"moderate"` // 0.25 - 0.50
	Elevated int `json:"elevated"` // 0.50 - 0.75
	High     int `json:"high"`     // 0.75 - 1.00
}

// PortfolioSummary aggregates a batch of scored opportunities
type PortfolioSummary struct {
	TotalOpportunities   int                `json:"total_opportunities"`
	ConfirmedArbs        int                `json:"confirmed_arbs"` // profit_score > 0
	ValueBets            int                `json:"value_bets"`
	TotalCapitalRequired int                `json:"total_capital_required"`
	ExpectedTotalProfit  int                `json:"expected_total_profit"`
	AvgProfitScore       float64            `json:"avg_profit_score"`
	AvgRiskScore         float64            `json:"avg_risk_score"`
	RiskDistribution     RiskDistribution   `json:"risk_distribution"`
	BestOpportunity      *ScoredOpportunity `json:"best_opportunity,omitempty"`
	RankedOpportunities  []ScoredOpportunity `json:"ranked_opportunities"`
}

// Node is the unfiltered frontend shape produced by the execute pipeline:
// every market appears, arb or not, with volume 0 when no position is sized
type Node struct {
	Category    string            `json:"category"`
	HomeTeam    string            `json:"home_team"`
	AwayTeam    string            `json:"away_team"`
	ProfitScore float64           `json:"profit_score"`
	RiskScore   float64           `json:"risk_score"`
	Confidence  float64           `json:"confidence"`
	Volume      int               `json:"volume"`
	Date        string            `json:"date"`
	MarketType  MarketType        `json:"market_type"`
	Sportsbooks []SportsbookEntry `json:"sportsbooks"`
}
