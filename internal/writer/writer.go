package writer

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/XavierBriggs/fortuna/services/arb-scorer/pkg/models"
)

// OpportunityWriter persists accepted opportunities to Postgres
type OpportunityWriter struct {
	db *sql.DB
}

// NewOpportunityWriter creates a new opportunity writer
func NewOpportunityWriter(db *sql.DB) *OpportunityWriter {
	return &OpportunityWriter{
		db: db,
	}
}

// WriteOpportunity writes a scored opportunity and its two legs.
// Returns the opportunity ID on success.
func (w *OpportunityWriter) WriteOpportunity(ctx context.Context, opp models.ScoredOpportunity) (int64, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback if commit doesn't happen

	opportunityQuery := `
		INSERT INTO scored_opportunities (
			category, game_date, home_team, away_team, market_type,
			confidence, profit_score, risk_score,
			optimal_volume, stake_side1, stake_side2, guaranteed_profit,
			line_movement, market_ceiling, kelly_stake
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`

	var opportunityID int64
	err = tx.QueryRowContext(
		ctx,
		opportunityQuery,
		opp.Category,
		opp.Date,
		opp.HomeTeam,
		opp.AwayTeam,
		string(opp.MarketType),
		opp.Confidence,
		opp.ProfitScore,
		opp.RiskScore,
		opp.OptimalVolume,
		opp.StakeSide1,
		opp.StakeSide2,
		opp.GuaranteedProfit,
		opp.LineMovement,
		opp.MarketCeiling,
		opp.KellyStake,
	).Scan(&opportunityID)

	if err != nil {
		return 0, fmt.Errorf("failed to insert opportunity: %w", err)
	}

	legQuery := `
		INSERT INTO scored_opportunity_legs (
			opportunity_id, bookmaker, odds, stake
		) VALUES ($1, $2, $3, $4)
	`

	for _, book := range opp.Sportsbooks {
		_, err = tx.ExecContext(ctx, legQuery, opportunityID, book.Name, book.Odds, book.Stake)
		if err != nil {
			return 0, fmt.Errorf("failed to insert opportunity leg: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return opportunityID, nil
}

// WriteOpportunities writes a batch of opportunities
func (w *OpportunityWriter) WriteOpportunities(ctx context.Context, opportunities []models.ScoredOpportunity) ([]int64, error) {
	if len(opportunities) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(opportunities))

	for _, opp := range opportunities {
		id, err := w.WriteOpportunity(ctx, opp)
		if err != nil {
			return ids, fmt.Errorf("failed to write opportunity: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// GetRecentOpportunities retrieves up to limit recently written opportunities
func (w *OpportunityWriter) GetRecentOpportunities(ctx context.Context, limit int) ([]models.ScoredOpportunity, error) {
	query := `
		SELECT category, game_date, home_team, away_team, market_type,
		       confidence, profit_score, risk_score,
		       optimal_volume, stake_side1, stake_side2, guaranteed_profit,
		       line_movement, market_ceiling, kelly_stake
		FROM scored_opportunities
		ORDER BY id DESC
		LIMIT $1
	`

	rows, err := w.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query opportunities: %w", err)
	}
	defer rows.Close()

	var opportunities []models.ScoredOpportunity
	for rows.Next() {
		var opp models.ScoredOpportunity
		var marketType string
		err := rows.Scan(
			&opp.Category,
			&opp.Date,
			&opp.HomeTeam,
			&opp.AwayTeam,
			&marketType,
			&opp.Confidence,
			&opp.ProfitScore,
			&opp.RiskScore,
			&opp.OptimalVolume,
			&opp.StakeSide1,
			&opp.StakeSide2,
			&opp.GuaranteedProfit,
			&opp.LineMovement,
			&opp.MarketCeiling,
			&opp.KellyStake,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan opportunity: %w", err)
		}
		opp.MarketType = models.MarketType(marketType)
		opportunities = append(opportunities, opp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating opportunities: %w", err)
	}

	return opportunities, nil
}
