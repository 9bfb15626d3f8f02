package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/XavierBriggs/fortuna/services/arb-scorer/internal/analyzer"
	"github.com/XavierBriggs/fortuna/services/arb-scorer/internal/scorer"
	"github.com/XavierBriggs/fortuna/services/arb-scorer/pkg/models"
)

// PredictionSource supplies prediction payloads to score
type PredictionSource interface {
	FetchPrediction(ctx context.Context) (models.Prediction, error)
	FetchAllPredictions(ctx context.Context) ([]models.Prediction, error)
}

// OpportunitySink persists accepted opportunities
type OpportunitySink interface {
	WriteOpportunity(ctx context.Context, opp models.ScoredOpportunity) (int64, error)
}

// OpportunityPublisher pushes accepted opportunities onto a stream
type OpportunityPublisher interface {
	Publish(ctx context.Context, opp models.ScoredOpportunity) error
}

// OpportunityBroadcaster fans accepted opportunities out to live clients
type OpportunityBroadcaster interface {
	Broadcast(opp models.ScoredOpportunity)
}

// Engine orchestrates the scoring pipeline: supplier payloads in, scored
// opportunities out to the configured sinks. Any sink may be nil (disabled).
type Engine struct {
	source      PredictionSource
	sink        OpportunitySink
	publisher   OpportunityPublisher
	broadcaster OpportunityBroadcaster
	cfg         scorer.ScoringConfig

	// Metrics
	scoredCount  int64
	droppedCount int64
	failedCount  int64
	mu           sync.Mutex
}

// NewEngine creates a scoring engine. sink, publisher and broadcaster may be
// nil to disable the corresponding output.
func NewEngine(
	source PredictionSource,
	sink OpportunitySink,
	publisher OpportunityPublisher,
	broadcaster OpportunityBroadcaster,
	cfg scorer.ScoringConfig,
) *Engine {
	return &Engine{
		source:      source,
		sink:        sink,
		publisher:   publisher,
		broadcaster: broadcaster,
		cfg:         cfg,
	}
}

// Opportunities fetches the latest prediction and returns every accepted
// opportunity, dispatching each to the configured sinks.
func (e *Engine) Opportunities(ctx context.Context) ([]models.ScoredOpportunity, error) {
	prediction, err := e.source.FetchPrediction(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prediction: %w", err)
	}

	return e.ScorePrediction(ctx, prediction)
}

// Analysis fetches the latest prediction, scores it, and folds the accepted
// set into a portfolio summary.
func (e *Engine) Analysis(ctx context.Context) (models.PortfolioSummary, error) {
	opportunities, err := e.Opportunities(ctx)
	if err != nil {
		return models.PortfolioSummary{}, err
	}

	return analyzer.Analyze(opportunities), nil
}

// ScorePrediction scores one caller-supplied payload. Per-market soft drops
// and structural failures are logged and counted; neither aborts the batch.
func (e *Engine) ScorePrediction(ctx context.Context, prediction models.Prediction) ([]models.ScoredOpportunity, error) {
	if err := validatePrediction(prediction); err != nil {
		return nil, err
	}

	results := scorer.ScoreGame(prediction.Game, prediction.Markets, e.cfg)

	accepted := make([]models.ScoredOpportunity, 0, len(results))
	for _, result := range results {
		switch result.Status {
		case scorer.StatusAccepted:
			e.incrementScored()
			e.dispatch(ctx, *result.Opportunity)
			accepted = append(accepted, *result.Opportunity)

		case scorer.StatusDropped:
			e.incrementDropped()
			fmt.Printf("dropped market %s: %s\n", result.MarketType, result.Reason)

		case scorer.StatusFailed:
			e.incrementFailed()
			fmt.Printf("⚠️  failed to score market %s: %v\n", result.MarketType, result.Err)
		}
	}

	fmt.Printf("✓ scored %s vs %s: %d/%d markets produced opportunities\n",
		prediction.HomeTeam, prediction.AwayTeam, len(accepted), len(prediction.Markets))

	return accepted, nil
}

// Execute scores every market of every tracked game without the confidence or
// profit-floor gates, returning the frontend node set.
func (e *Engine) Execute(ctx context.Context) ([]models.Node, error) {
	predictions, err := e.source.FetchAllPredictions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch predictions: %w", err)
	}

	nodes := []models.Node{}
	for _, prediction := range predictions {
		if err := validatePrediction(prediction); err != nil {
			return nil, err
		}

		for _, quote := range prediction.Markets {
			node, err := scorer.ScoreNode(quote, prediction.Game, e.cfg)
			if err != nil {
				e.incrementFailed()
				fmt.Printf("⚠️  skipping market %s: %v\n", quote.MarketType, err)
				continue
			}
			nodes = append(nodes, node)
		}
	}

	return nodes, nil
}

// GetMetrics returns pipeline counters
func (e *Engine) GetMetrics() (scored, dropped, failed int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scoredCount, e.droppedCount, e.failedCount
}

// dispatch forwards one accepted opportunity to each configured output.
// Output failures are logged, never propagated: scoring results still reach
// the caller.
func (e *Engine) dispatch(ctx context.Context, opp models.ScoredOpportunity) {
	if e.sink != nil {
		if _, err := e.sink.WriteOpportunity(ctx, opp); err != nil {
			fmt.Printf("⚠️  failed to persist opportunity: %v\n", err)
		}
	}

	if e.publisher != nil {
		if err := e.publisher.Publish(ctx, opp); err != nil {
			fmt.Printf("⚠️  failed to publish opportunity: %v\n", err)
		}
	}

	if e.broadcaster != nil {
		e.broadcaster.Broadcast(opp)
	}
}

// validatePrediction enforces the structural input contract
func validatePrediction(prediction models.Prediction) error {
	if prediction.Date == "" {
		return fmt.Errorf("prediction for %s vs %s: date is required",
			prediction.HomeTeam, prediction.AwayTeam)
	}
	return nil
}

func (e *Engine) incrementScored() {
	e.mu.Lock()
	e.scoredCount++
	e.mu.Unlock()
}

func (e *Engine) incrementDropped() {
	e.mu.Lock()
	e.droppedCount++
	e.mu.Unlock()
}

func (e *Engine) incrementFailed() {
	e.mu.Lock()
	e.failedCount++
	e.mu.Unlock()
}
