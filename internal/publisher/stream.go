package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/XavierBriggs/fortuna/services/arb-scorer/pkg/models"
	"github.com/redis/go-redis/v9"
)

// StreamPublisher publishes scored opportunities to Redis Streams
type StreamPublisher struct {
	client *redis.Client
}

// NewStreamPublisher creates a new stream publisher
func NewStreamPublisher(client *redis.Client) *StreamPublisher {
	return &StreamPublisher{
		client: client,
	}
}

// PublishOpportunity publishes one opportunity to the category stream
func (p *StreamPublisher) PublishOpportunity(ctx context.Context, opp models.ScoredOpportunity) error {
	opportunityJSON, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("failed to marshal opportunity: %w", err)
	}

	streamKey := fmt.Sprintf("arbs.scored.%s", opp.Category)

	_, err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey,
		Values: map[string]interface{}{
			"opportunity": string(opportunityJSON),
		},
	}).Result()

	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", streamKey, err)
	}

	return nil
}

// PublishToGlobalStream publishes to the global arbs.scored stream for
// consumers that want every category
func (p *StreamPublisher) PublishToGlobalStream(ctx context.Context, opp models.ScoredOpportunity) error {
	opportunityJSON, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("failed to marshal opportunity: %w", err)
	}

	_, err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: "arbs.scored",
		Values: map[string]interface{}{
			"opportunity": string(opportunityJSON),
		},
	}).Result()

	if err != nil {
		return fmt.Errorf("failed to publish to global stream: %w", err)
	}

	return nil
}

// Publish sends an opportunity to both the category-specific and global streams
func (p *StreamPublisher) Publish(ctx context.Context, opp models.ScoredOpportunity) error {
	if err := p.PublishOpportunity(ctx, opp); err != nil {
		return err
	}

	return p.PublishToGlobalStream(ctx, opp)
}
