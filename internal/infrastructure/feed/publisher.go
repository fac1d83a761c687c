package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/agrovault/coldchain-service/internal/core/services/livecache"
	"github.com/agrovault/coldchain-service/internal/infrastructure/cache"
)

// Publisher emits change events onto the feed channel. The intake service
// and the background workers publish through it after every write.
type Publisher struct {
	redis   *cache.RedisCache
	channel string
	logger  *slog.Logger
}

// NewPublisher creates a feed publisher for the given channel
func NewPublisher(redisCache *cache.RedisCache, channel string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		redis:   redisCache,
		channel: channel,
		logger:  logger,
	}
}

// Publish encodes and sends one change event
func (p *Publisher) Publish(ctx context.Context, event livecache.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	if err := p.redis.Publish(ctx, p.channel, payload); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}

	p.logger.Debug("change event published",
		slog.String("type", string(event.Type)),
		slog.String("batch_code", event.Batch.BatchCode))
	return nil
}
