package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/agrovault/coldchain-service/internal/core/domain"
	"github.com/agrovault/coldchain-service/internal/core/services/livecache"
	"github.com/agrovault/coldchain-service/internal/infrastructure/cache"
)

// BulkReader is the filtered one-shot read backing a cache initialize.
// *repositories.BatchRepository satisfies it.
type BulkReader interface {
	ListCurrent(ctx context.Context, warehouseID *uuid.UUID) ([]domain.Batch, error)
}

// RedisFeed implements livecache.ChangeFeed: bulk reads go to the batch
// repository, live events arrive over a Redis pub/sub channel carrying
// JSON-encoded livecache.Event envelopes.
type RedisFeed struct {
	reader  BulkReader
	redis   *cache.RedisCache
	channel string
	logger  *slog.Logger
}

// NewRedisFeed creates a change feed over the given reader and Redis channel
func NewRedisFeed(reader BulkReader, redisCache *cache.RedisCache, channel string, logger *slog.Logger) *RedisFeed {
	if logger == nil {
		logger = slog.Default()
	}

	return &RedisFeed{
		reader:  reader,
		redis:   redisCache,
		channel: channel,
		logger:  logger,
	}
}

// BulkRead performs the one-shot filtered query against the source of truth
func (f *RedisFeed) BulkRead(ctx context.Context, scope livecache.Scope) ([]domain.Batch, error) {
	return f.reader.ListCurrent(ctx, scope.WarehouseID)
}

// Subscribe opens the pub/sub channel and pumps decoded events into the
// handler until the subscription is cancelled.
func (f *RedisFeed) Subscribe(ctx context.Context, handler func(livecache.Event)) (livecache.Subscription, error) {
	ps := f.redis.Subscribe(ctx, f.channel)

	// Force the subscribe round-trip so a broken transport surfaces here
	// instead of as silently missing events.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", f.channel, err)
	}

	sub := &redisSubscription{ps: ps}

	go func() {
		for msg := range ps.Channel() {
			var event livecache.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				f.logger.Warn("dropping malformed change event",
					slog.String("channel", f.channel), "error", err)
				continue
			}
			handler(event)
		}
	}()

	f.logger.Debug("change feed subscription established",
		slog.String("channel", f.channel))

	return sub, nil
}

// redisSubscription wraps a PubSub handle with idempotent cancellation
type redisSubscription struct {
	ps   *redis.PubSub
	once sync.Once
}

// Cancel closes the pub/sub connection; safe to call repeatedly
func (s *redisSubscription) Cancel() {
	s.once.Do(func() {
		_ = s.ps.Close()
	})
}
