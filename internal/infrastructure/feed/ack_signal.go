package feed

import (
	"context"
	"log/slog"

	"github.com/agrovault/coldchain-service/internal/infrastructure/cache"
)

// AckSignal is the out-of-band acknowledged notification channel: the write
// path publishes after resolving an alert, the aggregator listens to force
// an immediate recount.
type AckSignal struct {
	redis   *cache.RedisCache
	channel string
	logger  *slog.Logger
}

// NewAckSignal creates the signal transport on the given channel
func NewAckSignal(redisCache *cache.RedisCache, channel string, logger *slog.Logger) *AckSignal {
	if logger == nil {
		logger = slog.Default()
	}

	return &AckSignal{
		redis:   redisCache,
		channel: channel,
		logger:  logger,
	}
}

// Notify publishes an acknowledged signal
func (s *AckSignal) Notify(ctx context.Context) error {
	return s.redis.Publish(ctx, s.channel, []byte("ack"))
}

// Listen subscribes to the signal channel and returns a channel that
// receives one value per acknowledged signal, plus a cancel function.
// The returned channel is closed when the subscription ends.
func (s *AckSignal) Listen(ctx context.Context) (<-chan struct{}, func(), error) {
	ps := s.redis.Subscribe(ctx, s.channel)

	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for range ps.Channel() {
			select {
			case out <- struct{}{}:
			default:
				// A recount is already pending; collapsing bursts is fine.
			}
		}
	}()

	cancel := func() { _ = ps.Close() }

	s.logger.Debug("acknowledged signal listener established",
		slog.String("channel", s.channel))
	return out, cancel, nil
}
