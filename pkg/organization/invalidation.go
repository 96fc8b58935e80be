package organization

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultInvalidationChannel is the Redis channel carrying organization ids
// whose cached lookups must be dropped.
const DefaultInvalidationChannel = "helpdesk:organizations:invalidate"

// RedisInvalidator fans cache invalidations out to every process subscribed
// to the same Redis channel.
type RedisInvalidator struct {
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger
}

var _ Publisher = (*RedisInvalidator)(nil)

// NewRedisInvalidator returns an invalidator publishing on channel.
// An empty channel selects DefaultInvalidationChannel.
func NewRedisInvalidator(client redis.UniversalClient, channel string, logger *slog.Logger) *RedisInvalidator {
	if channel == "" {
		channel = DefaultInvalidationChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisInvalidator{client: client, channel: channel, logger: logger}
}

func (r *RedisInvalidator) PublishInvalidation(ctx context.Context, id uuid.UUID) error {
	return r.client.Publish(ctx, r.channel, id.String()).Err()
}

// Subscribe calls forget for every invalidation received until ctx is done.
func (r *RedisInvalidator) Subscribe(ctx context.Context, forget func(context.Context, uuid.UUID)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			id, err := uuid.Parse(msg.Payload)
			if err != nil {
				r.logger.WarnContext(ctx, "ignoring malformed organization invalidation",
					slog.String("payload", msg.Payload))
				continue
			}
			forget(ctx, id)
		}
	}
}
