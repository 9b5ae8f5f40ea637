package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix  = "uplora:events:"
	channelPattern = channelPrefix + "*"
	channelAll     = channelPrefix + "all"

	errEncodeEventFmt    = "encode event: %w"
	errPublishEventFmt   = "publish event: %w"
	errSubscribeRelayFmt = "subscribe %s: %w"
)

// ChannelFor returns the Redis channel an event is published on. Team
// events go to the team channel, personal events to the user channel.
func ChannelFor(e Event) string {
	switch {
	case e.TeamID != nil:
		return channelPrefix + "team:" + e.TeamID.String()
	case e.UserID != nil:
		return channelPrefix + "user:" + e.UserID.String()
	default:
		return channelAll
	}
}

// RedisRelay publishes events through Redis so every instance's local Bus
// sees them. Events are only delivered locally once they come back from
// Redis, so a single instance still receives its own events exactly once.
type RedisRelay struct {
	client *redis.Client
	bus    *Bus
	logger *zap.Logger
}

func NewRedisRelay(client *redis.Client, bus *Bus, logger *zap.Logger) *RedisRelay {
	return &RedisRelay{client: client, bus: bus, logger: logger}
}

// Publish never returns an error to the caller; a failed Redis publish falls
// back to local delivery so this instance's subscribers still see it.
func (r *RedisRelay) Publish(e Event) {
	if err := r.publish(context.Background(), e); err != nil {
		r.logger.Warn("realtime relay publish failed, delivering locally",
			zap.String("type", e.Type), zap.Error(err))
		r.bus.Broadcast(e)
	}
}

func (r *RedisRelay) publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = r.bus.now()
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf(errEncodeEventFmt, err)
	}

	if err := r.client.Publish(ctx, ChannelFor(e), payload).Err(); err != nil {
		return fmt.Errorf(errPublishEventFmt, err)
	}
	return nil
}

// Run feeds relayed events into the local bus until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.PSubscribe(ctx, channelPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf(errSubscribeRelayFmt, channelPattern, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				r.logger.Warn("dropping malformed relayed event",
					zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			r.bus.Broadcast(e)
		}
	}
}
