package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/table-reservation/internal/queue"
)

// DefaultRedisChannel is the pub/sub channel events are mirrored to.
const DefaultRedisChannel = "restaurant:events"

// RedisForwarder mirrors events as JSON onto a Redis pub/sub channel so
// other processes (kiosks, a second API node) can observe them.
type RedisForwarder struct {
	rdb     redis.UniversalClient
	channel string
}

// NewRedisForwarder returns a forwarder publishing on channel.
func NewRedisForwarder(rdb redis.UniversalClient, channel string) *RedisForwarder {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisForwarder{rdb: rdb, channel: channel}
}

func (f *RedisForwarder) Notify(ctx context.Context, ev queue.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return f.rdb.Publish(ctx, f.channel, body).Err()
}

// BrokerForwarder adapts a queue.Publisher to Subscriber.
func BrokerForwarder(p *queue.Publisher) Subscriber {
	return SubscriberFunc(p.Publish)
}
