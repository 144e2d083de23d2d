package events

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DefaultChannel = "backoffice:collections"

// RedisRelay fans collection-changed notifications out to other processes
// sharing the same database. The payload is only the collection name.
type RedisRelay struct {
	Rdb     *redis.Client
	Channel string
}

func (r *RedisRelay) channel() string {
	if r.Channel == "" {
		return DefaultChannel
	}
	return r.Channel
}

// Forward is a Bus handler for CollectionChanged.
func (r *RedisRelay) Forward(ctx context.Context, e Event) error {
	if e.Collection == "" {
		return nil
	}
	return r.Rdb.Publish(ctx, r.channel(), e.Collection).Err()
}

// Subscribe returns once the subscription is confirmed by the server.
func (r *RedisRelay) Subscribe(ctx context.Context) (*redis.PubSub, error) {
	sub := r.Rdb.Subscribe(ctx, r.channel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	return sub, nil
}

// Listen calls onChange for every notification until ctx is done or the subscription closes.
func Listen(ctx context.Context, sub *redis.PubSub, onChange func(ctx context.Context, collection string)) {
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = sub.Close()
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			log.Debug().Str("channel", msg.Channel).Str("collection", msg.Payload).Msg("collection changed")
			onChange(ctx, msg.Payload)
		}
	}
}
