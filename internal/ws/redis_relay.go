package ws

import (
	"context"
	"encoding/json"

	"todo_webapp/internal/domain"
	"todo_webapp/internal/logger"

	redis "github.com/redis/go-redis/v9"
)

// RedisRelay carries task events between instances over a pub/sub channel.
type RedisRelay struct {
	rdb     *redis.Client
	channel string
}

func NewRedisRelay(rdb *redis.Client, channel string) *RedisRelay {
	return &RedisRelay{rdb: rdb, channel: channel}
}

func (r *RedisRelay) Publish(ctx context.Context, ev domain.TaskEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, b).Err()
}

// Run delivers every event received on the channel until ctx is done.
func (r *RedisRelay) Run(ctx context.Context, deliver func(domain.TaskEvent)) {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		logger.Error("redis relay subscribe failed", "channel", r.channel, "error", err)
		return
	}
	logger.Info("redis relay subscribed", "channel", r.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev domain.TaskEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Warn("redis relay: bad event", "error", err)
				continue
			}
			deliver(ev)
		}
	}
}
