package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rickgao/live-market/internal/model"
)

// redisClient is the subset of *redis.Client the publisher uses.
type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisPublisher publishes events on Redis pub/sub channels.
type RedisPublisher struct {
	client redisClient
	prefix string
}

// NewRedisPublisher connects to addr and verifies the connection.
func NewRedisPublisher(ctx context.Context, addr, password string, db int, prefix string) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return &RedisPublisher{client: rdb, prefix: prefix}, nil
}

// Channel returns the channel an event is published on.
func (p *RedisPublisher) Channel(event model.Event) string {
	return p.prefix + ":" + event.ItemID
}

// Name implements Publisher.
func (p *RedisPublisher) Name() string { return "redis" }

// Publish implements Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, event model.Event, payload []byte) error {
	return p.client.Publish(ctx, p.Channel(event), payload).Err()
}

// Close closes the client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
