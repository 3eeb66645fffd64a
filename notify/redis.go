package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher delivers events over Redis pub/sub. Redis channel semantics
// (at-most-once, no persistence of missed messages) match the dispatcher
// contract exactly.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(addr, password string, db int, log *zap.Logger) (*RedisPublisher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("redis connected", zap.String("addr", addr))
	return &RedisPublisher{client: rdb}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return p.client.Publish(ctx, topic, payload).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
