package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClients splits blocking traffic from the rest: BLPOP and SUBSCRIBE hold a connection each.
type RedisClients struct {
	// Queue serves the job queue, user locks and refresh tokens.
	Queue *redis.Client
	// PubSub serves user_updates:<id> subscriptions and publishes.
	PubSub *redis.Client
}

func NewRedisClients(ctx context.Context, redisURL string, workers int) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	queueOpt := *opt
	// every worker parks one connection in BLPOP
	queueOpt.PoolSize = max(opt.PoolSize, 10+workers)
	queueClient := redis.NewClient(&queueOpt)
	if err := queueClient.Ping(ctx).Err(); err != nil {
		queueClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (queue): %w", err)
	}

	pubsubOpt := *opt
	pubsubClient := redis.NewClient(&pubsubOpt)
	if err := pubsubClient.Ping(ctx).Err(); err != nil {
		queueClient.Close()
		pubsubClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (pubsub): %w", err)
	}

	return &RedisClients{
		Queue:  queueClient,
		PubSub: pubsubClient,
	}, nil
}

func (r *RedisClients) Close() error {
	qErr := r.Queue.Close()
	pErr := r.PubSub.Close()
	if qErr != nil {
		return qErr
	}
	return pErr
}
