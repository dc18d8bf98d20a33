package credstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis - хэш <prefix><origin> с полями access/refresh.
// Позволяет нескольким процессам дашборда разделять одну сессию.
type Redis struct {
	rdb *redis.Client
	key string
}

// NewRedis создаёт клиент из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой - используется "metrics-tracker:session:".
func NewRedis(ctx context.Context, redisURL, prefix, origin string) (*Redis, error) {
	if prefix == "" {
		prefix = "metrics-tracker:session:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{rdb: rdb, key: prefix + origin}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.HGet(ctx, r.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.rdb.HSet(ctx, r.key, key, value).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.rdb.HDel(ctx, r.key, key).Err()
}

// Clear удаляет оба поля одной транзакцией.
func (r *Redis) Clear(ctx context.Context) error {
	pipe := r.rdb.TxPipeline()
	pipe.HDel(ctx, r.key, KeyAccess, KeyRefresh)

	_, err := pipe.Exec(ctx)
	return err
}

// SetPair сохраняет access и refresh атомарно.
func (r *Redis) SetPair(ctx context.Context, access, refresh string) error {
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, r.key, KeyAccess, access)
	if refresh != "" {
		pipe.HSet(ctx, r.key, KeyRefresh, refresh)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (r *Redis) Close() error { return r.rdb.Close() }
