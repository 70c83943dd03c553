package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"referral_service/internal/storage"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

// * SaveResetRequest сохраняет reset-токен с TTL
func (r *RedisRepo) SaveResetRequest(ctx context.Context, token, email string, ttl time.Duration) error {
	const op = "storage.redis.SaveResetRequest"

	key := fmt.Sprintf("pwreset:%s", token)

	if err := r.client.Set(ctx, key, email, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ConsumeResetRequest reads and deletes the request in one round trip. GETDEL
// is atomic, so a token can never be consumed twice even under concurrent
// reset attempts; expiry is enforced by the key TTL.
func (r *RedisRepo) ConsumeResetRequest(ctx context.Context, token string) (string, error) {
	const op = "storage.redis.ConsumeResetRequest"

	key := fmt.Sprintf("pwreset:%s", token)

	email, err := r.client.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", storage.ErrResetTokenNotFound
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return email, nil
}

// * Close закрывает соединение с базой данных.
func (r *RedisRepo) Close() {
	r.client.Close()
}
