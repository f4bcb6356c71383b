package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"breezbook/internal/config"
	"breezbook/internal/models"

	"github.com/redis/go-redis/v9"
)

// expiredRetention keeps a quote readable after expiry so callers get
// ErrQuoteExpired instead of ErrNotFound.
const expiredRetention = time.Hour

type RedisQuoteStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisClient builds a client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisQuoteStore(client *redis.Client) *RedisQuoteStore {
	return &RedisQuoteStore{client: client, now: time.Now}
}

func quoteKey(id string) string {
	return "quote:" + id
}

func (r *RedisQuoteStore) SaveQuote(ctx context.Context, quote *models.Quote) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}

	ttl := quote.ExpiresAt.Sub(r.now()) + expiredRetention
	if ttl <= 0 {
		ttl = expiredRetention
	}
	if err := r.client.Set(ctx, quoteKey(quote.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save quote in redis: %w", err)
	}
	return nil
}

func (r *RedisQuoteStore) GetQuote(ctx context.Context, id string) (*models.Quote, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, quoteKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.NotFound("quote", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quote from redis: %w", err)
	}

	var quote models.Quote
	if err := json.Unmarshal(val, &quote); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quote: %w", err)
	}
	if quote.Expired(r.now()) {
		return &quote, fmt.Errorf("quote %s: %w", id, models.ErrQuoteExpired)
	}
	return &quote, nil
}

func (r *RedisQuoteStore) DeleteQuote(ctx context.Context, id string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, quoteKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete quote from redis: %w", err)
	}
	return nil
}

// CheckRateLimit counts calls for key in a fixed window.
func (r *RedisQuoteStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	rk := "rate_limit:" + key
	count, err := r.client.Incr(ctx, rk).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, rk, window)
	}

	return count <= int64(limit), nil
}

// Ping checks the connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
