package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CheckoutGuard makes checkout safe to retry with the same idempotency key.
type CheckoutGuard interface {
	// Begin claims key for userID. It returns the order ID of a finished
	// checkout with the same key, or ErrCheckoutInProgress while another
	// request holds it. A zero ID means the caller owns the key.
	Begin(ctx context.Context, userID uuid.UUID, key string) (uuid.UUID, error)
	Complete(ctx context.Context, userID uuid.UUID, key string, orderID uuid.UUID) error
	Abort(ctx context.Context, userID uuid.UUID, key string) error
}

const checkoutPending = "pending"

type RedisCheckoutGuard struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewRedisCheckoutGuard(redisClient *redis.Client, ttl time.Duration) *RedisCheckoutGuard {
	return &RedisCheckoutGuard{redisClient: redisClient, ttl: ttl}
}

func checkoutKey(userID uuid.UUID, key string) string {
	return "checkout:" + userID.String() + ":" + key
}

func (g *RedisCheckoutGuard) Begin(ctx context.Context, userID uuid.UUID, key string) (uuid.UUID, error) {
	k := checkoutKey(userID, key)
	claimed, err := g.redisClient.SetNX(ctx, k, checkoutPending, g.ttl).Result()
	if err != nil {
		return uuid.Nil, fmt.Errorf("claim idempotency key: %w", err)
	}
	if claimed {
		return uuid.Nil, nil
	}

	value, err := g.redisClient.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Expired or aborted between the two calls; try once more.
		return g.Begin(ctx, userID, key)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("read idempotency key: %w", err)
	}
	if value == checkoutPending {
		return uuid.Nil, ErrCheckoutInProgress
	}
	orderID, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse idempotency key %s: %w", k, err)
	}
	return orderID, nil
}

func (g *RedisCheckoutGuard) Complete(ctx context.Context, userID uuid.UUID, key string, orderID uuid.UUID) error {
	return g.redisClient.Set(ctx, checkoutKey(userID, key), orderID.String(), g.ttl).Err()
}

func (g *RedisCheckoutGuard) Abort(ctx context.Context, userID uuid.UUID, key string) error {
	return g.redisClient.Del(ctx, checkoutKey(userID, key)).Err()
}
