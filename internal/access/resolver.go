package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/foodville/marketplace-api/internal/model"
)

var ErrUnknownUser = errors.New("unknown user")

// UserSource is the subset of the user repository the resolver reads.
type UserSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GroupNames(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// Resolver builds the Principal for a request. Group membership is cached in
// Redis; a cache failure falls back to the database and is only logged.
type Resolver struct {
	users       UserSource
	redisClient *redis.Client
	ttl         time.Duration
	log         *slog.Logger
}

func NewResolver(users UserSource, redisClient *redis.Client, ttl time.Duration, log *slog.Logger) *Resolver {
	return &Resolver{users: users, redisClient: redisClient, ttl: ttl, log: log}
}

type cachedIdentity struct {
	Email  string   `json:"email"`
	Staff  bool     `json:"staff"`
	Groups []string `json:"groups"`
}

func roleCacheKey(userID uuid.UUID) string { return "roles:" + userID.String() }

func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) (Principal, error) {
	key := roleCacheKey(userID)

	if r.redisClient != nil {
		cached, err := r.redisClient.Get(ctx, key).Result()
		switch {
		case err == nil:
			var id cachedIdentity
			if json.Unmarshal([]byte(cached), &id) == nil {
				return NewPrincipal(userID, id.Email, id.Staff, id.Groups), nil
			}
		case !errors.Is(err, redis.Nil):
			r.log.Warn("read role cache", "user_id", userID, "error", err)
		}
	}

	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return Principal{}, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return Principal{}, ErrUnknownUser
	}
	groups, err := r.users.GroupNames(ctx, userID)
	if err != nil {
		return Principal{}, fmt.Errorf("get groups: %w", err)
	}

	if r.redisClient != nil {
		data, _ := json.Marshal(cachedIdentity{Email: user.Email, Staff: user.IsStaff, Groups: groups})
		if err := r.redisClient.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.log.Warn("write role cache", "user_id", userID, "error", err)
		}
	}
	return NewPrincipal(userID, user.Email, user.IsStaff, groups), nil
}

// Invalidate drops the cached membership of userID.
func (r *Resolver) Invalidate(ctx context.Context, userID uuid.UUID) {
	if r.redisClient == nil {
		return
	}
	if err := r.redisClient.Del(ctx, roleCacheKey(userID)).Err(); err != nil {
		r.log.Warn("invalidate role cache", "user_id", userID, "error", err)
	}
}
