package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"idbcrm/internal/ratelimit/models"
)

const (
	windowPrefix  = "ratelimit:window:"
	lockoutPrefix = "ratelimit:lockout:"
)

// Redis shares counters across server instances. Windows are sorted sets
// scored by hit time in milliseconds; lockouts are hashes.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Allow adds the hit optimistically and takes it back when the window is full.
func (r *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (*models.Result, error) {
	k := windowPrefix + key
	member := uuid.NewString()
	nowMs := now.UnixMilli()
	cutoff := now.Add(-window).UnixMilli()

	var card *redis.IntCmd
	var oldest *redis.ZSliceCmd
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRemRangeByScore(ctx, k, "-inf", strconv.FormatInt(cutoff, 10))
		p.ZAdd(ctx, k, redis.Z{Score: float64(nowMs), Member: member})
		card = p.ZCard(ctx, k)
		oldest = p.ZRangeWithScores(ctx, k, 0, 0)
		p.PExpire(ctx, k, window)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit window: %w", err)
	}

	resetAt := now.Add(window)
	if zs := oldest.Val(); len(zs) > 0 {
		resetAt = time.UnixMilli(int64(zs[0].Score)).Add(window)
	}
	count := int(card.Val())
	if count > limit {
		if err := r.client.ZRem(ctx, k, member).Err(); err != nil {
			return nil, fmt.Errorf("rate limit rollback: %w", err)
		}
		return &models.Result{
			Allowed:    false,
			Limit:      limit,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}, nil
	}
	return &models.Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - count,
		ResetAt:   resetAt,
	}, nil
}

func (r *Redis) GetLockout(ctx context.Context, id string) (*models.Lockout, error) {
	vals, err := r.client.HGetAll(ctx, lockoutPrefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lockout: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return decodeLockout(id, vals), nil
}

// RecordFailure keys expire one window after the last failure, so a lapsed
// streak simply disappears.
func (r *Redis) RecordFailure(ctx context.Context, id string, now time.Time, window time.Duration) (*models.Lockout, error) {
	k := lockoutPrefix + id
	var all *redis.MapStringStringCmd
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HIncrBy(ctx, k, "count", 1)
		p.HSet(ctx, k, "last", now.UnixMilli())
		all = p.HGetAll(ctx, k)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record failure: %w", err)
	}
	l := decodeLockout(id, all.Val())
	if err := r.extend(ctx, k, now, window, l.LockedUntil); err != nil {
		return nil, err
	}
	return l, nil
}

func (r *Redis) Lock(ctx context.Context, id string, until time.Time) error {
	k := lockoutPrefix + id
	if err := r.client.HSet(ctx, k, "locked_until", until.UnixMilli()).Err(); err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	return r.extend(ctx, k, time.Now(), 0, &until)
}

func (r *Redis) ClearLockout(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, lockoutPrefix+id).Err(); err != nil {
		return fmt.Errorf("clear lockout: %w", err)
	}
	return nil
}

// extend keeps the key alive for the longer of the streak window and the lock.
func (r *Redis) extend(ctx context.Context, k string, now time.Time, window time.Duration, lockedUntil *time.Time) error {
	ttl := window
	if lockedUntil != nil {
		ttl = max(ttl, lockedUntil.Sub(now))
	}
	if ttl <= 0 {
		return nil
	}
	if err := r.client.PExpire(ctx, k, ttl).Err(); err != nil {
		return fmt.Errorf("expire lockout: %w", err)
	}
	return nil
}

func decodeLockout(id string, vals map[string]string) *models.Lockout {
	l := &models.Lockout{Identifier: id}
	if v, err := strconv.Atoi(vals["count"]); err == nil {
		l.FailureCount = v
	}
	if v, err := strconv.ParseInt(vals["last"], 10, 64); err == nil {
		l.LastFailureAt = time.UnixMilli(v)
	}
	if v, err := strconv.ParseInt(vals["locked_until"], 10, 64); err == nil {
		until := time.UnixMilli(v)
		l.LockedUntil = &until
	}
	return l
}
