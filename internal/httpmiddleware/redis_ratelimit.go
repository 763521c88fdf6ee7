package httpmiddleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisSlidingWindow counts requests per key in a Redis sorted set so the
// limit holds across API replicas.
type RedisSlidingWindow struct {
	client *redis.Client
	prefix string
	window time.Duration
	max    int
	now    func() time.Time
}

// NewRedisSlidingWindow allows perMinute requests per key in any one-minute window.
func NewRedisSlidingWindow(client *redis.Client, perMinute int) *RedisSlidingWindow {
	return &RedisSlidingWindow{
		client: client,
		prefix: "staffattend:ratelimit:",
		window: time.Minute,
		max:    perMinute,
		now:    time.Now,
	}
}

// Limit returns the requests allowed per window.
func (l *RedisSlidingWindow) Limit() int { return l.max }

func (l *RedisSlidingWindow) Allow(ctx context.Context, key string) (bool, error) {
	k := l.prefix + key
	now := l.now()
	windowStart := now.Add(-l.window)

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, k, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	pipe.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	card := pipe.ZCard(ctx, k)
	pipe.Expire(ctx, k, l.window+10*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit pipeline: %w", err)
	}
	return int(card.Val()) <= l.max, nil
}
