package replayguard

import (
	"context"
	"fmt"
	"time"

	"github.com/questx-lab/rewardissuer/internal/common"
	"github.com/questx-lab/rewardissuer/pkg/xredis"
)

const clearScanCount = 500

type redisGuard struct {
	client xredis.Client
	ttl    time.Duration
}

// NewRedisGuard shares the entries between every instance of the service. Entries also expire
// on their own after ttl so a missed Clear does not keep nonces burned forever.
func NewRedisGuard(client xredis.Client, ttl time.Duration) *redisGuard {
	return &redisGuard{client: client, ttl: ttl}
}

func (g *redisGuard) Reserve(ctx context.Context, recipient, nonce string) (bool, error) {
	ok, err := g.client.SetNX(ctx, common.RedisKeyReplayGuard(Key(recipient, nonce)), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("cannot reserve replay guard entry: %w", err)
	}

	return ok, nil
}

// Clear walks the entries with SCAN so a large guard never blocks redis.
func (g *redisGuard) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := g.client.Scan(ctx, cursor, common.RedisPatternReplayGuard(), clearScanCount)
		if err != nil {
			return fmt.Errorf("cannot list replay guard entries: %w", err)
		}

		if err := g.client.Del(ctx, keys...); err != nil {
			return fmt.Errorf("cannot delete replay guard entries: %w", err)
		}

		if next == 0 {
			return nil
		}
		cursor = next
	}
}
