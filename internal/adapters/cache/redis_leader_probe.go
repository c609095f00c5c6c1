package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/caseflow/followup-service/internal/ports"
)

const leaderKey = "followup:scheduler:leader"

// RedisLeaderProbe elects a leader with a single expiring redis key. The
// holder refreshes its lease on every probe; when the key lapses the next
// prober takes over. A short double-execution window around handover is
// acceptable because every scheduled job is idempotent.
type RedisLeaderProbe struct {
	client   *redis.Client
	instance string
	leaseTTL time.Duration
	disabled bool
}

// NewRedisLeaderProbe creates the probe. With election disabled every
// replica reports leadership, which is only safe for single-replica setups.
func NewRedisLeaderProbe(client *redis.Client, instance string, leaseTTL time.Duration, disabled bool) *RedisLeaderProbe {
	if leaseTTL <= 0 {
		leaseTTL = 30 * time.Second
	}
	return &RedisLeaderProbe{
		client:   client,
		instance: instance,
		leaseTTL: leaseTTL,
		disabled: disabled,
	}
}

func (p *RedisLeaderProbe) IsLeader(ctx context.Context) (bool, error) {
	if p.disabled {
		return true, nil
	}
	ok, err := p.client.SetNX(ctx, leaderKey, p.instance, p.leaseTTL).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	holder, err := p.client.Get(ctx, leaderKey).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if holder != p.instance {
		return false, nil
	}
	// Refresh the lease while we hold it.
	_ = p.client.Expire(ctx, leaderKey, p.leaseTTL).Err()
	return true, nil
}

// Resign releases leadership if this instance holds it, used on shutdown so
// a successor does not have to wait out the lease.
func (p *RedisLeaderProbe) Resign(ctx context.Context) {
	if p.disabled {
		return
	}
	holder, err := p.client.Get(ctx, leaderKey).Result()
	if err != nil || holder != p.instance {
		return
	}
	_ = p.client.Del(ctx, leaderKey).Err()
}

var _ ports.LeaderProbe = (*RedisLeaderProbe)(nil)
