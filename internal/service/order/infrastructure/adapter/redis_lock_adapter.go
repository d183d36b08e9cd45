package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/redis"
)

const (
	releaseLockScriptName = "release_order_lock"
	lockRetryMin          = 5 * time.Millisecond
	lockRetryMax          = 100 * time.Millisecond
)

// RedisOrderLocker 实现了 port.OrderLocker 接口，适用于多实例部署。
// 锁值是随机 token，释放时用 Lua 脚本比较后删除，避免误删别人的锁。
type RedisOrderLocker struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewRedisOrderLocker 在创建时加载释放锁的 Lua 脚本
func NewRedisOrderLocker(redisClient *redis.Client, ttl time.Duration) (*RedisOrderLocker, error) {
	if err := redisClient.LoadScriptFromContent(releaseLockScriptName, releaseLockScript); err != nil {
		return nil, fmt.Errorf("failed to load release lock script: %w", err)
	}
	return &RedisOrderLocker{redisClient: redisClient, ttl: ttl}, nil
}

func lockKey(orderID string) string {
	return fmt.Sprintf("orderflow:lock:{%s}", orderID)
}

func (l *RedisOrderLocker) Lock(ctx context.Context, orderID string) (func(), error) {
	key := lockKey(orderID)
	token := uuid.NewString()
	backoff := lockRetryMin
	for {
		ok, err := l.redisClient.GetClient().SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("acquire redis lock %s: %w", key, err)
		}
		if ok {
			return func() { l.release(ctx, key, token) }, nil
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, lockRetryMax)
	}
}

func (l *RedisOrderLocker) release(ctx context.Context, key, token string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if _, err := l.redisClient.RunScript(releaseCtx, releaseLockScriptName, []string{key}, token); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("key", key).Msg("release redis lock")
	}
}

var releaseLockScript = `
-- KEYS[1]: 订单锁的 Key, 例如: orderflow:lock:{order-123}
-- ARGV[1]: 加锁时写入的 token

if redis.call('get', KEYS[1]) == ARGV[1] then
    return redis.call('del', KEYS[1])
end
return 0
`
