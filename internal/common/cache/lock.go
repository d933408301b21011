package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired 在等待时间内未能获取锁
var ErrLockNotAcquired = errors.New("cache: lock not acquired")

// ErrLockNotHeld 释放时锁已过期或被他人持有
var ErrLockNotHeld = errors.New("cache: lock not held")

// 仅当值与持有者令牌一致时删除
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

const lockPollInterval = 10 * time.Millisecond

// Locker 基于 SETNX 的分布式锁
type Locker struct {
	client redis.UniversalClient
}

// NewLocker 创建分布式锁
func NewLocker(client redis.UniversalClient) *Locker {
	return &Locker{client: client}
}

// Lock 已持有的锁
type Lock struct {
	client redis.UniversalClient
	key    string
	token  string
}

// Acquire 获取锁，wait 内轮询重试，超时返回 ErrLockNotAcquired
func (l *Locker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (*Lock, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return &Lock{client: l.client, key: key, token: token}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrLockNotAcquired
		}

		timer := time.NewTimer(lockPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Key 返回锁键
func (lk *Lock) Key() string {
	return lk.key
}

// Release 释放锁
func (lk *Lock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, lk.client, []string{lk.key}, lk.token).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
