package keylock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kamas-trade/kamasbot/internal/logger"
)

const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

const renewScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`

// Redis holds keys across bot replicas with SET NX and a per-holder token.
// The TTL bounds how long a crashed holder can block others; a live holder
// renews it every ttl/3 until release.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
	prefix string
}

func NewRedis(addr, password string) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       0,
		}),
		ttl:    2 * time.Minute,
		retry:  100 * time.Millisecond,
		prefix: "kamasbot:lock:",
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := r.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
		}
	}

	stop := make(chan struct{})
	go keepAlive(stop, r.ttl/3, key, func() (bool, error) {
		renewCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n, err := r.client.Eval(renewCtx, renewScript, []string{redisKey}, token, r.ttl.Milliseconds()).Int()
		return n == 1, err
	})

	var once sync.Once
	return func() {
		once.Do(func() { r.release(key, redisKey, token, stop) })
	}, nil
}

func (r *Redis) release(key, redisKey, token string, stop chan struct{}) {
	close(stop)
	// Release must not depend on the caller's context, which may already be done.
	relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := r.client.Eval(relCtx, releaseScript, []string{redisKey}, token).Int()
	if err != nil {
		logger.L().Warnf("release lock %s: %v", key, err)
		return
	}
	if n == 0 {
		logger.L().Warnf("lock %s expired before release", key)
	}
}

// keepAlive calls renew every interval until stop is closed or renew reports
// the lock is no longer held.
func keepAlive(stop <-chan struct{}, interval time.Duration, key string, renew func() (bool, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			held, err := renew()
			if err != nil {
				logger.L().Warnf("renew lock %s: %v", key, err)
				continue
			}
			if !held {
				logger.L().Warnf("lock %s lost while held", key)
				return
			}
		}
	}
}
