package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	radix "github.com/mediocregopher/radix/v3"
	"go.uber.org/zap"

	"devpair-be/internal/logger"
)

const redisLockKey = "lock:%s"

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = radix.NewEvalScript(1, `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lease lock shared by every instance talking to the same Redis.
// A holder that outlives ttl loses the lock.
type Redis struct {
	client radix.Client
	ttl    time.Duration
	poll   time.Duration
}

func NewRedis(client radix.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, poll: 50 * time.Millisecond}
}

// Dial opens a small radix pool for the lock.
func Dial(addr string, ttl time.Duration) (*Redis, error) {
	pool, err := radix.NewPool("tcp", addr, 10)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewRedis(pool, ttl), nil
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	k := fmt.Sprintf(redisLockKey, key)
	ttlMs := fmt.Sprint(r.ttl.Milliseconds())

	for {
		var reply string
		mn := radix.MaybeNil{Rcv: &reply}
		if err := r.client.Do(radix.Cmd(&mn, "SET", k, token, "NX", "PX", ttlMs)); err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if !mn.Nil && reply == "OK" {
			break
		}

		t := time.NewTimer(r.poll)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	return func() {
		if err := r.client.Do(releaseScript.Cmd(nil, k, token)); err != nil {
			logger.Log.Warn("release redis lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
