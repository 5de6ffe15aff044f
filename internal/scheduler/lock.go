package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker is a best-effort distributed lock so only one scheduler
// instance claims a compliance run. A nil Locker degrades to a local
// mutex, which is enough for single-instance deployments.
type Locker struct {
	client *redis.Client
	script *redis.Script

	mu    sync.Mutex
	local map[string]string
}

func NewLocker(client *redis.Client) *Locker {
	l := &Locker{local: make(map[string]string)}
	if client != nil {
		l.client = client
		l.script = redis.NewScript(lockReleaseScript)
	}
	return l
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()

	if l.client == nil {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, held := l.local[key]; held {
			return "", false, nil
		}
		l.local[key] = token
		return token, true, nil
	}

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *Locker) Release(ctx context.Context, key, token string) error {
	if key == "" || token == "" {
		return nil
	}

	if l.client == nil {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.local[key] == token {
			delete(l.local, key)
		}
		return nil
	}

	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}
