package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunLock serializes overlapping pipeline runs across processes.
// Acquire is SET NX with a TTL; Release only deletes the key when the
// stored token matches, so an expired lock taken over by another run is
// never released by the original holder.
//
// When Redis is disabled, Acquire always succeeds and the pipeline falls
// back to last-writer-wins on the signal table upserts.
type RunLock struct {
	client *Client
	prefix string
}

// NewRunLock creates a new run lock helper.
func NewRunLock(client *Client, prefix string) *RunLock {
	return &RunLock{
		client: client,
		prefix: prefix,
	}
}

// releaseScript deletes the lock key only if it still holds our token.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Acquire attempts to take the named lock for ttl.
// Returns the release token and whether the lock was obtained.
func (l *RunLock) Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	if !l.client.Enabled() {
		return "", true, nil
	}

	token, err := newToken()
	if err != nil {
		return "", false, err
	}

	key := l.key(name)
	ok, err := l.client.Redis().SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("lock acquire failed: %w", err)
	}

	return token, ok, nil
}

// Release releases the named lock if token still owns it.
func (l *RunLock) Release(ctx context.Context, name, token string) error {
	if !l.client.Enabled() {
		return nil
	}

	key := l.key(name)
	if err := releaseScript.Run(ctx, l.client.Redis(), []string{key}, token).Err(); err != nil {
		return fmt.Errorf("lock release failed: %w", err)
	}
	return nil
}

func (l *RunLock) key(name string) string {
	return fmt.Sprintf("%s:lock:%s", l.prefix, name)
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("lock token generation failed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
