package interviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"jobprep-backend/internal/shared/telemetry"
)

const (
	defaultKeyPrefix = "jobprep:interview:"
	defaultLockTTL   = 2 * time.Minute
	lockRetryDelay   = 25 * time.Millisecond
)

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisStore keeps sessions as JSON values that expire with their
// retention window.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	lockTTL time.Duration
	now     func() time.Time
}

func NewRedisStore(client *redis.Client, prefix string, now func() time.Time) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &RedisStore{client: client, prefix: prefix, lockTTL: defaultLockTTL, now: now}
}

func (r *RedisStore) sessionKey(id string) string { return r.prefix + "session:" + id }
func (r *RedisStore) lockKey(id string) string    { return r.prefix + "lock:" + id }

func (r *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	raw, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	if s.Expired(r.now()) {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (r *RedisStore) Put(ctx context.Context, s Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	var ttl time.Duration
	if !s.ExpiresAt.IsZero() {
		ttl = s.ExpiresAt.Sub(r.now())
		if ttl <= 0 {
			return r.Delete(ctx, s.ID)
		}
	}
	if err := r.client.Set(ctx, r.sessionKey(s.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("put session %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// Sweep removes sessions that are past retention by the given clock. Keys
// normally expire on their own; this catches clock skew between the API
// and Redis.
func (r *RedisStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"session:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return removed, err
		}
		var s Session
		if err := json.Unmarshal(raw, &s); err != nil {
			telemetry.Warn("interview.sweep_decode_failed", map[string]any{"key": key, "error": err})
			continue
		}
		if !s.Expired(now) {
			continue
		}
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, iter.Err()
}

// Lock takes a lease on the session with SET NX PX and polls until it is
// acquired or ctx is done.
func (r *RedisStore) Lock(ctx context.Context, id string) (func(), error) {
	key := r.lockKey(id)
	token := uuid.NewString()
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("lock session %s: %w", id, err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(lockRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, r.client, []string{key}, token).Err(); err != nil {
			telemetry.Warn("interview.unlock_failed", map[string]any{"interviewId": id, "error": err})
		}
	}, nil
}

var _ Store = (*RedisStore)(nil)
