package attention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classlens/pkg/redis"
	"classlens/pkg/scoring"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

const (
	keyPrefix  = "attention:"
	lockPrefix = "attention:lock:"

	defaultLockTTL   = 5 * time.Second
	lockRetryBackoff = 20 * time.Millisecond
	unlockTimeout    = 2 * time.Second
)

// RedisStore keeps state in Redis so several API replicas can share a stream.
// Entries expire after ttl without traffic. Lock takes a per-session lease so
// replicas never interleave a read-modify-write of the same session.
type RedisStore struct {
	client  redis.IRedis
	ttl     time.Duration
	lockTTL time.Duration
}

func NewRedisStore(client redis.IRedis, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, lockTTL: defaultLockTTL}
}

// Lock acquires the session lease with SET NX PX and an owner token, retrying
// until ctx is done. The returned func releases the lease only if this caller
// still owns it. A holder that outlives lockTTL loses the lease.
func (s *RedisStore) Lock(ctx context.Context, sessionID string) (func(), error) {
	key := lockPrefix + sessionID
	token := []byte(uuid.NewString())

	for {
		ok, err := s.client.SetNX(ctx, key, token, s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("lock attention state: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lock attention state: %w", ctx.Err())
		case <-time.After(lockRetryBackoff):
		}
	}

	return func() {
		uctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
		defer cancel()
		// A failed release expires with the lease.
		_, _ = s.client.CompareAndDelete(uctx, key, token)
	}, nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (scoring.AttentionState, bool, error) {
	raw, err := s.client.Get(ctx, keyPrefix+sessionID)
	if errors.Is(err, redis.ErrNotFound) {
		return scoring.AttentionState{}, false, nil
	}
	if err != nil {
		return scoring.AttentionState{}, false, fmt.Errorf("load attention state: %w", err)
	}

	var state scoring.AttentionState
	if err := jsoniter.Unmarshal(raw, &state); err != nil {
		return scoring.AttentionState{}, false, fmt.Errorf("decode attention state: %w", err)
	}
	return state, true, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, state scoring.AttentionState) error {
	raw, err := jsoniter.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode attention state: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+sessionID, raw, s.ttl); err != nil {
		return fmt.Errorf("save attention state: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Delete(ctx, keyPrefix+sessionID); err != nil {
		return fmt.Errorf("delete attention state: %w", err)
	}
	return nil
}
