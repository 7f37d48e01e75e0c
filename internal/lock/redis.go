package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const lockKeyPrefix = "slotlock:"

type redisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Store backed by Redis. Holds are plain keys whose
// value is the owning user ID and whose TTL is the hold lifetime, so expiry
// needs no cleanup job.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Reserve(ctx context.Context, slotID, userID string, ttl time.Duration) (*Hold, error) {
	key := lockKeyPrefix + slotID

	// Two attempts: the second covers a hold expiring between SetNX and Get.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, key, userID, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("reserve slot %s failed: %w", slotID, err)
		}
		if ok {
			return &Hold{SlotID: slotID, UserID: userID, ExpiresAt: time.Now().Add(ttl)}, nil
		}

		// Key exists: either our own hold (refresh) or someone else's (conflict).
		owner, err := s.client.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("read slot %s owner failed: %w", slotID, err)
		}
		if owner != userID {
			return nil, ErrConflict
		}

		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return nil, fmt.Errorf("refresh slot %s hold failed: %w", slotID, err)
		}
		return &Hold{SlotID: slotID, UserID: userID, ExpiresAt: time.Now().Add(ttl)}, nil
	}

	return nil, fmt.Errorf("reserve slot %s failed: hold state kept changing", slotID)
}

func (s *redisStore) Release(ctx context.Context, slotID, userID string) error {
	key := lockKeyPrefix + slotID

	owner, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Already released or expired.
			return nil
		}
		return fmt.Errorf("read slot %s owner failed: %w", slotID, err)
	}
	if owner != userID {
		// Not ours to release.
		return nil
	}

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("release slot %s failed: %w", slotID, err)
	}
	return nil
}

func (s *redisStore) Extend(ctx context.Context, slotID, userID string, ttl time.Duration) (*Hold, error) {
	key := lockKeyPrefix + slotID

	owner, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotHeld
		}
		return nil, fmt.Errorf("read slot %s owner failed: %w", slotID, err)
	}
	if owner != userID {
		return nil, ErrNotHeld
	}

	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return nil, fmt.Errorf("extend slot %s hold failed: %w", slotID, err)
	}
	return &Hold{SlotID: slotID, UserID: userID, ExpiresAt: time.Now().Add(ttl)}, nil
}

func (s *redisStore) Status(ctx context.Context, slotID string) (*Hold, error) {
	key := lockKeyPrefix + slotID

	owner, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read slot %s owner failed: %w", slotID, err)
	}

	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read slot %s ttl failed: %w", slotID, err)
	}

	return &Hold{SlotID: slotID, UserID: owner, ExpiresAt: time.Now().Add(ttl)}, nil
}
