package timeslot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Index resolves a bare slot ID back to its slot metadata. Entries are
// written whenever a slot grid is generated and expire after the index TTL,
// so an ID for a slot that is no longer offered resolves to nothing.
type Index interface {
	Save(ctx context.Context, slots []Slot, ttl time.Duration) error

	// Get returns ErrSlotNotFound for unknown or expired IDs.
	Get(ctx context.Context, slotID string) (*Slot, error)
}

const indexKeyPrefix = "slot:"

type redisIndex struct {
	client *redis.Client
}

// NewRedisIndex creates an Index backed by Redis with per-entry TTLs.
func NewRedisIndex(client *redis.Client) Index {
	return &redisIndex{client: client}
}

func (i *redisIndex) Save(ctx context.Context, slots []Slot, ttl time.Duration) error {
	pipe := i.client.Pipeline()
	for _, s := range slots {
		payload, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal slot %s failed: %w", s.ID, err)
		}
		pipe.Set(ctx, indexKeyPrefix+s.ID, payload, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save slot index failed: %w", err)
	}
	return nil
}

func (i *redisIndex) Get(ctx context.Context, slotID string) (*Slot, error) {
	payload, err := i.client.Get(ctx, indexKeyPrefix+slotID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("get slot index entry failed: %w", err)
	}

	var s Slot
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("unmarshal slot %s failed: %w", slotID, err)
	}
	return &s, nil
}

type memoryEntry struct {
	slot      Slot
	expiresAt time.Time
}

type memoryIndex struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryIndex creates an in-process Index for tests and single-instance
// deployments without Redis.
func NewMemoryIndex() Index {
	return &memoryIndex{entries: make(map[string]memoryEntry)}
}

func (i *memoryIndex) Save(_ context.Context, slots []Slot, ttl time.Duration) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	expiresAt := time.Now().Add(ttl)
	for _, s := range slots {
		i.entries[s.ID] = memoryEntry{slot: s, expiresAt: expiresAt}
	}
	return nil
}

func (i *memoryIndex) Get(_ context.Context, slotID string) (*Slot, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	e, ok := i.entries[slotID]
	if !ok {
		return nil, ErrSlotNotFound
	}
	if time.Now().After(e.expiresAt) {
		delete(i.entries, slotID)
		return nil, ErrSlotNotFound
	}

	s := e.slot
	return &s, nil
}
