package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/decorhub/storefront/internal/core/domain"
)

// SnapshotStore persists signed-in identities per browser session.
// Key format: session:<session_id>
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotStore creates a SnapshotStore. Loading a snapshot slides its
// expiry forward by ttl.
func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{client: client, ttl: ttl}
}

func (s *SnapshotStore) Save(ctx context.Context, sessionID string, id domain.Identity, ttl time.Duration) error {
	raw, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("snapshot encode: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sessionID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("snapshot save: %w", err)
	}
	return nil
}

// Load returns the stored identity, or nil when the session has none.
func (s *SnapshotStore) Load(ctx context.Context, sessionID string) (*domain.Identity, error) {
	raw, err := s.client.GetEx(ctx, sessionKey(sessionID), s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot load: %w", err)
	}
	var id domain.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, fmt.Errorf("snapshot decode: %w", err)
	}
	if id.UID == "" {
		return nil, nil
	}
	return &id, nil
}

func (s *SnapshotStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("snapshot delete: %w", err)
	}
	return nil
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}
