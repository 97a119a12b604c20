package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/decorhub/storefront/internal/core/ports"
)

// RoleCache stores resolved roles by email. Key format: role:<email>
// Entries expire on their own after the retention window.
type RoleCache struct {
	client *redis.Client
}

// NewRoleCache creates a RoleCache wrapping the given Redis client.
func NewRoleCache(client *redis.Client) *RoleCache {
	return &RoleCache{client: client}
}

// Get returns the cached entry, or nil when there is none.
func (c *RoleCache) Get(ctx context.Context, email string) (*ports.RoleEntry, error) {
	raw, err := c.client.Get(ctx, roleKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("role cache get: %w", err)
	}
	return decodeRoleEntry(raw)
}

// Set stores entry until retention elapses.
func (c *RoleCache) Set(ctx context.Context, email string, entry ports.RoleEntry, retention time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("role cache encode: %w", err)
	}
	if err := c.client.Set(ctx, roleKey(email), raw, retention).Err(); err != nil {
		return fmt.Errorf("role cache set: %w", err)
	}
	return nil
}

// Delete drops the entry for email.
func (c *RoleCache) Delete(ctx context.Context, email string) error {
	if err := c.client.Del(ctx, roleKey(email)).Err(); err != nil {
		return fmt.Errorf("role cache delete: %w", err)
	}
	return nil
}

func roleKey(email string) string {
	return "role:" + strings.ToLower(strings.TrimSpace(email))
}

func decodeRoleEntry(raw []byte) (*ports.RoleEntry, error) {
	var entry ports.RoleEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("role cache decode: %w", err)
	}
	return &entry, nil
}
