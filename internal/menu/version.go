package menu

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// VersionSource reports the current menu data version. External
// menu-administration tooling bumps the version whenever it writes a
// MenuItem or MenuPermission row, before its transaction is acknowledged.
type VersionSource interface {
	MenuVersion(ctx context.Context) (string, error)
}

const versionKey = "lexdesk:menu:version"

// RedisVersionSource reads the menu version from Redis.
type RedisVersionSource struct {
	client *redis.Client
}

// NewRedisVersionSource constructs a RedisVersionSource.
func NewRedisVersionSource(client *redis.Client) *RedisVersionSource {
	return &RedisVersionSource{client: client}
}

// MenuVersion returns the stored version; a missing key reads as "0".
func (s *RedisVersionSource) MenuVersion(ctx context.Context) (string, error) {
	version, err := s.client.Get(ctx, versionKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "0", nil
		}
		return "", err
	}
	return version, nil
}

// Bump advances the version, invalidating every cached snapshot. Exposed for
// admin tooling and tests.
func (s *RedisVersionSource) Bump(ctx context.Context) error {
	return s.client.Incr(ctx, versionKey).Err()
}

var _ VersionSource = (*RedisVersionSource)(nil)
