package token

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const revocationKeyPrefix = "lexdesk:revoked:"

// RevocationList tracks explicitly revoked token IDs in Redis. Entries expire
// together with the token itself, so the list never outgrows the set of
// tokens that are still otherwise valid.
type RevocationList struct {
	client *redis.Client
}

// NewRevocationList constructs a RevocationList.
func NewRevocationList(client *redis.Client) *RevocationList {
	return &RevocationList{client: client}
}

// Revoke marks the token ID as revoked until its natural expiry.
func (l *RevocationList) Revoke(ctx context.Context, tokenID string, until time.Duration) error {
	if tokenID == "" {
		return errors.New("token: revoke requires a token id")
	}
	if until <= 0 {
		// Already expired; nothing to track.
		return nil
	}
	return l.client.Set(ctx, revocationKeyPrefix+tokenID, "1", until).Err()
}

// IsRevoked reports whether the token ID is on the deny list.
func (l *RevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	err := l.client.Get(ctx, revocationKeyPrefix+tokenID).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
