package token

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRevocationList(t *testing.T) (*RevocationList, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRevocationList(client), mr
}

func TestRevokeAndCheck(t *testing.T) {
	list, _ := newTestRevocationList(t)
	ctx := context.Background()

	revoked, err := list.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatalf("fresh token id should not be revoked")
	}

	if err := list.Revoke(ctx, "jti-1", time.Hour); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err = list.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked {
		t.Fatalf("expected token id to be revoked")
	}
}

func TestRevocationExpiresWithToken(t *testing.T) {
	list, mr := newTestRevocationList(t)
	ctx := context.Background()

	if err := list.Revoke(ctx, "jti-2", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	revoked, err := list.IsRevoked(ctx, "jti-2")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatalf("revocation entry should expire with the token")
	}
}

func TestRevokeExpiredTokenIsNoop(t *testing.T) {
	list, mr := newTestRevocationList(t)
	if err := list.Revoke(context.Background(), "jti-3", -time.Second); err != nil {
		t.Fatalf("revoke expired: %v", err)
	}
	if mr.Exists(revocationKeyPrefix + "jti-3") {
		t.Fatalf("expired token should not be tracked")
	}
}
