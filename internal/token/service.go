// Package token issues and validates the signed bearer tokens used by the
// request pipeline. Validation is a pure function of the token string and the
// configured secrets; it never touches a data store.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lexdesk/lexdesk/internal/shared"
)

const defaultTTL = 2 * time.Hour

var (
	// ErrBadSignature indicates the token was not signed by any trusted secret.
	ErrBadSignature = errors.New("token: bad signature")
	// ErrExpired indicates a well-formed, correctly signed token past its expiry.
	ErrExpired = errors.New("token: expired")
	// ErrMalformed indicates the token string could not be parsed.
	ErrMalformed = errors.New("token: malformed")
)

// Claims is the verified claim set carried by a token.
type Claims struct {
	Subject     int64
	Issuer      string
	TokenID     string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Permissions []shared.Code
}

// Principal converts the claims into the request principal shape.
func (c *Claims) Principal() *shared.Principal {
	return &shared.Principal{
		UserID:      c.Subject,
		TokenID:     c.TokenID,
		ExpiresAt:   c.ExpiresAt,
		Permissions: c.Permissions,
	}
}

type jwtClaims struct {
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens. Only the active secret signs; retired
// secrets still verify so rotation does not invalidate outstanding sessions.
type Service struct {
	issuer  string
	active  []byte
	retired [][]byte
	ttl     time.Duration
	now     func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithRetiredSecrets adds previously active secrets still trusted for verification.
func WithRetiredSecrets(secrets ...string) Option {
	return func(s *Service) {
		for _, sec := range secrets {
			if sec != "" {
				s.retired = append(s.retired, []byte(sec))
			}
		}
	}
}

// WithTTL overrides the default token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service signing with the given active secret.
func NewService(issuer, secret string, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, errors.New("token: signing secret required")
	}
	svc := &Service{
		issuer: issuer,
		active: []byte(secret),
		ttl:    defaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// TTL returns the configured token lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue builds and signs a token for the user carrying a snapshot of the
// permissions valid right now. Later permission changes do not affect the
// token until reissue.
func (s *Service) Issue(userID int64, permissions []shared.Code, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := s.now().UTC()
	perms := make([]string, len(permissions))
	for i, p := range permissions {
		perms[i] = string(p)
	}
	claims := jwtClaims{
		Permissions: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   formatSubject(userID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.active)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Validate verifies the token against the active secret first and each retired
// secret after, returning the claims on success. Errors are one of
// ErrBadSignature, ErrExpired, or ErrMalformed.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	secrets := make([][]byte, 0, 1+len(s.retired))
	secrets = append(secrets, s.active)
	secrets = append(secrets, s.retired...)

	for _, secret := range secrets {
		parsed, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(t *jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
		if err != nil {
			switch {
			case errors.Is(err, jwt.ErrTokenSignatureInvalid):
				// Wrong secret; a retired one may still match.
				continue
			case errors.Is(err, jwt.ErrTokenExpired):
				return nil, ErrExpired
			default:
				return nil, ErrMalformed
			}
		}
		return toClaims(parsed.Claims.(*jwtClaims))
	}
	return nil, ErrBadSignature
}

func toClaims(raw *jwtClaims) (*Claims, error) {
	subject, err := parseSubject(raw.Subject)
	if err != nil {
		return nil, ErrMalformed
	}
	claims := &Claims{
		Subject: subject,
		Issuer:  raw.Issuer,
		TokenID: raw.ID,
	}
	if raw.IssuedAt != nil {
		claims.IssuedAt = raw.IssuedAt.Time
	}
	if raw.ExpiresAt != nil {
		claims.ExpiresAt = raw.ExpiresAt.Time
	}
	claims.Permissions = make([]shared.Code, len(raw.Permissions))
	for i, p := range raw.Permissions {
		claims.Permissions[i] = shared.Code(p)
	}
	return claims, nil
}
