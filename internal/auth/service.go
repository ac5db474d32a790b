package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/lexdesk/lexdesk/internal/rbac"
	"github.com/lexdesk/lexdesk/internal/shared"
	"github.com/lexdesk/lexdesk/internal/token"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	resolver *rbac.Resolver
	tokens   *token.Service
}

// NewService constructs a new Service.
func NewService(repo Repository, resolver *rbac.Resolver, tokens *token.Service) *Service {
	return &Service{repo: repo, resolver: resolver, tokens: tokens}
}

// Authenticate validates email/password credentials. Unknown accounts,
// disabled accounts, and wrong passwords all collapse into the same error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates credentials and issues a token carrying a snapshot of
// the role's permissions at this moment.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	permissions, err := s.resolver.PermissionsForRole(ctx, user.RoleID)
	if err != nil {
		return "", nil, err
	}
	signed, err := s.tokens.Issue(user.ID, permissions, 0)
	if err != nil {
		return "", nil, err
	}
	return signed, user, nil
}
