package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/lexdesk/lexdesk/internal/audit"
	"github.com/lexdesk/lexdesk/internal/auth"
	"github.com/lexdesk/lexdesk/internal/rbac"
	"github.com/lexdesk/lexdesk/internal/shared"
	"github.com/lexdesk/lexdesk/internal/token"
	_ "github.com/lexdesk/lexdesk/testing"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

type stubRoleRepo struct {
	permissions []string
}

func (s *stubRoleRepo) GetRoleByName(ctx context.Context, name string) (rbac.Role, error) {
	return rbac.Role{}, shared.ErrNotFound
}

func (s *stubRoleRepo) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	return nil, nil
}

func (s *stubRoleRepo) PermissionsForRole(ctx context.Context, roleID int64) ([]string, error) {
	return s.permissions, nil
}

type recordingAuditor struct {
	entries []audit.Entry
}

func (r *recordingAuditor) Record(ctx context.Context, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func newAuthHandler(t *testing.T, repo auth.Repository, permissions []string) (*auth.Handler, *token.Service, *token.RevocationList, *recordingAuditor) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	tokens, err := token.NewService("lexdesk", "test-secret")
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	revocations := token.NewRevocationList(redisClient)
	resolver := rbac.NewResolver(&stubRoleRepo{permissions: permissions})
	auditor := &recordingAuditor{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := auth.NewHandler(logger, auth.NewService(repo, resolver, tokens), revocations, auditor)
	return handler, tokens, revocations, auditor
}

func activeUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{
		ID:           7,
		Email:        "partner@lexdesk.local",
		PasswordHash: string(hashed),
		DisplayName:  "Senior Partner",
		RoleID:       2,
		IsActive:     true,
	}
}

func TestLoginIssuesToken(t *testing.T) {
	user := activeUser(t, "correct-horse")
	handler, tokens, _, auditor := newAuthHandler(t, &stubRepo{user: user}, []string{"CASE_VIEW_ALL", "CASE_EDIT"})

	body := `{"email":"partner@lexdesk.local","password":"correct-horse"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.HandleLogin(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var payload struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
		User      struct {
			ID          int64  `json:"id"`
			Email       string `json:"email"`
			DisplayName string `json:"display_name"`
		} `json:"user"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.User.ID != 7 || payload.User.Email != "partner@lexdesk.local" {
		t.Fatalf("unexpected user payload: %+v", payload.User)
	}

	claims, err := tokens.Validate(payload.Token)
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}
	if claims.Subject != 7 {
		t.Fatalf("expected subject 7, got %d", claims.Subject)
	}
	if len(claims.Permissions) != 2 || claims.Permissions[0] != "CASE_VIEW_ALL" {
		t.Fatalf("unexpected permissions: %v", claims.Permissions)
	}

	if len(auditor.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(auditor.entries))
	}
	entry := auditor.entries[0]
	if entry.Outcome != audit.OutcomeSuccess || entry.ActorID != 7 || entry.Action != "auth.login" {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	user := activeUser(t, "correct-horse")
	handler, _, _, auditor := newAuthHandler(t, &stubRepo{user: user}, nil)

	body := `{"email":"partner@lexdesk.local","password":"wrong-password"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.HandleLogin(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if len(auditor.entries) != 1 || auditor.entries[0].Outcome != audit.OutcomeDenied {
		t.Fatalf("expected one denied audit entry, got %+v", auditor.entries)
	}
}

func TestLoginInactiveAccountIndistinguishable(t *testing.T) {
	user := activeUser(t, "correct-horse")
	user.IsActive = false
	handler, _, _, _ := newAuthHandler(t, &stubRepo{user: user}, nil)

	body := `{"email":"partner@lexdesk.local","password":"correct-horse"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.HandleLogin(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}

	unknownReq := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"nobody@lexdesk.local","password":"correct-horse"}`))
	unknownReq.Header.Set("Content-Type", "application/json")
	unknownRes := httptest.NewRecorder()
	handler.HandleLogin(unknownRes, unknownReq)

	if unknownRes.Body.String() != res.Body.String() {
		t.Fatalf("inactive and unknown accounts must produce identical responses")
	}
}

func TestLoginRejectsInvalidBody(t *testing.T) {
	handler, _, _, auditor := newAuthHandler(t, &stubRepo{}, nil)

	for _, body := range []string{"", "{", `{"email":"not-an-email","password":"pw"}`} {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		res := httptest.NewRecorder()
		handler.HandleLogin(res, req)
		if res.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, res.Code)
		}
	}
	if len(auditor.entries) != 0 {
		t.Fatalf("malformed requests must not reach the audit trail, got %+v", auditor.entries)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	user := activeUser(t, "correct-horse")
	handler, tokens, revocations, _ := newAuthHandler(t, &stubRepo{user: user}, nil)

	signed, err := tokens.Issue(user.ID, nil, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := tokens.Validate(signed)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req = req.WithContext(shared.ContextWithPrincipal(req.Context(), claims.Principal()))
	res := httptest.NewRecorder()
	handler.HandleLogout(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	revoked, err := revocations.IsRevoked(context.Background(), claims.TokenID)
	if err != nil {
		t.Fatalf("check revocation: %v", err)
	}
	if !revoked {
		t.Fatalf("expected token %s to be revoked", claims.TokenID)
	}
}

func TestLogoutWithoutPrincipal(t *testing.T) {
	handler, _, _, _ := newAuthHandler(t, &stubRepo{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	res := httptest.NewRecorder()
	handler.HandleLogout(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestMeEchoesClaims(t *testing.T) {
	user := activeUser(t, "correct-horse")
	handler, tokens, _, _ := newAuthHandler(t, &stubRepo{user: user}, nil)

	signed, err := tokens.Issue(user.ID, []shared.Code{shared.PermCaseViewOwn}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := tokens.Validate(signed)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(shared.ContextWithPrincipal(req.Context(), claims.Principal()))
	res := httptest.NewRecorder()
	handler.HandleMe(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var payload struct {
		UserID      int64    `json:"user_id"`
		Permissions []string `json:"permissions"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.UserID != user.ID {
		t.Fatalf("expected user_id %d, got %d", user.ID, payload.UserID)
	}
	if len(payload.Permissions) != 1 || payload.Permissions[0] != "CASE_VIEW_OWN" {
		t.Fatalf("unexpected permissions: %v", payload.Permissions)
	}
}
