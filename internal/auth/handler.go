package auth

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lexdesk/lexdesk/internal/audit"
	"github.com/lexdesk/lexdesk/internal/platform/httpx"
	"github.com/lexdesk/lexdesk/internal/shared"
	"github.com/lexdesk/lexdesk/internal/token"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	revocations *token.RevocationList
	auditor     audit.Recorder
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, revocations *token.RevocationList, auditor audit.Recorder) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		revocations: revocations,
		auditor:     auditor,
		validator:   validator.New(),
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userInfo  `json:"user"`
}

type userInfo struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// HandleLogin serves POST /auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email and password are required")
		return
	}

	signed, user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.recordAudit(r, audit.Entry{
			Action:       "auth.login",
			ResourceType: "session",
			Outcome:      audit.OutcomeDenied,
			Diff:         map[string]any{"email": req.Email},
		})
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}

	claims, err := h.service.tokens.Validate(signed)
	if err != nil {
		h.logger.Error("validate freshly issued token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.recordAudit(r, audit.Entry{
		ActorID:      user.ID,
		Action:       "auth.login",
		ResourceType: "session",
		ResourceID:   claims.TokenID,
		Outcome:      audit.OutcomeSuccess,
	})

	httpx.JSON(w, http.StatusOK, loginResponse{
		Token:     signed,
		ExpiresAt: claims.ExpiresAt,
		User: userInfo{
			ID:          user.ID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
		},
	})
}

// HandleLogout serves POST /auth/logout. The pipeline has already validated
// the bearer token, so the principal is present in context.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	if err := h.revocations.Revoke(r.Context(), principal.TokenID, time.Until(principal.ExpiresAt)); err != nil {
		h.logger.Error("revoke token", slog.Any("error", err))
		httpx.RespondError(w, shared.ErrUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	UserID      int64     `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
	Permissions []string  `json:"permissions"`
}

// HandleMe serves GET /auth/me, echoing the validated claims.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	perms := make([]string, len(principal.Permissions))
	for i, p := range principal.Permissions {
		perms[i] = string(p)
	}
	httpx.JSON(w, http.StatusOK, meResponse{
		UserID:      principal.UserID,
		ExpiresAt:   principal.ExpiresAt,
		Permissions: perms,
	})
}

func (h *Handler) recordAudit(r *http.Request, entry audit.Entry) {
	if h.auditor == nil {
		return
	}
	if entry.ResourceID == "" && entry.ActorID != 0 {
		entry.ResourceID = strconv.FormatInt(entry.ActorID, 10)
	}
	if err := h.auditor.Record(r.Context(), entry); err != nil {
		h.logger.Warn("audit login", slog.Any("error", err))
	}
}
