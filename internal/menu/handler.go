package menu

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/lexdesk/lexdesk/internal/platform/httpx"
	"github.com/lexdesk/lexdesk/internal/shared"
)

// Handler serves the menu endpoints.
type Handler struct {
	logger *slog.Logger
	engine *Engine
	repo   Repository
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, engine *Engine, repo Repository) *Handler {
	return &Handler{logger: logger, engine: engine, repo: repo}
}

type menuResponse struct {
	Items []*Node `json:"items"`
}

// HandleMy serves GET /menu/my, returning the forest visible to the caller's
// role.
func (h *Handler) HandleMy(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	roleID, err := h.repo.RoleIDForUser(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		h.logger.Error("resolve role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	forest, err := h.engine.VisibleMenuFor(r.Context(), roleID)
	if err != nil {
		h.logger.Error("visible menu", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if forest == nil {
		forest = []*Node{}
	}
	httpx.JSON(w, http.StatusOK, menuResponse{Items: forest})
}
