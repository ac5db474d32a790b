package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/lexdesk/lexdesk/internal/audit"
	"github.com/lexdesk/lexdesk/internal/auth"
	"github.com/lexdesk/lexdesk/internal/menu"
	"github.com/lexdesk/lexdesk/internal/observability"
	"github.com/lexdesk/lexdesk/internal/pipeline"
	"github.com/lexdesk/lexdesk/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger      *slog.Logger
	Config      *Config
	AuthHandler *auth.Handler
	Pipeline    *pipeline.Pipeline
	Metrics     *observability.Metrics
	LoginPerMin int
}

// NewRouter constructs the chi.Router with LexDesk defaults. Guarded routes
// are dispatched through the pipeline mounted at the root; only the login
// endpoint and operational endpoints bypass it.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	loginLimit := params.LoginPerMin
	if loginLimit <= 0 {
		loginLimit = 10
	}
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(loginLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post("/auth/login", params.AuthHandler.HandleLogin)
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Mount("/", params.Pipeline)

	return r
}

// CoreRoutes declares the guarded routes owned by this core. Business routes
// from other modules are appended by the caller before the table is sealed.
func CoreRoutes(authHandler *auth.Handler, menuHandler *menu.Handler, auditHandler *audit.Handler) []pipeline.RouteSpec {
	return []pipeline.RouteSpec{
		{
			Method:   http.MethodPost,
			Pattern:  "/auth/logout",
			Action:   "auth.logout",
			Resource: "session",
			Handler:  http.HandlerFunc(authHandler.HandleLogout),
		},
		{
			Method:  http.MethodGet,
			Pattern: "/auth/me",
			Handler: http.HandlerFunc(authHandler.HandleMe),
		},
		{
			Method:  http.MethodGet,
			Pattern: "/menu/my",
			Handler: http.HandlerFunc(menuHandler.HandleMy),
		},
		{
			Method:     http.MethodGet,
			Pattern:    "/audit/timeline",
			Permission: shared.PermAuditView,
			Handler:    http.HandlerFunc(auditHandler.Timeline),
		},
	}
}
