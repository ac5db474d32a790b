package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lexdesk/lexdesk/internal/audit"
	"github.com/lexdesk/lexdesk/internal/observability"
	"github.com/lexdesk/lexdesk/internal/platform/httpx"
	"github.com/lexdesk/lexdesk/internal/shared"
	"github.com/lexdesk/lexdesk/internal/token"
)

// TokenValidator verifies a bearer token string.
type TokenValidator interface {
	Validate(tokenString string) (*token.Claims, error)
}

// RevocationChecker consults the token deny list.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Authorizer decides whether a principal satisfies a required capability.
type Authorizer interface {
	Authorize(principal *shared.Principal, required shared.Code) bool
}

// Pipeline guards registered routes: validate token, resolve principal, check
// permission, invoke handler, record audit. It implements http.Handler.
type Pipeline struct {
	logger      *slog.Logger
	table       *Table
	tokens      TokenValidator
	revocations RevocationChecker
	authorizer  Authorizer
	auditor     audit.Recorder
	metrics     *observability.Metrics
}

// Config groups the pipeline dependencies.
type Config struct {
	Logger      *slog.Logger
	Table       *Table
	Tokens      TokenValidator
	Revocations RevocationChecker // optional
	Authorizer  Authorizer
	Auditor     audit.Recorder         // optional
	Metrics     *observability.Metrics // optional
}

// New constructs a Pipeline.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		logger:      cfg.Logger,
		table:       cfg.Table,
		tokens:      cfg.Tokens,
		revocations: cfg.Revocations,
		authorizer:  cfg.Authorizer,
		auditor:     cfg.Auditor,
		metrics:     cfg.Metrics,
	}
}

func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route, params, allowed, err := p.table.Match(r.Method, r.URL.Path)
	if err != nil {
		switch {
		case len(allowed) > 0:
			w.Header().Set("Allow", strings.Join(allowed, ", "))
			httpx.RespondError(w, shared.ErrMethodNotAllowed)
		default:
			httpx.RespondError(w, shared.ErrNotFound)
		}
		return
	}

	principal, reason := p.authenticate(r)
	if principal == nil {
		// One generic response for every authentication failure; the precise
		// reason stays in logs and metrics only.
		p.metrics.IncDenial(reason)
		if p.logger != nil {
			p.logger.Warn("request denied",
				slog.String("route", route.spec.Pattern),
				slog.String("reason", reason),
			)
		}
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}

	ctx := shared.ContextWithPrincipal(r.Context(), principal)
	ctx = contextWithParams(ctx, params)
	r = r.WithContext(ctx)

	if !p.authorizer.Authorize(principal, route.spec.Permission) {
		p.metrics.IncDenial("forbidden")
		p.recordAudit(ctx, route, params, principal, audit.OutcomeDenied)
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}

	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	route.spec.Handler.ServeHTTP(recorder, r)

	if mutating(r.Method) || recorder.status == http.StatusForbidden {
		p.recordAudit(ctx, route, params, principal, outcomeForStatus(recorder.status))
	}
}

func (p *Pipeline) authenticate(r *http.Request) (*shared.Principal, string) {
	raw := bearerToken(r)
	if raw == "" {
		return nil, "missing_token"
	}
	claims, err := p.tokens.Validate(raw)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrExpired):
			return nil, "expired"
		case errors.Is(err, token.ErrBadSignature):
			return nil, "bad_signature"
		default:
			return nil, "malformed"
		}
	}
	if p.revocations != nil {
		revoked, err := p.revocations.IsRevoked(r.Context(), claims.TokenID)
		if err != nil {
			// The deny list is best-effort; its unavailability must not stall
			// the authorization decision.
			if p.logger != nil {
				p.logger.Warn("revocation check failed", slog.Any("error", err))
			}
		} else if revoked {
			return nil, "revoked"
		}
	}
	return claims.Principal(), ""
}

func (p *Pipeline) recordAudit(ctx context.Context, route *route, params map[string]string, principal *shared.Principal, outcome audit.Outcome) {
	if p.auditor == nil {
		return
	}
	entry := audit.Entry{
		ActorID:      principal.UserID,
		Action:       route.spec.Action,
		ResourceType: route.spec.Resource,
		ResourceID:   route.firstParam(params),
		Outcome:      outcome,
	}
	if err := p.auditor.Record(ctx, entry); err != nil {
		// Reported, never fatal: the business outcome stands.
		p.metrics.IncAuditFailure()
		if p.logger != nil {
			p.logger.Error("audit record failed",
				slog.String("action", entry.Action),
				slog.Any("error", err),
			)
		}
	}
}

func (rt *route) firstParam(params map[string]string) string {
	for _, seg := range rt.segments {
		if seg.isParam() {
			return params[seg.param]
		}
	}
	return ""
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func mutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

func outcomeForStatus(status int) audit.Outcome {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return audit.OutcomeDenied
	case status < 400:
		return audit.OutcomeSuccess
	default:
		return audit.OutcomeError
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type paramsContextKey struct{}

func contextWithParams(ctx context.Context, params map[string]string) context.Context {
	return context.WithValue(ctx, paramsContextKey{}, params)
}

// PathParam returns the named path parameter captured by the matcher.
func PathParam(ctx context.Context, name string) string {
	params, _ := ctx.Value(paramsContextKey{}).(map[string]string)
	return params[name]
}
