package app_test

import (
	"net/http"
	"testing"

	"github.com/lexdesk/lexdesk/internal/app"
	"github.com/lexdesk/lexdesk/internal/audit"
	"github.com/lexdesk/lexdesk/internal/auth"
	"github.com/lexdesk/lexdesk/internal/menu"
	"github.com/lexdesk/lexdesk/internal/pipeline"
	_ "github.com/lexdesk/lexdesk/testing"
)

func TestCoreRoutesRegisterWithoutConflict(t *testing.T) {
	authHandler := auth.NewHandler(nil, nil, nil, nil)
	menuHandler := menu.NewHandler(nil, nil, nil)
	auditHandler := audit.NewHandler(nil, nil)

	table := pipeline.NewTable()
	for _, spec := range app.CoreRoutes(authHandler, menuHandler, auditHandler) {
		if err := table.Register(spec); err != nil {
			t.Fatalf("register %s %s: %v", spec.Method, spec.Pattern, err)
		}
	}

	route, _, _, err := table.Match(http.MethodGet, "/menu/my")
	if err != nil {
		t.Fatalf("match /menu/my: %v", err)
	}
	if route == nil {
		t.Fatalf("expected a matched route for /menu/my")
	}
}

func TestAuditTimelineRequiresPermission(t *testing.T) {
	table := pipeline.NewTable()
	for _, spec := range app.CoreRoutes(auth.NewHandler(nil, nil, nil, nil), menu.NewHandler(nil, nil, nil), audit.NewHandler(nil, nil)) {
		if err := table.Register(spec); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	route, _, _, err := table.Match(http.MethodGet, "/audit/timeline")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if route.Spec().Permission != "AUDIT_VIEW" {
		t.Fatalf("audit timeline must require AUDIT_VIEW, got %q", route.Spec().Permission)
	}
}
