// Package pipeline orchestrates authentication, authorization, dispatch, and
// audit for guarded routes. It owns route matching so a parameterized pattern
// can never shadow a more specific static one, independent of registration
// order.
package pipeline

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/lexdesk/lexdesk/internal/shared"
)

// RouteSpec declares one guarded route: method, path pattern, the permission
// code the caller must hold (empty means authenticated but unrestricted), and
// the handler to invoke. Action and Resource feed the audit entry; both have
// sensible defaults derived from the pattern.
type RouteSpec struct {
	Method     string
	Pattern    string
	Permission shared.Code
	Action     string
	Resource   string
	Handler    http.Handler
}

type segment struct {
	literal string
	param   string // non-empty for {name} segments
}

func (s segment) isParam() bool { return s.param != "" }

type route struct {
	spec     RouteSpec
	segments []segment
}

// Spec returns the declaration this route was registered with.
func (rt *route) Spec() RouteSpec {
	return rt.spec
}

// Table holds the registered routes. Registration rejects ambiguous pairs, so
// matching is deterministic by construction.
type Table struct {
	routes []*route
}

// NewTable constructs an empty Table.
func NewTable() *Table {
	return &Table{}
}

// Register adds a route. It fails with shared.ErrConflict when the pattern is
// ambiguous with an already registered route for the same method: two
// patterns conflict when every position is either the same literal or both a
// parameter, because they would match the same requests.
func (t *Table) Register(spec RouteSpec) error {
	if spec.Handler == nil {
		return fmt.Errorf("pipeline: route %s %s requires a handler", spec.Method, spec.Pattern)
	}
	segments, err := parsePattern(spec.Pattern)
	if err != nil {
		return err
	}
	if spec.Action == "" {
		spec.Action = spec.Method + " " + spec.Pattern
	}
	if spec.Resource == "" {
		spec.Resource = defaultResource(segments)
	}
	candidate := &route{spec: spec, segments: segments}
	for _, existing := range t.routes {
		if existing.spec.Method != spec.Method {
			continue
		}
		if ambiguous(existing.segments, candidate.segments) {
			return fmt.Errorf("%w: route %s %s is ambiguous with %s",
				shared.ErrConflict, spec.Method, spec.Pattern, existing.spec.Pattern)
		}
	}
	t.routes = append(t.routes, candidate)
	return nil
}

// Match resolves the route for a request. A path that matches some pattern
// with a different method yields shared.ErrMethodNotAllowed together with the
// sorted list of allowed methods; a path matching nothing yields
// shared.ErrNotFound.
func (t *Table) Match(method, path string) (*route, map[string]string, []string, error) {
	segments := splitPath(path)

	var matching []*route
	for _, rt := range t.routes {
		if matchSegments(rt.segments, segments) {
			matching = append(matching, rt)
		}
	}
	if len(matching) == 0 {
		return nil, nil, nil, shared.ErrNotFound
	}

	var best *route
	allowed := make(map[string]struct{})
	for _, rt := range matching {
		allowed[rt.spec.Method] = struct{}{}
		if rt.spec.Method != method {
			continue
		}
		if best == nil || morePrecise(rt.segments, best.segments) {
			best = rt
		}
	}
	if best == nil {
		methods := make([]string, 0, len(allowed))
		for m := range allowed {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		return nil, nil, methods, shared.ErrMethodNotAllowed
	}

	params := make(map[string]string)
	for i, seg := range best.segments {
		if seg.isParam() {
			params[seg.param] = segments[i]
		}
	}
	return best, params, nil, nil
}

func parsePattern(pattern string) ([]segment, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("pipeline: pattern %q must start with /", pattern)
	}
	parts := splitPath(pattern)
	segments := make([]segment, len(parts))
	seen := make(map[string]struct{})
	for i, part := range parts {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			name := part[1 : len(part)-1]
			if name == "" {
				return nil, fmt.Errorf("pipeline: pattern %q has an unnamed parameter", pattern)
			}
			if _, dup := seen[name]; dup {
				return nil, fmt.Errorf("pipeline: pattern %q repeats parameter %q", pattern, name)
			}
			seen[name] = struct{}{}
			segments[i] = segment{param: name}
			continue
		}
		if part == "" {
			return nil, fmt.Errorf("pipeline: pattern %q has an empty segment", pattern)
		}
		segments[i] = segment{literal: part}
	}
	return segments, nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func matchSegments(pattern []segment, segments []string) bool {
	if len(pattern) != len(segments) {
		return false
	}
	for i, seg := range pattern {
		if seg.isParam() {
			continue
		}
		if seg.literal != segments[i] {
			return false
		}
	}
	return true
}

// morePrecise reports whether a beats b under static-before-dynamic: at the
// first position where exactly one side is a literal, the literal side wins.
func morePrecise(a, b []segment) bool {
	for i := range a {
		aStatic := !a[i].isParam()
		bStatic := !b[i].isParam()
		if aStatic != bStatic {
			return aStatic
		}
	}
	return false
}

func ambiguous(a, b []segment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].isParam() && b[i].isParam() {
			continue
		}
		if a[i].literal != b[i].literal {
			return false
		}
	}
	return true
}

func defaultResource(segments []segment) string {
	for _, seg := range segments {
		if !seg.isParam() {
			return seg.literal
		}
	}
	return "route"
}
