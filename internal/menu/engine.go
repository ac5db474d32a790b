package menu

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lexdesk/lexdesk/internal/shared"
)

const defaultStoreTimeout = 3 * time.Second

// Engine computes the menu forest visible to a role. Computed forests are
// cached in whole-snapshot fashion: a version bump swaps the entire snapshot,
// readers never observe a partially invalidated cache, and a failed refresh
// falls back to the last known-good snapshot.
type Engine struct {
	repo     Repository
	versions VersionSource
	logger   *slog.Logger
	timeout  time.Duration

	snap atomic.Pointer[snapshot]
	prev atomic.Pointer[snapshot]
}

type snapshot struct {
	version string

	mu          sync.RWMutex
	items       []Item
	itemsLoaded bool
	forests     map[int64][]*Node
}

// EngineOption configures Engine behavior.
type EngineOption func(*Engine)

// WithStoreTimeout bounds menu store reads during a refresh.
func WithStoreTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEngine constructs an Engine. A nil version source disables external
// invalidation; the first computed snapshot is then kept for the process
// lifetime.
func NewEngine(repo Repository, versions VersionSource, logger *slog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		repo:     repo,
		versions: versions,
		logger:   logger,
		timeout:  defaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// VisibleMenuFor returns the ordered forest of menu items visible to the role.
func (e *Engine) VisibleMenuFor(ctx context.Context, roleID int64) ([]*Node, error) {
	snap := e.current(ctx)

	snap.mu.RLock()
	forest, ok := snap.forests[roleID]
	snap.mu.RUnlock()
	if ok {
		return forest, nil
	}

	snap.mu.Lock()
	defer snap.mu.Unlock()
	if forest, ok := snap.forests[roleID]; ok {
		return forest, nil
	}

	forest, err := e.computeLocked(ctx, snap, roleID)
	if err != nil {
		if stale, ok := e.staleForest(roleID); ok {
			e.warn("menu refresh failed, serving stale snapshot", err)
			return stale, nil
		}
		e.warn("menu refresh failed", err)
		return nil, shared.ErrUnavailable
	}
	snap.forests[roleID] = forest
	return forest, nil
}

// current resolves the active snapshot, swapping in a fresh one when the
// externally managed menu version moved.
func (e *Engine) current(ctx context.Context) *snapshot {
	version := e.currentVersion(ctx)
	snap := e.snap.Load()
	if snap != nil && snap.version == version {
		return snap
	}
	fresh := &snapshot{version: version, forests: make(map[int64][]*Node)}
	if e.snap.CompareAndSwap(snap, fresh) {
		if snap != nil {
			e.prev.Store(snap)
		}
		return fresh
	}
	if current := e.snap.Load(); current != nil {
		return current
	}
	return fresh
}

func (e *Engine) currentVersion(ctx context.Context) string {
	if e.versions == nil {
		return "static"
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	version, err := e.versions.MenuVersion(ctx)
	if err != nil {
		// Version lookup failure must not stall the request; keep serving the
		// snapshot already in hand.
		if snap := e.snap.Load(); snap != nil {
			e.warn("menu version lookup failed, keeping current snapshot", err)
			return snap.version
		}
		e.warn("menu version lookup failed", err)
		return "0"
	}
	return version
}

func (e *Engine) computeLocked(ctx context.Context, snap *snapshot, roleID int64) ([]*Node, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if !snap.itemsLoaded {
		items, err := e.repo.ListActiveItems(ctx)
		if err != nil {
			return nil, err
		}
		snap.items = items
		snap.itemsLoaded = true
	}
	overrides, err := e.repo.OverridesForRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return BuildForest(snap.items, overrides), nil
}

func (e *Engine) staleForest(roleID int64) ([]*Node, bool) {
	prev := e.prev.Load()
	if prev == nil {
		return nil, false
	}
	prev.mu.RLock()
	defer prev.mu.RUnlock()
	forest, ok := prev.forests[roleID]
	return forest, ok
}

func (e *Engine) warn(msg string, err error) {
	if e.logger != nil {
		e.logger.Warn(msg, slog.Any("error", err))
	}
}

// BuildForest assembles the visible forest for one role from the full item
// arena and the role's overrides. Rules:
//
//   - no override means visible
//   - a hide override removes the item and, transitively, every descendant,
//     regardless of the descendants' own overrides
//   - a visible override cannot resurrect an item under a hidden ancestor
//   - items whose parent is missing or inactive become roots, never dropped
//   - siblings order by (sort_order, path)
func BuildForest(items []Item, overrides []Override) []*Node {
	arena := make(map[int64]*Item, len(items))
	for i := range items {
		arena[items[i].ID] = &items[i]
	}

	severed := findCycleBreaks(items, arena)

	hidden := make(map[int64]bool, len(overrides))
	for _, ov := range overrides {
		if !ov.IsVisible {
			hidden[ov.MenuItemID] = true
		}
	}

	children := make(map[int64][]*Item)
	var roots []*Item
	for i := range items {
		item := &items[i]
		parent := effectiveParent(item, arena, severed)
		if parent == 0 {
			roots = append(roots, item)
		} else {
			children[parent] = append(children[parent], item)
		}
	}

	var build func(list []*Item) []*Node
	build = func(list []*Item) []*Node {
		sortItems(list)
		var nodes []*Node
		for _, item := range list {
			if hidden[item.ID] {
				// Ancestor hide wins: the whole subtree is skipped before any
				// child override is even considered.
				continue
			}
			nodes = append(nodes, &Node{
				ID:        item.ID,
				Path:      item.Path,
				Label:     item.Label,
				Icon:      item.Icon,
				SortOrder: item.SortOrder,
				Children:  build(children[item.ID]),
			})
		}
		return nodes
	}
	return build(roots)
}

func effectiveParent(item *Item, arena map[int64]*Item, severed map[int64]bool) int64 {
	if item.ParentID == 0 || severed[item.ID] {
		return 0
	}
	if _, ok := arena[item.ParentID]; !ok {
		// Orphan: parent missing or inactive. Promote to root.
		return 0
	}
	return item.ParentID
}

// findCycleBreaks walks each item's ancestor chain with a visited-set guard.
// When a chain loops, the first looping item in deterministic (sort_order,
// path) order has its parent link severed so the remaining members hang off
// it as ordinary descendants.
func findCycleBreaks(items []Item, arena map[int64]*Item) map[int64]bool {
	ordered := make([]*Item, 0, len(items))
	for i := range items {
		ordered = append(ordered, &items[i])
	}
	sortItems(ordered)

	severed := make(map[int64]bool)
	for _, item := range ordered {
		visited := map[int64]bool{item.ID: true}
		current := item
		for {
			parentID := current.ParentID
			if parentID == 0 || severed[current.ID] {
				break
			}
			parent, ok := arena[parentID]
			if !ok {
				break
			}
			if visited[parent.ID] {
				severed[item.ID] = true
				break
			}
			visited[parent.ID] = true
			current = parent
		}
	}
	return severed
}

func sortItems(list []*Item) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].SortOrder != list[j].SortOrder {
			return list[i].SortOrder < list[j].SortOrder
		}
		return list[i].Path < list[j].Path
	})
}
