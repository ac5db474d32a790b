package menu

// Item is one navigation entry. Items form a forest through ParentID; a zero
// ParentID marks a root. Inactive items are never loaded by the engine.
type Item struct {
	ID        int64
	Path      string
	Label     string
	Icon      string
	SortOrder int
	ParentID  int64
	IsActive  bool
}

// Override is a per-role visibility override. Without an override an item is
// visible to every role; at most one override exists per (role, item) pair.
type Override struct {
	RoleID     int64
	MenuItemID int64
	IsVisible  bool
}

// Node is one entry of the visible forest returned to callers.
type Node struct {
	ID        int64   `json:"id"`
	Path      string  `json:"path"`
	Label     string  `json:"label"`
	Icon      string  `json:"icon,omitempty"`
	SortOrder int     `json:"sort_order"`
	Children  []*Node `json:"children,omitempty"`
}
