package menu

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexdesk/lexdesk/internal/shared"
)

// Repository defines read access to the menu store. Writes belong to external
// menu-administration tooling, not to this core.
type Repository interface {
	ListActiveItems(ctx context.Context) ([]Item, error)
	OverridesForRole(ctx context.Context, roleID int64) ([]Override, error)
	RoleIDForUser(ctx context.Context, userID int64) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ListActiveItems returns every active menu item.
func (r *PGRepository) ListActiveItems(ctx context.Context) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, path, label, COALESCE(icon, ''), sort_order, COALESCE(parent_id, 0), is_active
		FROM menu_items
		WHERE is_active
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.Path, &item.Label, &item.Icon, &item.SortOrder, &item.ParentID, &item.IsActive); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// OverridesForRole returns the visibility overrides recorded for a role.
func (r *PGRepository) OverridesForRole(ctx context.Context, roleID int64) ([]Override, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT role_id, menu_item_id, is_visible
		FROM menu_permissions
		WHERE role_id = $1`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var overrides []Override
	for rows.Next() {
		var ov Override
		if err := rows.Scan(&ov.RoleID, &ov.MenuItemID, &ov.IsVisible); err != nil {
			return nil, err
		}
		overrides = append(overrides, ov)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return overrides, nil
}

// RoleIDForUser resolves the role reference of a user account.
func (r *PGRepository) RoleIDForUser(ctx context.Context, userID int64) (int64, error) {
	var roleID pgtype.Int8
	err := r.pool.QueryRow(ctx, `SELECT role_id FROM users WHERE id = $1`, userID).Scan(&roleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return roleID.Int64, nil
}

var _ Repository = (*PGRepository)(nil)
