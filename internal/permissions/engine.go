// Package permissions decides which product columns each role may write.
//
// Only Admins are gated. A column without an override row is editable, so a
// column added to the catalog later stays writable until a Superadmin locks
// it. Superadmins are never filtered.
package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gnhindia1-ui/collab/internal/auth"
)

var (
	ErrUnknownColumn   = errors.New("unknown column")
	ErrRoleNotGoverned = errors.New("role is not subject to column permissions")
	ErrUnknownRole     = errors.New("unknown role")
)

type Permission struct {
	ColumnName string `json:"column_name"`
	IsEditable bool   `json:"is_editable"`
}

// ColumnSource lists the governed columns of the record type, in schema order,
// without identity and audit columns.
type ColumnSource interface {
	GovernedColumns(ctx context.Context) ([]string, error)
}

type Engine struct {
	store   *Store
	columns ColumnSource
}

func NewEngine(store *Store, columns ColumnSource) *Engine {
	return &Engine{store: store, columns: columns}
}

// ListGoverned merges the live column set with the stored overrides for role.
func (e *Engine) ListGoverned(ctx context.Context, role auth.Role) ([]Permission, error) {
	if !role.Valid() {
		return nil, ErrUnknownRole
	}
	cols, err := e.governed(ctx)
	if err != nil {
		return nil, err
	}
	over, err := e.store.Overrides(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("load overrides: %w", err)
	}
	perms := make([]Permission, 0, len(cols))
	for _, c := range cols {
		editable, ok := over[c]
		if !ok {
			editable = true
		}
		perms = append(perms, Permission{ColumnName: c, IsEditable: editable})
	}
	return perms, nil
}

// SetGoverned replaces every override for role with perms and returns the
// state re-read from storage. Only a Superadmin may call it.
func (e *Engine) SetGoverned(ctx context.Context, caller *auth.Session, role auth.Role, perms []Permission) ([]Permission, error) {
	if caller == nil || caller.Role != auth.RoleSuperadmin {
		return nil, auth.ErrForbidden
	}
	switch role {
	case auth.RoleAdmin:
	case auth.RoleSuperadmin:
		return nil, ErrRoleNotGoverned
	default:
		return nil, ErrUnknownRole
	}
	cols, err := e.governed(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c] = true
	}
	// Collapse duplicates, last one wins, keeping first-seen order.
	index := make(map[string]int, len(perms))
	clean := make([]Permission, 0, len(perms))
	for _, p := range perms {
		name := strings.ToLower(strings.TrimSpace(p.ColumnName))
		if !known[name] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, p.ColumnName)
		}
		if i, ok := index[name]; ok {
			clean[i].IsEditable = p.IsEditable
			continue
		}
		index[name] = len(clean)
		clean = append(clean, Permission{ColumnName: name, IsEditable: p.IsEditable})
	}
	if err := e.store.Replace(ctx, role, clean); err != nil {
		return nil, err
	}
	return e.ListGoverned(ctx, role)
}

// FilterWritable splits fields into those role may write and those it may
// not. Field names keep the caller's spelling; matching is case-insensitive.
func (e *Engine) FilterWritable(ctx context.Context, role auth.Role, fields []string) (allowed, stripped []string, err error) {
	switch role {
	case auth.RoleSuperadmin:
		return append([]string(nil), fields...), nil, nil
	case auth.RoleAdmin:
		over, err := e.store.Overrides(ctx, role)
		if err != nil {
			return nil, nil, fmt.Errorf("load overrides: %w", err)
		}
		for _, f := range fields {
			if editable, ok := over[strings.ToLower(f)]; ok && !editable {
				stripped = append(stripped, f)
				continue
			}
			allowed = append(allowed, f)
		}
		return allowed, stripped, nil
	default:
		return nil, nil, ErrUnknownRole
	}
}

func (e *Engine) governed(ctx context.Context) ([]string, error) {
	cols, err := e.columns.GovernedColumns(ctx)
	if err != nil {
		return nil, fmt.Errorf("list governed columns: %w", err)
	}
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, strings.ToLower(c))
	}
	return out, nil
}
