package permissions

import (
	"context"
	"fmt"

	"github.com/gnhindia1-ui/collab/internal/auth"
	"github.com/gnhindia1-ui/collab/internal/db"
)

// Store persists per-role column overrides in role_column_permissions.
type Store struct {
	db *db.DB
}

func NewStore(conn *db.DB) *Store {
	return &Store{db: conn}
}

// Overrides returns the stored editability flags for role keyed by lowercased
// column name.
func (s *Store) Overrides(ctx context.Context, role auth.Role) (map[string]bool, error) {
	return overrides(ctx, s.db, role)
}

func overrides(ctx context.Context, q db.Querier, role auth.Role) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT LOWER(column_name), is_editable FROM role_column_permissions WHERE role_id = $1`, int(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var (
			name     string
			editable bool
		)
		if err := rows.Scan(&name, &editable); err != nil {
			return nil, err
		}
		out[name] = editable
	}
	return out, rows.Err()
}

// Replace deletes every override for role and inserts perms, atomically.
func (s *Store) Replace(ctx context.Context, role auth.Role, perms []Permission) error {
	return s.db.WithTx(ctx, func(tx *db.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM role_column_permissions WHERE role_id = $1`, int(role)); err != nil {
			return fmt.Errorf("clear overrides: %w", err)
		}
		for _, p := range perms {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO role_column_permissions (role_id, column_name, is_editable) VALUES ($1, $2, $3)`,
				int(role), p.ColumnName, p.IsEditable); err != nil {
				return fmt.Errorf("insert override %s: %w", p.ColumnName, err)
			}
		}
		return nil
	})
}

// HasOverrides reports whether any override row exists for role.
func (s *Store) HasOverrides(ctx context.Context, role auth.Role) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM role_column_permissions WHERE role_id = $1`, int(role)).Scan(&n)
	return n > 0, err
}
