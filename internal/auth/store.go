package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gnhindia1-ui/collab/internal/db"
)

type Store struct {
	db *db.DB
}

func NewStore(conn *db.DB) *Store {
	return &Store{db: conn}
}

const userColumns = `id, email, password_hash, name, role, created_at`

func scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(email)))
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) CreateUser(ctx context.Context, email, password, name string, role Role) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u, err := insertUser(ctx, s.db, email, hash, name, role)
	if db.IsUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	return u, err
}

func insertUser(ctx context.Context, q db.Querier, email, hash, name string, role Role) (*User, error) {
	u := &User{
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	const query = `
		INSERT INTO users (email, password_hash, name, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	if err := q.QueryRowContext(ctx, query, u.Email, u.PasswordHash, u.Name, u.Role, u.CreatedAt).
		Scan(&u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// SetResetToken stores a reset token on the user row, replacing any token that
// was outstanding.
func (s *Store) SetResetToken(ctx context.Context, userID int64, token string, expires time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_reset_token = $1, password_reset_expires = $2 WHERE id = $3`,
		token, expires, userID)
	return err
}

// ResetPassword swaps in a new hash and clears the reset token in one
// conditional update. It reports false when no live token matched.
func (s *Store) ResetPassword(ctx context.Context, token, hash string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $1, password_reset_token = NULL, password_reset_expires = NULL
		WHERE password_reset_token = $2 AND password_reset_expires > $3
	`, hash, token, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) CreateRegistrationToken(ctx context.Context, token string, createdBy int64, expiresAt time.Time) (*RegistrationToken, error) {
	rt := &RegistrationToken{
		Token:     token,
		CreatedBy: createdBy,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	const q = `
		INSERT INTO registration_tokens (token, created_by, expires_at, is_used, created_at)
		VALUES ($1, $2, $3, FALSE, $4)
		RETURNING id
	`
	if err := s.db.QueryRowContext(ctx, q, rt.Token, rt.CreatedBy, rt.ExpiresAt, rt.CreatedAt).
		Scan(&rt.ID); err != nil {
		return nil, err
	}
	return rt, nil
}

func (s *Store) ListRegistrationTokens(ctx context.Context) ([]RegistrationToken, error) {
	const q = `
		SELECT rt.id, rt.token, rt.created_by, u1.name, rt.expires_at, rt.is_used,
		       rt.used_by, u2.name, rt.used_at, rt.created_at
		FROM registration_tokens rt
		LEFT JOIN users u1 ON rt.created_by = u1.id
		LEFT JOIN users u2 ON rt.used_by = u2.id
		ORDER BY rt.created_at DESC, rt.id DESC
	`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []RegistrationToken{}
	for rows.Next() {
		var (
			t       RegistrationToken
			creator sql.NullString
			usedBy  sql.NullInt64
			user    sql.NullString
			usedAt  sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.Token, &t.CreatedBy, &creator, &t.ExpiresAt, &t.IsUsed,
			&usedBy, &user, &usedAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.CreatorName = creator.String
		if usedBy.Valid {
			t.UsedBy = &usedBy.Int64
		}
		if user.Valid {
			t.UserName = &user.String
		}
		if usedAt.Valid {
			t.UsedAt = &usedAt.Time
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// Redeem consumes a registration token and creates an Admin account in one
// transaction. The token is claimed with a conditional update first, so two
// concurrent redemptions of the same token cannot both succeed; any later
// failure rolls the claim back.
func (s *Store) Redeem(ctx context.Context, token, email, hash, name string, now time.Time) (*User, error) {
	var user *User
	err := s.db.WithTx(ctx, func(tx *db.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE registration_tokens SET is_used = TRUE, used_at = $1
			WHERE token = $2 AND is_used = FALSE AND expires_at > $3
		`, now, token, now)
		if err != nil {
			return fmt.Errorf("claim token: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return tokenFailure(ctx, tx, token)
		}

		var taken int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM users WHERE email = $1`, normalizeEmail(email)).Scan(&taken); err != nil {
			return err
		}
		if taken > 0 {
			return ErrEmailTaken
		}
		user, err = insertUser(ctx, tx, email, hash, name, RoleAdmin)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("insert user: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE registration_tokens SET used_by = $1 WHERE token = $2`, user.ID, token); err != nil {
			return fmt.Errorf("record token use: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// tokenFailure explains why a claim matched no row.
func tokenFailure(ctx context.Context, q db.Querier, token string) error {
	var used bool
	err := q.QueryRowContext(ctx,
		`SELECT is_used FROM registration_tokens WHERE token = $1`, token).Scan(&used)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrTokenNotFound
	case err != nil:
		return err
	case used:
		return ErrTokenUsed
	default:
		return ErrTokenExpired
	}
}

type usersFile struct {
	Users []struct {
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		Role     Role   `yaml:"role"`
	} `yaml:"users"`
}

// SeedFromFile creates the bootstrap accounts listed in a YAML file, skipping
// any whose email already exists. It is how the first Superadmin comes to be.
// A listed password shorter than MinPasswordLength rejects the whole file.
func (s *Store) SeedFromFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var uf usersFile
	if err := yaml.Unmarshal(data, &uf); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, u := range uf.Users {
		if u.Email != "" && len(u.Password) < MinPasswordLength {
			return 0, fmt.Errorf("%w: %s in %s", ErrWeakSeedPassword, u.Email, path)
		}
	}
	created := 0
	for _, u := range uf.Users {
		if u.Email == "" {
			continue
		}
		if _, err := s.GetUserByEmail(ctx, u.Email); err == nil {
			continue
		} else if !errors.Is(err, ErrUserNotFound) {
			return created, err
		}
		role := u.Role
		if role == 0 {
			role = RoleAdmin
		}
		name := u.Name
		if name == "" {
			name = u.Email
		}
		if _, err := s.CreateUser(ctx, u.Email, u.Password, name, role); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
