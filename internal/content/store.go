package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gnhindia1-ui/collab/internal/db"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrSlugTaken = errors.New("slug already in use")
)

type Status int

const (
	StatusPublished Status = iota
	StatusDraft
	StatusAll
)

func ParseStatus(s string) (Status, error) {
	switch s {
	case "", "published", "1":
		return StatusPublished, nil
	case "draft", "0":
		return StatusDraft, nil
	case "all":
		return StatusAll, nil
	default:
		return 0, fmt.Errorf("unknown status %q", s)
	}
}

type Store struct {
	db   *db.DB
	kind *Kind
}

func NewStore(conn *db.DB, kind *Kind) *Store {
	return &Store{db: conn, kind: kind}
}

func (s *Store) Kind() *Kind { return s.kind }

func (s *Store) List(ctx context.Context, status Status) ([]map[string]any, error) {
	k := s.kind
	clauses := []string{"1=1"}
	args := []any{}
	switch status {
	case StatusPublished:
		clauses = append(clauses, k.PubColumn()+" = $1")
		args = append(args, true)
	case StatusDraft:
		clauses = append(clauses, k.PubColumn()+" = $1")
		args = append(args, false)
	}
	query := "SELECT * FROM " + k.Table + " WHERE " + strings.Join(clauses, " AND ") +
		" ORDER BY " + k.ListOrder
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", k.Name, err)
	}
	defer rows.Close()
	recs, err := db.ScanMaps(rows)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []map[string]any{}
	}
	return recs, nil
}

// Get looks a record up by numeric id, or by slug for anything else.
func (s *Store) Get(ctx context.Context, idOrSlug string) (map[string]any, error) {
	k := s.kind
	col, arg := s.lookup(idOrSlug)
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+k.Table+" WHERE "+col+" = $1", arg)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", k.Name, err)
	}
	defer rows.Close()
	recs, err := db.ScanMaps(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs[0], nil
}

// Resolve maps an id or slug to the record id and its owner. The owner is nil
// for records created before ownership was tracked.
func (s *Store) Resolve(ctx context.Context, idOrSlug string) (int64, *int64, error) {
	k := s.kind
	col, arg := s.lookup(idOrSlug)
	var (
		id    int64
		owner sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT "+k.IDColumn()+", "+k.OwnerColumn()+" FROM "+k.Table+" WHERE "+col+" = $1", arg).
		Scan(&id, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, ErrNotFound
	}
	if err != nil {
		return 0, nil, fmt.Errorf("resolve %s: %w", k.Name, err)
	}
	if !owner.Valid {
		return id, nil, nil
	}
	return id, &owner.Int64, nil
}

func (s *Store) lookup(idOrSlug string) (string, any) {
	if id, err := strconv.ParseInt(idOrSlug, 10, 64); err == nil {
		return s.kind.IDColumn(), id
	}
	return s.kind.SlugColumn(), idOrSlug
}

// Insert writes a new record. fields must only hold the kind's columns.
func (s *Store) Insert(ctx context.Context, fields map[string]any, owner int64, now time.Time) (int64, error) {
	k := s.kind
	cols := sortedKeys(fields)
	args := make([]any, 0, len(cols)+3)
	marks := make([]string, 0, len(cols)+3)
	for _, c := range cols {
		args = append(args, fields[c])
		marks = append(marks, "$"+strconv.Itoa(len(args)))
	}
	cols = append(cols, k.OwnerColumn(), k.CreatedColumn(), k.UpdatedColumn())
	args = append(args, owner, now.UTC(), now.UTC())
	for i := len(marks); i < len(args); i++ {
		marks = append(marks, "$"+strconv.Itoa(i+1))
	}
	query := "INSERT INTO " + k.Table + " (" + strings.Join(cols, ", ") + ") VALUES (" +
		strings.Join(marks, ", ") + ") RETURNING " + k.IDColumn()
	var id int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrSlugTaken
		}
		return 0, fmt.Errorf("insert %s: %w", k.Name, err)
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, id int64, fields map[string]any, now time.Time) error {
	k := s.kind
	cols := sortedKeys(fields)
	sets := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+2)
	for _, c := range cols {
		args = append(args, fields[c])
		sets = append(sets, c+" = $"+strconv.Itoa(len(args)))
	}
	args = append(args, now.UTC())
	sets = append(sets, k.UpdatedColumn()+" = $"+strconv.Itoa(len(args)))
	args = append(args, id)
	query := "UPDATE " + k.Table + " SET " + strings.Join(sets, ", ") +
		" WHERE " + k.IDColumn() + " = $" + strconv.Itoa(len(args))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("update %s %d: %w", k.Name, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	k := s.kind
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+k.Table+" WHERE "+k.IDColumn()+" = $1", id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", k.Name, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.kind.Table).Scan(&n)
	return n, err
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
