// Package products reads and edits the product catalog, which lives in its own
// database.
package products

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gnhindia1-ui/collab/internal/db"
)

var ErrNotFound = errors.New("product not found")

// Limits accepted by List. Anything else falls back to DefaultLimit.
var Limits = []int{10, 50, 100}

const DefaultLimit = 10

// Catalog columns are named <table>_<field>. The identity and audit fields are
// never written through Update and never appear in the permission editor.
var protectedFields = []string{"id", "created", "updated"}

var listFields = []string{
	"id", "serial", "name", "sku", "slug", "drug", "brand", "manufacturer",
	"image", "status", "created",
}

var searchFields = []string{"name", "drug", "brand", "manufacturer", "sku"}

type Store struct {
	db        *db.DB
	table     string
	protected map[string]bool
}

func NewStore(conn *db.DB, table string) *Store {
	s := &Store{db: conn, table: table, protected: make(map[string]bool, len(protectedFields))}
	for _, f := range protectedFields {
		s.protected[s.col(f)] = true
	}
	return s
}

func (s *Store) col(field string) string {
	return strings.ToLower(s.table) + "_" + field
}

func (s *Store) cols(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = s.col(f)
	}
	return out
}

// IsProtected reports whether column is one of the table's identity or audit
// columns.
func (s *Store) IsProtected(column string) bool {
	return s.protected[strings.ToLower(column)]
}

// Columns returns every column of the catalog table in schema order, with the
// spelling the database uses.
func (s *Store) Columns(ctx context.Context) ([]string, error) {
	return s.db.Columns(ctx, s.table)
}

// GovernedColumns implements permissions.ColumnSource.
func (s *Store) GovernedColumns(ctx context.Context) ([]string, error) {
	cols, err := s.Columns(ctx)
	if err != nil {
		return nil, err
	}
	out := cols[:0]
	for _, c := range cols {
		if !s.IsProtected(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

type ListQuery struct {
	Page   int
	Limit  int
	Search string
}

// Normalize clamps the page to at least 1 and the limit to an allowed value.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	ok := false
	for _, l := range Limits {
		if q.Limit == l {
			ok = true
			break
		}
	}
	if !ok {
		q.Limit = DefaultLimit
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

type ListResult struct {
	Products []map[string]any
	Total    int64
}

func (s *Store) List(ctx context.Context, q ListQuery) (ListResult, error) {
	q = q.Normalize()
	table := s.db.Dialect().QuoteIdent(s.table)

	where := ""
	args := []any{}
	if q.Search != "" {
		conds := make([]string, 0, len(searchFields))
		for _, c := range s.cols(searchFields) {
			args = append(args, "%"+q.Search+"%")
			conds = append(conds, fmt.Sprintf("%s LIKE $%d", c, len(args)))
		}
		where = " WHERE " + strings.Join(conds, " OR ")
	}

	var res ListResult
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+where, args...).Scan(&res.Total); err != nil {
		return res, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s DESC, %s DESC LIMIT $%d OFFSET $%d",
		strings.Join(s.cols(listFields), ", "), table, where, s.col("created"), s.col("id"), len(args)+1, len(args)+2)
	args = append(args, q.Limit, (q.Page-1)*q.Limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return res, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	res.Products, err = db.ScanMaps(rows)
	if err != nil {
		return res, fmt.Errorf("scan products: %w", err)
	}
	if res.Products == nil {
		res.Products = []map[string]any{}
	}
	return res, nil
}

func (s *Store) Get(ctx context.Context, id int64) (map[string]any, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT * FROM "+s.db.Dialect().QuoteIdent(s.table)+" WHERE "+s.col("id")+" = $1", id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
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

// Update writes fields, keyed by exact column name, and stamps the updated
// audit column.
// Callers are expected to have validated the names against Columns.
func (s *Store) Update(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return errors.New("update: no fields")
	}
	names := make([]string, 0, len(fields))
	for k := range fields {
		if s.IsProtected(k) {
			return fmt.Errorf("update: column %s is read-only", k)
		}
		names = append(names, k)
	}
	sort.Strings(names)

	d := s.db.Dialect()
	sets := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+1)
	for _, n := range names {
		args = append(args, fields[n])
		sets = append(sets, fmt.Sprintf("%s = $%d", d.QuoteIdent(n), len(args)))
	}
	sets = append(sets, s.col("updated")+" = CURRENT_TIMESTAMP")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		d.QuoteIdent(s.table), strings.Join(sets, ", "), s.col("id"), len(args))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update product %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports zero for rows it matched but did not change.
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.db.Dialect().QuoteIdent(s.table)).Scan(&n)
	return n, err
}
