package db

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Dialect hides the SQL differences between the supported engines. Queries are
// written once with Postgres-style $N placeholders and rebound per engine, so
// every $N must appear exactly once and in ascending order.
type Dialect interface {
	Name() string
	Rebind(query string) string
	QuoteIdent(name string) string
	// ColumnsQuery lists the column names of the table bound to $1, in
	// declaration order.
	ColumnsQuery() string
}

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverPostgres:
		return postgresDialect{}, nil
	case DriverMySQL:
		return mysqlDialect{}, nil
	case DriverSQLite:
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

type postgresDialect struct{}

func (postgresDialect) Name() string               { return DriverPostgres }
func (postgresDialect) Rebind(query string) string { return query }
func (postgresDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
func (postgresDialect) ColumnsQuery() string {
	return `SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return DriverMySQL }
func (mysqlDialect) Rebind(query string) string {
	return placeholderRe.ReplaceAllString(query, "?")
}
func (mysqlDialect) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
func (mysqlDialect) ColumnsQuery() string {
	return `SELECT column_name FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = $1
		ORDER BY ordinal_position`
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return DriverSQLite }
func (sqliteDialect) Rebind(query string) string {
	return placeholderRe.ReplaceAllString(query, "?")
}
func (sqliteDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
func (sqliteDialect) ColumnsQuery() string {
	return `SELECT name FROM pragma_table_info($1) ORDER BY cid`
}
