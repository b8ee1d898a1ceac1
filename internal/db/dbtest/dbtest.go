// Package dbtest opens throwaway in-memory SQLite databases for storage tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gnhindia1-ui/collab/internal/db"
)

// CatalogTable is the product table created by OpenCatalog.
const CatalogTable = "item"

const catalogSchema = `
CREATE TABLE item (
    item_id           INTEGER PRIMARY KEY AUTOINCREMENT,
    item_serial       TEXT,
    item_name         TEXT NOT NULL,
    item_sku          TEXT,
    item_slug         TEXT,
    item_drug         TEXT,
    item_brand        TEXT,
    item_manufacturer TEXT,
    item_image        TEXT,
    item_status       INTEGER NOT NULL DEFAULT 1,
    Item_Price        REAL,
    item_stock        INTEGER,
    item_created      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    item_updated      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// Open returns a migrated CMS database that is closed when the test ends.
func Open(t testing.TB) *db.DB {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.RunMigrations(ctx, conn))
	return conn
}

// OpenCatalog returns a product catalog database with an empty item table.
// Item_Price is deliberately mixed-case to exercise case folding.
func OpenCatalog(t testing.TB) *db.DB {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = conn.ExecContext(ctx, catalogSchema)
	require.NoError(t, err)
	return conn
}
