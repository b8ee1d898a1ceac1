package products

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnhindia1-ui/collab/internal/auth"
	"github.com/gnhindia1-ui/collab/internal/db"
	"github.com/gnhindia1-ui/collab/internal/db/dbtest"
	"github.com/gnhindia1-ui/collab/internal/permissions"
)

var (
	superadmin = &auth.Session{UserID: 1, Email: "root@example.com", Role: auth.RoleSuperadmin}
	admin      = &auth.Session{UserID: 2, Email: "ops@example.com", Role: auth.RoleAdmin}
)

type fixture struct {
	catalog *db.DB
	store   *Store
	engine  *permissions.Engine
	handler *Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog := dbtest.OpenCatalog(t)
	store := NewStore(catalog, dbtest.CatalogTable)
	engine := permissions.NewEngine(permissions.NewStore(dbtest.Open(t)), store)
	return &fixture{
		catalog: catalog,
		store:   store,
		engine:  engine,
		handler: &Handler{Store: store, Permissions: engine, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))},
	}
}

func (f *fixture) insert(t *testing.T, name, drug string, price float64) int64 {
	t.Helper()
	res, err := f.catalog.ExecContext(context.Background(),
		`INSERT INTO item (item_name, item_drug, Item_Price) VALUES ($1, $2, $3)`, name, drug, price)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func TestGovernedColumnsExcludeIdentityAndAudit(t *testing.T) {
	f := newFixture(t)
	cols, err := f.store.GovernedColumns(context.Background())
	require.NoError(t, err)
	assert.Contains(t, cols, "item_name")
	assert.Contains(t, cols, "Item_Price")
	assert.NotContains(t, cols, "item_id")
	assert.NotContains(t, cols, "item_created")
	assert.NotContains(t, cols, "item_updated")
}

func TestListNormalizesAndSearches(t *testing.T) {
	f := newFixture(t)
	f.insert(t, "Paracetamol 500", "acetaminophen", 1.2)
	f.insert(t, "Ibuprofen 200", "ibuprofen", 2.5)
	f.insert(t, "Aspirin", "acetylsalicylic acid", 0.9)

	res, err := f.store.List(context.Background(), ListQuery{Page: 0, Limit: 7})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Total)
	assert.Len(t, res.Products, 3)

	res, err = f.store.List(context.Background(), ListQuery{Search: "acet"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)

	res, err = f.store.List(context.Background(), ListQuery{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Total)
	assert.Empty(t, res.Products)
}

func TestNormalize(t *testing.T) {
	q := ListQuery{Page: -3, Limit: 50, Search: "  x "}.Normalize()
	assert.Equal(t, ListQuery{Page: 1, Limit: 50, Search: "x"}, q)
	assert.Equal(t, DefaultLimit, ListQuery{Limit: 1000}.Normalize().Limit)
}

func TestGetAndCount(t *testing.T) {
	f := newFixture(t)
	id := f.insert(t, "Aspirin", "asa", 0.9)

	p, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Aspirin", p["item_name"])

	_, err = f.store.Get(context.Background(), id+100)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := f.store.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestUpdateMissingProduct(t *testing.T) {
	f := newFixture(t)
	err := f.store.Update(context.Background(), 42, map[string]any{"item_name": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRejectsProtectedColumn(t *testing.T) {
	f := newFixture(t)
	id := f.insert(t, "Aspirin", "asa", 0.9)
	err := f.store.Update(context.Background(), id, map[string]any{"item_created": "2020-01-01"})
	assert.Error(t, err)
}

func (f *fixture) patch(t *testing.T, sess *auth.Session, id, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPatch, "/api/products/"+id, strings.NewReader(body))
	req.SetPathValue("id", id)
	if sess != nil {
		req = req.WithContext(auth.WithSession(req.Context(), sess))
	}
	rec := httptest.NewRecorder()
	f.handler.Patch(rec, req)
	return rec
}

type patchResponse struct {
	Updated []string `json:"updated"`
	Ignored []string `json:"ignored"`
	Error   string   `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) patchResponse {
	t.Helper()
	var out patchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestPatchStripsLockedColumnForAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.insert(t, "Aspirin", "asa", 0.9)
	_, err := f.engine.SetGoverned(ctx, superadmin, auth.RoleAdmin,
		[]permissions.Permission{{ColumnName: "item_price", IsEditable: false}})
	require.NoError(t, err)

	rec := f.patch(t, admin, "1", `{"item_price": 5, "item_name": "Aspirin 300"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, []string{"item_name"}, out.Updated)
	assert.Equal(t, []string{"item_price"}, out.Ignored)

	p, err := f.store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Aspirin 300", p["item_name"])
	assert.EqualValues(t, 0.9, p["Item_Price"])
}

func TestPatchSuperadminWritesLockedColumn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.insert(t, "Aspirin", "asa", 0.9)
	_, err := f.engine.SetGoverned(ctx, superadmin, auth.RoleAdmin,
		[]permissions.Permission{{ColumnName: "item_price", IsEditable: false}})
	require.NoError(t, err)

	rec := f.patch(t, superadmin, "1", `{"Item_Price": 1.75}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	p, err := f.store.Get(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 1.75, p["Item_Price"])
}

func TestPatchOnlyLockedFields(t *testing.T) {
	f := newFixture(t)
	f.insert(t, "Aspirin", "asa", 0.9)
	_, err := f.engine.SetGoverned(context.Background(), superadmin, auth.RoleAdmin,
		[]permissions.Permission{{ColumnName: "item_price", IsEditable: false}})
	require.NoError(t, err)

	rec := f.patch(t, admin, "1", `{"item_price": 5, "item_id": 9}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No fields to update", decode(t, rec).Error)
}

func TestPatchValidation(t *testing.T) {
	f := newFixture(t)
	f.insert(t, "Aspirin", "asa", 0.9)

	cases := []struct {
		name string
		sess *auth.Session
		id   string
		body string
		code int
	}{
		{"no session", nil, "1", `{"item_name":"x"}`, http.StatusUnauthorized},
		{"bad id", admin, "abc", `{"item_name":"x"}`, http.StatusBadRequest},
		{"not an object", admin, "1", `[1,2]`, http.StatusBadRequest},
		{"unknown field", admin, "1", `{"nope":"x"}`, http.StatusBadRequest},
		{"nested value", admin, "1", `{"item_name":{"a":1}}`, http.StatusBadRequest},
		{"audit only", admin, "1", `{"item_updated":"2020-01-01"}`, http.StatusBadRequest},
		{"missing product", admin, "99", `{"item_name":"x"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.patch(t, tc.sess, tc.id, tc.body)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}
}

func TestListHandlerMetadata(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 12; i++ {
		f.insert(t, "Drug", "x", 1)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/products?page=2&limit=25", nil)
	rec := httptest.NewRecorder()
	f.handler.List(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Products []map[string]any `json:"products"`
		Metadata struct {
			Total      int `json:"total"`
			Page       int `json:"page"`
			Limit      int `json:"limit"`
			TotalPages int `json:"totalPages"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Products, 2)
	assert.Equal(t, 12, out.Metadata.Total)
	assert.Equal(t, 2, out.Metadata.Page)
	assert.Equal(t, 10, out.Metadata.Limit)
	assert.Equal(t, 2, out.Metadata.TotalPages)
}

func TestStoreFollowsTableName(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = conn.ExecContext(ctx, `
CREATE TABLE product (
    product_id           INTEGER PRIMARY KEY AUTOINCREMENT,
    product_serial       TEXT,
    product_name         TEXT NOT NULL,
    product_sku          TEXT,
    product_slug         TEXT,
    product_drug         TEXT,
    product_brand        TEXT,
    product_manufacturer TEXT,
    product_image        TEXT,
    product_status       INTEGER NOT NULL DEFAULT 1,
    product_created      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    product_updated      DATETIME NOT NULL DEFAULT '2000-01-01 00:00:00'
)`)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `INSERT INTO product (product_name, product_drug) VALUES ($1, $2)`, "Aspirin", "acetylsalicylic acid")
	require.NoError(t, err)

	store := NewStore(conn, "product")
	cols, err := store.GovernedColumns(ctx)
	require.NoError(t, err)
	assert.Contains(t, cols, "product_name")
	assert.NotContains(t, cols, "product_id")
	assert.NotContains(t, cols, "product_created")
	assert.NotContains(t, cols, "product_updated")
	assert.True(t, store.IsProtected("Product_ID"))
	assert.False(t, store.IsProtected("item_id"))

	res, err := store.List(ctx, ListQuery{Search: "salicyl"})
	require.NoError(t, err)
	require.Len(t, res.Products, 1)

	before, err := store.Get(ctx, 1)
	require.NoError(t, err)
	require.Error(t, store.Update(ctx, 1, map[string]any{"product_created": "2020-01-01"}))
	require.NoError(t, store.Update(ctx, 1, map[string]any{"product_name": "Aspirin 300"}))
	p, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Aspirin 300", p["product_name"])
	assert.NotEqual(t, fmt.Sprint(before["product_updated"]), fmt.Sprint(p["product_updated"]))
}
