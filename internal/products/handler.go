package products

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gnhindia1-ui/collab/internal/auth"
	"github.com/gnhindia1-ui/collab/internal/httpjson"
	"github.com/gnhindia1-ui/collab/internal/permissions"
)

type Handler struct {
	Store       *Store
	Permissions *permissions.Engine
	Logger      *slog.Logger
}

// List handles GET /api/products?page=&limit=&search=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	qv := r.URL.Query()
	page, _ := strconv.Atoi(qv.Get("page"))
	limit, _ := strconv.Atoi(qv.Get("limit"))
	q := ListQuery{Page: page, Limit: limit, Search: qv.Get("search")}.Normalize()

	res, err := h.Store.List(r.Context(), q)
	if err != nil {
		h.Logger.Error("list products", "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{
		"products": res.Products,
		"metadata": map[string]any{
			"total":      res.Total,
			"page":       q.Page,
			"limit":      q.Limit,
			"totalPages": int64(math.Ceil(float64(res.Total) / float64(q.Limit))),
		},
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	p, err := h.Store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		httpjson.Error(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.Logger.Error("get product", "id", id, "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"product": p})
}

// Patch handles PATCH /api/products/{id}. Fields the caller's role may not
// write are dropped and reported back as ignored, together with identity and
// audit fields.
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	sess, err := auth.Authenticated(r.Context())
	if err != nil {
		httpjson.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var body map[string]any
	if err := httpjson.Decode(r, &body); err != nil || body == nil {
		httpjson.Error(w, http.StatusBadRequest, "Invalid request data")
		return
	}

	cols, err := h.Store.Columns(r.Context())
	if err != nil {
		h.Logger.Error("product columns", "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	byLower := make(map[string]string, len(cols))
	for _, c := range cols {
		byLower[strings.ToLower(c)] = c
	}

	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		ignored   []string
		candidate []string
		values    = make(map[string]any, len(body))
		keyOf     = make(map[string]string, len(body))
	)
	for _, k := range keys {
		col, known := byLower[strings.ToLower(k)]
		if !known {
			httpjson.Error(w, http.StatusBadRequest, fmt.Sprintf("Unknown field: %s", k))
			return
		}
		if h.Store.IsProtected(col) {
			ignored = append(ignored, k)
			continue
		}
		v, err := scalar(body[k])
		if err != nil {
			httpjson.Error(w, http.StatusBadRequest, fmt.Sprintf("Invalid value for %s", k))
			return
		}
		if _, dup := values[col]; !dup {
			candidate = append(candidate, col)
		}
		values[col] = v
		keyOf[col] = k
	}

	allowed, stripped, err := h.Permissions.FilterWritable(r.Context(), sess.Role, candidate)
	if err != nil {
		if errors.Is(err, permissions.ErrUnknownRole) {
			httpjson.Error(w, http.StatusForbidden, "Forbidden")
			return
		}
		h.Logger.Error("filter product fields", "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	for _, c := range stripped {
		ignored = append(ignored, keyOf[c])
	}
	if len(allowed) == 0 {
		httpjson.Error(w, http.StatusBadRequest, "No fields to update")
		return
	}
	update := make(map[string]any, len(allowed))
	updated := make([]string, 0, len(allowed))
	for _, c := range allowed {
		update[c] = values[c]
		updated = append(updated, keyOf[c])
	}

	if err := h.Store.Update(r.Context(), id, update); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpjson.Error(w, http.StatusNotFound, "Product not found")
			return
		}
		h.Logger.Error("update product", "id", id, "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if len(stripped) > 0 {
		h.Logger.Info("product fields stripped by column permissions",
			"id", id, "user", sess.UserID, "columns", stripped)
	}
	if ignored == nil {
		ignored = []string{}
	}
	httpjson.Write(w, http.StatusOK, map[string]any{
		"message": "Product updated successfully",
		"updated": updated,
		"ignored": ignored,
	})
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		httpjson.Error(w, http.StatusBadRequest, "Invalid product id")
		return 0, false
	}
	return id, true
}

// scalar converts a decoded JSON value into a driver argument. Objects and
// arrays have no column representation.
func scalar(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool:
		return t, nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
		return t.Float64()
	default:
		return nil, fmt.Errorf("unsupported value %T", v)
	}
}
