package content

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gnhindia1-ui/collab/internal/auth"
	"github.com/gnhindia1-ui/collab/internal/httpjson"
)

// Handler serves one content kind under /api/{kind}.
type Handler struct {
	Service *Service
	Logger  *slog.Logger
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		httpjson.Error(w, http.StatusBadRequest, ve.Msg)
	case errors.Is(err, httpjson.ErrBadBody):
		httpjson.Error(w, http.StatusBadRequest, "Invalid request data")
	case errors.Is(err, auth.ErrUnauthenticated):
		httpjson.Error(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, auth.ErrForbidden):
		httpjson.Error(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, ErrNotFound):
		httpjson.Error(w, http.StatusNotFound, h.Service.Kind().Label+" not found")
	case errors.Is(err, ErrSlugTaken):
		httpjson.Error(w, http.StatusConflict, "Slug already in use")
	default:
		h.Logger.Error(op, "kind", h.Service.Kind().Name, "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status, err := ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		httpjson.Error(w, http.StatusBadRequest, "Invalid status")
		return
	}
	recs, err := h.Service.List(r.Context(), status)
	if err != nil {
		h.fail(w, "list content", err)
		return
	}
	httpjson.Write(w, http.StatusOK, recs)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.Get(r.Context(), r.PathValue("idOrSlug"))
	if err != nil {
		h.fail(w, "get content", err)
		return
	}
	httpjson.Write(w, http.StatusOK, rec)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := httpjson.Decode(r, &body); err != nil {
		h.fail(w, "create content", err)
		return
	}
	created, err := h.Service.Create(r.Context(), body)
	if err != nil {
		h.fail(w, "create content", err)
		return
	}
	k := h.Service.Kind()
	httpjson.Write(w, http.StatusCreated, map[string]any{
		"message": k.Label + " created successfully",
		k.IDKey:   created.ID,
		"slug":    created.Slug,
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := httpjson.Decode(r, &body); err != nil {
		h.fail(w, "update content", err)
		return
	}
	if err := h.Service.Update(r.Context(), r.PathValue("idOrSlug"), body); err != nil {
		h.fail(w, "update content", err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"message": h.Service.Kind().Label + " updated successfully"})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), r.PathValue("idOrSlug")); err != nil {
		h.fail(w, "delete content", err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"message": h.Service.Kind().Label + " deleted successfully"})
}
