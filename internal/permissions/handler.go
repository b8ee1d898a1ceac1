package permissions

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gnhindia1-ui/collab/internal/auth"
	"github.com/gnhindia1-ui/collab/internal/httpjson"
)

type Handler struct {
	Engine *Engine
	Logger *slog.Logger
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, httpjson.ErrBadBody):
		httpjson.Error(w, http.StatusBadRequest, "Invalid request data")
	case errors.Is(err, ErrUnknownColumn), errors.Is(err, ErrRoleNotGoverned), errors.Is(err, ErrUnknownRole):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		httpjson.Error(w, http.StatusForbidden, "Forbidden")
	default:
		h.Logger.Error(op, "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}

// List is mounted behind RequireAuth; the result only informs the editor UI.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	role := auth.RoleAdmin
	if v := r.URL.Query().Get("roleId"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httpjson.Error(w, http.StatusBadRequest, "Invalid roleId")
			return
		}
		role = auth.Role(n)
	}
	perms, err := h.Engine.ListGoverned(r.Context(), role)
	if err != nil {
		h.fail(w, "list permissions", err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"permissions": perms})
}

// Update is mounted behind RequireRole(RoleSuperadmin).
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoleID      int          `json:"roleId"`
		Permissions []Permission `json:"permissions"`
	}
	if err := httpjson.Decode(r, &req); err != nil {
		h.fail(w, "update permissions", err)
		return
	}
	if req.RoleID == 0 || req.Permissions == nil {
		httpjson.Error(w, http.StatusBadRequest, "Invalid request data")
		return
	}
	sess, _ := auth.SessionFromContext(r.Context())
	perms, err := h.Engine.SetGoverned(r.Context(), sess, auth.Role(req.RoleID), req.Permissions)
	if err != nil {
		h.fail(w, "update permissions", err)
		return
	}
	h.Logger.Info("column permissions replaced", "role", auth.Role(req.RoleID).String(), "by", sess.UserID)
	httpjson.Write(w, http.StatusOK, map[string]any{
		"message":     "Permissions updated successfully",
		"permissions": perms,
	})
}
