// Package stats reports record counts for the dashboard.
package stats

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gnhindia1-ui/collab/internal/httpjson"
)

type Counter interface {
	Count(ctx context.Context) (int64, error)
}

type Handler struct {
	// Counters maps the response key to its source, e.g. "products".
	Counters map[string]Counter
	Logger   *slog.Logger
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]int64, len(h.Counters))
	for name, c := range h.Counters {
		n, err := c.Count(r.Context())
		if err != nil {
			h.Logger.Error("count records", "source", name, "err", err)
			httpjson.Error(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		out[name] = n
	}
	httpjson.Write(w, http.StatusOK, out)
}
