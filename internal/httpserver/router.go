package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gnhindia1-ui/collab/internal/auth"
	"github.com/gnhindia1-ui/collab/internal/content"
	"github.com/gnhindia1-ui/collab/internal/permissions"
	"github.com/gnhindia1-ui/collab/internal/products"
	"github.com/gnhindia1-ui/collab/internal/stats"
)

type Deps struct {
	Logger      *slog.Logger
	Metrics     *Metrics
	Auth        *auth.Service
	Permissions *permissions.Engine
	Products    *products.Store
	Content     []*content.Service
	// AllowedOrigin is the dashboard origin granted credentialed CORS.
	AllowedOrigin string
}

func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()
	logger := d.Logger

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", d.Metrics.Handler())

	// Auth
	ah := &auth.Handler{Service: d.Auth, Logger: logger, Metrics: d.Metrics}
	mux.HandleFunc("POST /api/auth/login", ah.Login)
	mux.HandleFunc("POST /api/auth/logout", ah.Logout)
	mux.HandleFunc("GET /api/auth/me", auth.RequireAuth(ah.Me))
	mux.HandleFunc("POST /api/auth/register", ah.Register)
	mux.HandleFunc("POST /api/auth/forgot-password", ah.ForgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password", ah.ResetPassword)

	// Registration tokens
	mux.HandleFunc("POST /api/tokens/generate", auth.RequireRole(ah.GenerateToken, auth.RoleSuperadmin))
	mux.HandleFunc("GET /api/tokens/list", auth.RequireRole(ah.ListTokens, auth.RoleSuperadmin))

	// Column permissions
	ph := &permissions.Handler{Engine: d.Permissions, Logger: logger}
	mux.HandleFunc("GET /api/settings/permissions", auth.RequireAuth(ph.List))
	mux.HandleFunc("POST /api/settings/permissions", auth.RequireRole(ph.Update, auth.RoleSuperadmin))

	// Products
	prh := &products.Handler{Store: d.Products, Permissions: d.Permissions, Logger: logger}
	mux.HandleFunc("GET /api/products", auth.RequireAuth(prh.List))
	mux.HandleFunc("GET /api/products/{id}", auth.RequireAuth(prh.Get))
	mux.HandleFunc("PATCH /api/products/{id}", auth.RequireAuth(prh.Patch))

	// Blogs, events, news
	counters := map[string]stats.Counter{"products": d.Products}
	for _, svc := range d.Content {
		ch := &content.Handler{Service: svc, Logger: logger}
		base := "/api/" + svc.Kind().Name
		mux.HandleFunc("GET "+base, ch.List)
		mux.HandleFunc("POST "+base, auth.RequireAuth(ch.Create))
		mux.HandleFunc("GET "+base+"/{idOrSlug}", ch.Get)
		mux.HandleFunc("PATCH "+base+"/{idOrSlug}", auth.RequireAuth(ch.Update))
		mux.HandleFunc("DELETE "+base+"/{idOrSlug}", auth.RequireAuth(ch.Delete))
		counters[svc.Kind().Name] = svc
	}

	sh := &stats.Handler{Counters: counters, Logger: logger}
	mux.HandleFunc("GET /api/stats", auth.RequireAuth(sh.ServeHTTP))

	var h http.Handler = d.Metrics.Middleware(mux)
	h = accessLog(logger, h)
	h = auth.Middleware(d.Auth.Sessions())(h)
	h = withRequestID(h)
	return withCORS(d.AllowedOrigin, h)
}
