package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder map[string]int

func (c countingRecorder) AuthEvent(event, outcome string) { c[event+":"+outcome]++ }

// newServer mounts the auth routes behind the session middleware the same way
// the production router does.
func newServer(t *testing.T, e *env, rec Recorder) http.Handler {
	t.Helper()
	h := &Handler{Service: e.svc, Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), Metrics: rec}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/auth/me", RequireAuth(h.Me))
	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/forgot-password", h.ForgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password", h.ResetPassword)
	mux.HandleFunc("POST /api/tokens/generate", RequireRole(h.GenerateToken, RoleSuperadmin))
	mux.HandleFunc("GET /api/tokens/list", RequireRole(h.ListTokens, RoleSuperadmin))
	return Middleware(e.svc.Sessions())(mux)
}

func do(t *testing.T, h http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	return nil
}

func TestLoginMeLogout(t *testing.T) {
	e := newEnv(t)
	metrics := countingRecorder{}
	srv := newServer(t, e, metrics)

	rec := do(t, srv, http.MethodPost, "/api/auth/login", `{"email":"root@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, sessionCookie(rec))

	rec = do(t, srv, http.MethodPost, "/api/auth/login", `{"email":"root@example.com","password":"rootpass"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = do(t, srv, http.MethodGet, "/api/auth/me", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		User struct {
			Email string `json:"email"`
			Role  Role   `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "root@example.com", me.User.Email)
	assert.Equal(t, RoleSuperadmin, me.User.Role)

	rec = do(t, srv, http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/auth/logout", "", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	cleared := sessionCookie(rec)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)

	assert.Equal(t, 1, metrics["login:success"])
	assert.Equal(t, 1, metrics["login:failure"])
}

func TestTokenEndpointsRequireSuperadmin(t *testing.T) {
	e := newEnv(t)
	srv := newServer(t, e, nil)

	rec := do(t, srv, http.MethodPost, "/api/tokens/generate", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	adminTok, err := e.svc.Sessions().Create(Session{UserID: 42, Email: "a@example.com", Role: RoleAdmin})
	require.NoError(t, err)
	rec = do(t, srv, http.MethodPost, "/api/tokens/generate", "", &http.Cookie{Name: SessionCookieName, Value: adminTok})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(t, srv, http.MethodGet, "/api/tokens/list", "", &http.Cookie{Name: SessionCookieName, Value: adminTok})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRegisterThroughHTTP(t *testing.T) {
	e := newEnv(t)
	srv := newServer(t, e, nil)

	rootTok, err := e.svc.Sessions().Create(*e.rootSession())
	require.NoError(t, err)
	rootCookie := &http.Cookie{Name: SessionCookieName, Value: rootTok}

	rec := do(t, srv, http.MethodPost, "/api/tokens/generate", "", rootCookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var gen struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gen))
	require.Len(t, gen.Token, RegistrationTokenLength)

	body := `{"email":"new@example.com","password":"secret1","name":"New","token":"` + gen.Token + `"}`
	rec = do(t, srv, http.MethodPost, "/api/auth/register", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/api/auth/register",
		`{"email":"again@example.com","password":"secret1","name":"Again","token":"`+gen.Token+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already been used")

	rec = do(t, srv, http.MethodGet, "/api/tokens/list", "", rootCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Tokens []RegistrationToken `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Tokens, 1)
	require.NotNil(t, list.Tokens[0].UserName)
	assert.Equal(t, "New", *list.Tokens[0].UserName)
}

func TestForgotPasswordResponseIsUniform(t *testing.T) {
	e := newEnv(t)
	srv := newServer(t, e, nil)

	known := do(t, srv, http.MethodPost, "/api/auth/forgot-password", `{"email":"root@example.com"}`)
	unknown := do(t, srv, http.MethodPost, "/api/auth/forgot-password", `{"email":"ghost@example.com"}`)
	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, known.Code, unknown.Code)
	assert.JSONEq(t, known.Body.String(), unknown.Body.String())

	rec := do(t, srv, http.MethodPost, "/api/auth/reset-password", `{"token":"deadbeef","newPassword":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMiddlewareIgnoresBadCookie(t *testing.T) {
	e := newEnv(t)
	srv := newServer(t, e, nil)
	rec := do(t, srv, http.MethodGet, "/api/auth/me", "", &http.Cookie{Name: SessionCookieName, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
