package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-test-secret-test-secret!"

func TestSessionRoundTrip(t *testing.T) {
	s := NewSessions(testSecret, false)
	tok, err := s.Create(Session{UserID: 4, Email: "a@example.com", Role: RoleSuperadmin})
	require.NoError(t, err)

	got, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, &Session{UserID: 4, Email: "a@example.com", Role: RoleSuperadmin}, got)
}

func TestSessionRejectsTamperingAndOtherKeys(t *testing.T) {
	s := NewSessions(testSecret, false)
	tok, err := s.Create(Session{UserID: 4, Email: "a@example.com", Role: RoleAdmin})
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	mid := len(payload) / 2
	if payload[mid] == 'A' {
		payload[mid] = 'B'
	} else {
		payload[mid] = 'A'
	}
	_, err = s.Verify(parts[0] + "." + string(payload) + "." + parts[2])
	assert.ErrorIs(t, err, ErrInvalidSession)

	other := NewSessions("another-secret-another-secret-12345", false)
	_, err = other.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = s.Verify("")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionRejectsNoneAndUnknownRole(t *testing.T) {
	s := NewSessions(testSecret, false)
	claims := sessionClaims{
		UserID: 1, Email: "x@example.com", Role: RoleSuperadmin,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Verify(none)
	assert.ErrorIs(t, err, ErrInvalidSession)

	claims.Role = Role(3)
	bad, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = s.Verify(bad)
	assert.ErrorIs(t, err, ErrInvalidSession)

	claims.Role = RoleAdmin
	claims.ExpiresAt = nil
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = s.Verify(noExp)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionExpiry(t *testing.T) {
	s := NewSessions(testSecret, false)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return start }
	tok, err := s.Create(Session{UserID: 2, Email: "b@example.com", Role: RoleAdmin})
	require.NoError(t, err)

	s.now = func() time.Time { return start.Add(SessionTTL - time.Minute) }
	_, err = s.Verify(tok)
	require.NoError(t, err)

	s.now = func() time.Time { return start.Add(SessionTTL + time.Minute) }
	_, err = s.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionCookies(t *testing.T) {
	s := NewSessions(testSecret, true)
	rec := httptest.NewRecorder()
	s.SetCookie(rec, "tok")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, SessionCookieName, c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, int(SessionTTL/time.Second), c.MaxAge)

	rec = httptest.NewRecorder()
	s.ClearCookie(rec)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, "", cleared[0].Value)
	assert.Less(t, cleared[0].MaxAge, 0)
}

func TestSessionFromRequest(t *testing.T) {
	s := NewSessions(testSecret, false)
	tok, err := s.Create(Session{UserID: 5, Email: "c@example.com", Role: RoleAdmin})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err = s.FromRequest(req)
	assert.ErrorIs(t, err, ErrInvalidSession)

	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tok})
	got, err := s.FromRequest(req)
	require.NoError(t, err)
	assert.EqualValues(t, 5, got.UserID)
}
