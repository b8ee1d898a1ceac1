package auth

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	SessionCookieName = "session"
	SessionTTL        = 30 * 24 * time.Hour
)

// ErrInvalidSession covers every reason a session credential is rejected. The
// cause is intentionally not exposed.
var ErrInvalidSession = errors.New("invalid session")

type sessionClaims struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies stateless HS256 session credentials. A
// credential stays valid until it expires; logging out only removes the
// cookie, so revocation requires rotating the secret.
type Sessions struct {
	secret       []byte
	secureCookie bool
	now          func() time.Time
}

func NewSessions(secret string, secureCookie bool) *Sessions {
	return &Sessions{
		secret:       []byte(secret),
		secureCookie: secureCookie,
		now:          time.Now,
	}
}

func (s *Sessions) Create(p Session) (string, error) {
	now := s.now().UTC()
	claims := sessionClaims{
		UserID: p.UserID,
		Email:  p.Email,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Sessions) Verify(token string) (*Session, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{},
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || claims.UserID <= 0 || !claims.Role.Valid() {
		return nil, ErrInvalidSession
	}
	return &Session{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}

func (s *Sessions) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionTTL / time.Second),
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest resolves the session carried by the request's cookie.
func (s *Sessions) FromRequest(r *http.Request) (*Session, error) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return nil, ErrInvalidSession
	}
	return s.Verify(c.Value)
}
