package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/gnhindia1-ui/collab/internal/mail"
)

const (
	RegistrationTokenTTL = 24 * time.Hour
	ResetTokenTTL        = time.Hour
	MinPasswordLength    = 6
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrTokenNotFound      = errors.New("invalid registration token")
	ErrTokenUsed          = errors.New("registration token has already been used")
	ErrTokenExpired       = errors.New("registration token has expired")
	ErrInvalidResetToken  = errors.New("invalid or expired password reset token")
	ErrWeakSeedPassword   = errors.New("bootstrap password too short")
)

// ValidationError is a request problem detected before any storage access.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ResetLimiter throttles password-reset requests per key.
type ResetLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type Service struct {
	store    *Store
	sessions *Sessions
	mailer   mail.Sender
	limiter  ResetLimiter
	baseURL  string
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(store *Store, sessions *Sessions, mailer mail.Sender, limiter ResetLimiter, baseURL string, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		sessions: sessions,
		mailer:   mailer,
		limiter:  limiter,
		baseURL:  strings.TrimRight(baseURL, "/"),
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) Sessions() *Sessions { return s.sessions }

// Authenticate checks credentials and issues a session credential. Unknown
// emails and wrong passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", invalid("Email and password are required")
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		VerifyPassword(password, string(dummyHash))
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if !VerifyPassword(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.sessions.Create(Session{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return nil, "", fmt.Errorf("sign session: %w", err)
	}
	return user, token, nil
}

func (s *Service) Me(ctx context.Context, sess *Session) (*User, error) {
	return s.store.GetUserByID(ctx, sess.UserID)
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Token    string `json:"token"`
}

func (in RegisterInput) validate() error {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" || strings.TrimSpace(in.Name) == "" || in.Token == "" {
		return invalid("All fields are required")
	}
	if !emailRe.MatchString(strings.TrimSpace(in.Email)) {
		return invalid("Invalid email format")
	}
	if len(in.Password) < MinPasswordLength {
		return invalid(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	if len(in.Token) != RegistrationTokenLength {
		return invalid("Invalid token format")
	}
	return nil
}

// Register redeems a registration token for a new Admin account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	return s.store.Redeem(ctx, in.Token, in.Email, hash, strings.TrimSpace(in.Name), s.now().UTC())
}

// IssueRegistrationToken mints a single-use token on behalf of a Superadmin.
func (s *Service) IssueRegistrationToken(ctx context.Context, issuer *Session) (*RegistrationToken, error) {
	if issuer == nil || issuer.Role != RoleSuperadmin {
		return nil, ErrForbidden
	}
	token, err := NewRegistrationToken()
	if err != nil {
		return nil, err
	}
	return s.store.CreateRegistrationToken(ctx, token, issuer.UserID, s.now().UTC().Add(RegistrationTokenTTL))
}

func (s *Service) ListRegistrationTokens(ctx context.Context) ([]RegistrationToken, error) {
	tokens, err := s.store.ListRegistrationTokens(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range tokens {
		tokens[i].Active = tokens[i].Usable(now)
	}
	return tokens, nil
}

// ForgotPassword starts a reset for email if such an account exists. The
// caller must answer identically either way; only storage and mail failures
// surface as errors.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return invalid("Email is required")
	}
	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, email)
		if err != nil {
			return fmt.Errorf("reset limiter: %w", err)
		}
		if !ok {
			s.logger.Warn("password reset throttled", "email", email)
			return nil
		}
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	token, err := NewResetToken()
	if err != nil {
		return err
	}
	if err := s.store.SetResetToken(ctx, user.ID, token, s.now().UTC().Add(ResetTokenTTL)); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	subject, body, err := mail.PasswordResetMessage(s.baseURL+"/reset-password/"+token, ResetTokenTTL)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, user.Email, subject, body); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	s.logger.Info("password reset mail sent", "user_id", user.ID)
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return invalid("Token and new password are required")
	}
	if len(newPassword) < MinPasswordLength {
		return invalid(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	ok, err := s.store.ResetPassword(ctx, token, hash, s.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidResetToken
	}
	return nil
}
