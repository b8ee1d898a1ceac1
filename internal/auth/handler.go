package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gnhindia1-ui/collab/internal/httpjson"
)

// Recorder receives auth outcomes for metrics.
type Recorder interface {
	AuthEvent(event, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) AuthEvent(string, string) {}

type Handler struct {
	Service *Service
	Logger  *slog.Logger
	Metrics Recorder
}

const genericResetMessage = "If a user with that email exists, a password reset email has been sent."

func (h *Handler) record(event string, err error) {
	m := h.Metrics
	if m == nil {
		m = nopRecorder{}
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.AuthEvent(event, outcome)
}

// fail maps a service error to a response. Unexpected errors are logged and
// reported without detail.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		httpjson.Error(w, http.StatusBadRequest, verr.Msg)
	case errors.Is(err, httpjson.ErrBadBody):
		httpjson.Error(w, http.StatusBadRequest, "Invalid request body")
	case errors.Is(err, ErrInvalidCredentials):
		httpjson.Error(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, ErrUnauthenticated):
		httpjson.Error(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, ErrForbidden):
		httpjson.Error(w, http.StatusForbidden, "Forbidden: Superadmin access required")
	case errors.Is(err, ErrUserNotFound):
		httpjson.Error(w, http.StatusNotFound, "User not found")
	case errors.Is(err, ErrTokenNotFound):
		httpjson.Error(w, http.StatusBadRequest, "Invalid registration token")
	case errors.Is(err, ErrTokenUsed):
		httpjson.Error(w, http.StatusBadRequest, "Registration token has already been used")
	case errors.Is(err, ErrTokenExpired):
		httpjson.Error(w, http.StatusBadRequest, "Registration token has expired")
	case errors.Is(err, ErrEmailTaken):
		httpjson.Error(w, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, ErrInvalidResetToken):
		httpjson.Error(w, http.StatusBadRequest, "Invalid or expired password reset token")
	default:
		h.Logger.Error(op, "err", err)
		httpjson.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httpjson.Decode(r, &req); err != nil {
		h.fail(w, "login", err)
		return
	}
	user, token, err := h.Service.Authenticate(r.Context(), req.Email, req.Password)
	h.record("login", err)
	if err != nil {
		h.fail(w, "login", err)
		return
	}
	h.Service.Sessions().SetCookie(w, token)
	httpjson.Write(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    user,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Service.Sessions().ClearCookie(w)
	httpjson.Write(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess, err := Authenticated(r.Context())
	if err != nil {
		h.fail(w, "me", err)
		return
	}
	user, err := h.Service.Me(r.Context(), sess)
	if err != nil {
		h.fail(w, "me", err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"user": user})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpjson.Decode(r, &in); err != nil {
		h.fail(w, "register", err)
		return
	}
	user, err := h.Service.Register(r.Context(), in)
	h.record("register", err)
	if err != nil {
		h.fail(w, "register", err)
		return
	}
	httpjson.Write(w, http.StatusCreated, map[string]any{
		"message": "Registration successful",
		"user":    user,
	})
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := httpjson.Decode(r, &req); err != nil {
		h.fail(w, "forgot password", err)
		return
	}
	err := h.Service.ForgotPassword(r.Context(), req.Email)
	h.record("forgot_password", err)
	if err != nil {
		h.fail(w, "forgot password", err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"message": genericResetMessage})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := httpjson.Decode(r, &req); err != nil {
		h.fail(w, "reset password", err)
		return
	}
	err := h.Service.ResetPassword(r.Context(), req.Token, req.NewPassword)
	h.record("reset_password", err)
	if err != nil {
		h.fail(w, "reset password", err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"message": "Password has been reset successfully."})
}

// GenerateToken is mounted behind RequireRole(RoleSuperadmin).
func (h *Handler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFromContext(r.Context())
	rt, err := h.Service.IssueRegistrationToken(r.Context(), sess)
	h.record("issue_token", err)
	if err != nil {
		h.fail(w, "generate token", err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{
		"token":     rt.Token,
		"tokenId":   rt.ID,
		"expiresAt": rt.ExpiresAt,
		"createdBy": rt.CreatedBy,
	})
}

func (h *Handler) ListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.Service.ListRegistrationTokens(r.Context())
	if err != nil {
		h.fail(w, "list tokens", err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"tokens": tokens})
}
