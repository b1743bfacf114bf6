package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/posiljke/internal/auth"
	"github.com/erazemk/posiljke/internal/model"
	"github.com/erazemk/posiljke/internal/store"
)

var errBadCredentials = errors.New("invalid credentials")

// AuthHandler handles sign-in, sign-out and password changes.
type AuthHandler struct {
	DB        *sqlx.DB
	JWTSecret string
	Logger    *zap.Logger
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// authenticate returns the active user whose password matches, or
// errBadCredentials.
func (h *AuthHandler) authenticate(ctx context.Context, username, password string) (*model.User, error) {
	user, err := store.GetUserByUsername(ctx, h.DB, username)
	if err != nil {
		return nil, err
	}
	if user == nil || user.DeletedAt != nil {
		return nil, errBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, errBadCredentials
	}
	return user, nil
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil || req.Username == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "username and password required")
		return
	}

	user, err := h.authenticate(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, errBadCredentials):
		h.Logger.Warn("login failed", zap.String("username", req.Username), zap.String("remote", r.RemoteAddr))
		jsonError(w, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		h.Logger.Error("looking up user", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, user.ID, user.Username, user.Role)
	if err != nil {
		h.Logger.Error("signing token", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	h.Logger.Info("user logged in", zap.String("user", user.Username), zap.String("role", user.Role))
	jsonResponse(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(auth.TokenExpiry).UTC(),
		User:      user,
	})
}

// Logout handles POST /api/auth/logout. The presented token stops working.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.Expiry()); err != nil {
		h.Logger.Error("revoking token", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	h.Logger.Info("user logged out", zap.String("user", claims.Username))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "current and new password required")
		return
	}
	if err := model.ValidatePassword(req.NewPassword); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.authenticate(r.Context(), claims.Username, req.CurrentPassword)
	switch {
	case errors.Is(err, errBadCredentials):
		jsonError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	case err != nil:
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	if err := store.UpdateUserPassword(r.Context(), h.DB, user.ID, string(hash)); err != nil {
		h.Logger.Error("updating password", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	h.Logger.Info("user changed own password", zap.String("user", user.Username))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password updated"})
}
