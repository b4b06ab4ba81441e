package auth

import (
	"strings"
	"time"

	"github.com/angelmondragon/medrec-backend/internal/users"
	"github.com/angelmondragon/medrec-backend/pkg/enums"
	"github.com/google/uuid"
)

// LoginRequest captures the credentials sent to the login endpoint. Username
// accepts either a username or an email address.
type LoginRequest struct {
	Username string `json:"username" validate:"required_without=Email"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

func (r LoginRequest) identifier() string {
	if v := strings.TrimSpace(r.Username); v != "" {
		return v
	}
	return strings.TrimSpace(r.Email)
}

// TokenPair is the access/refresh pair issued by login, register and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginResponse contains the tokens and user produced by a successful login.
type LoginResponse struct {
	TokenPair
	User *users.UserDTO `json:"user"`
}

// RefreshRequest carries the refresh token paired with the bearer access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// VerifyRequest carries the access token to check.
type VerifyRequest struct {
	Token string `json:"token" validate:"required"`
}

// VerifyResponse describes a valid access token.
type VerifyResponse struct {
	Valid     bool           `json:"valid"`
	UserID    uuid.UUID      `json:"user_id"`
	Role      enums.UserRole `json:"role"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// PasswordResetRequest names the account to reset.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetResponse is returned for every reset request. Link, UID and
// Token are only populated outside production.
type PasswordResetResponse struct {
	Message   string `json:"message"`
	ResetLink string `json:"reset_link,omitempty"`
	UID       string `json:"uid,omitempty"`
	Token     string `json:"token,omitempty"`
}

// PasswordResetConfirmRequest carries the new password for a reset link.
type PasswordResetConfirmRequest struct {
	UID          string `json:"-"`
	Token        string `json:"-"`
	NewPassword  string `json:"new_password" validate:"required"`
	NewPassword2 string `json:"new_password2" validate:"required"`
}
