package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/angelmondragon/medrec-backend/internal/users"
	"github.com/angelmondragon/medrec-backend/pkg/auth/session"
	"github.com/angelmondragon/medrec-backend/pkg/config"
	"github.com/angelmondragon/medrec-backend/pkg/db"
	"github.com/angelmondragon/medrec-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/medrec-backend/pkg/errors"
	"github.com/angelmondragon/medrec-backend/pkg/logger"
	"github.com/google/uuid"
)

const passwordResetMessage = "If the email is registered, a password reset link has been generated"

// PasswordResetService issues and redeems password reset links.
type PasswordResetService interface {
	Request(ctx context.Context, req PasswordResetRequest) (*PasswordResetResponse, error)
	Confirm(ctx context.Context, req PasswordResetConfirmRequest) error
}

type resetUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type resetTokenStore interface {
	Issue(ctx context.Context, userID uuid.UUID) (string, error)
	Consume(ctx context.Context, userID uuid.UUID, token string) error
}

// PasswordResetParams names the dependencies of the reset flow. ExposeToken
// returns the link in the response instead of expecting out-of-band delivery.
type PasswordResetParams struct {
	UserRepo       resetUserRepository
	Tokens         resetTokenStore
	PasswordConfig config.PasswordConfig
	ResetConfig    config.PasswordResetConfig
	ExposeToken    bool
	Logger         *logger.Logger
}

type passwordResetService struct {
	users       resetUserRepository
	tokens      resetTokenStore
	passwordCfg config.PasswordConfig
	resetCfg    config.PasswordResetConfig
	expose      bool
	logg        *logger.Logger
}

// NewPasswordResetService validates dependencies and builds the reset flow.
func NewPasswordResetService(params PasswordResetParams) (PasswordResetService, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Tokens == nil {
		return nil, fmt.Errorf("reset token store is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &passwordResetService{
		users:       params.UserRepo,
		tokens:      params.Tokens,
		passwordCfg: params.PasswordConfig,
		resetCfg:    params.ResetConfig,
		expose:      params.ExposeToken,
		logg:        params.Logger,
	}, nil
}

func (s *passwordResetService) Request(ctx context.Context, req PasswordResetRequest) (*PasswordResetResponse, error) {
	resp := &PasswordResetResponse{Message: passwordResetMessage}

	email, err := users.NormalizeEmail(req.Email)
	if err != nil {
		return nil, pkgerrors.Invalid("invalid email", "email", "invalid")
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			s.logg.Info(ctx, "password reset requested for unknown email")
			return resp, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if !user.IsActive {
		return resp, nil
	}

	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue reset token")
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "password reset token issued")

	if s.expose {
		uid := EncodeUID(user.ID)
		resp.UID = uid
		resp.Token = token
		resp.ResetLink = resetLink(s.resetCfg.FrontendURL, uid, token)
	}
	return resp, nil
}

func (s *passwordResetService) Confirm(ctx context.Context, req PasswordResetConfirmRequest) error {
	userID, err := DecodeUID(req.UID)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid reset link")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid reset link")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	hash, err := users.NewPasswordHash(req.NewPassword, req.NewPassword2, "new_password", s.passwordCfg)
	if err != nil {
		return err
	}
	if err := s.tokens.Consume(ctx, user.ID, req.Token); err != nil {
		if errors.Is(err, session.ErrInvalidResetToken) {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired token")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume reset token")
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "password reset completed")
	return nil
}

// EncodeUID renders a user id for use in a reset link.
func EncodeUID(id uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id.String()))
}

// DecodeUID reverses EncodeUID.
func DecodeUID(value string) (uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(strings.TrimSpace(value), "="))
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(string(raw))
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("empty uid")
	}
	return id, nil
}

func resetLink(base, uid, token string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s/", base, url.PathEscape(uid), url.PathEscape(token))
}

