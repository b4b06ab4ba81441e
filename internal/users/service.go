package users

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/angelmondragon/medrec-backend/pkg/config"
	"github.com/angelmondragon/medrec-backend/pkg/db"
	"github.com/angelmondragon/medrec-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/medrec-backend/pkg/errors"
	"github.com/angelmondragon/medrec-backend/pkg/logger"
	"github.com/angelmondragon/medrec-backend/pkg/security"
	"github.com/google/uuid"
)

// Service manages the signed-in user's own account.
type Service interface {
	Profile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error
	DeleteAccount(ctx context.Context, userID uuid.UUID, accessID, password string) error
}

// UpdateProfileInput carries optional profile changes.
type UpdateProfileInput struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
	Email     *string `json:"email" validate:"omitempty,email"`
}

// ChangePasswordInput carries the current and repeated new password.
type ChangePasswordInput struct {
	OldPassword  string `json:"old_password" validate:"required"`
	NewPassword  string `json:"new_password" validate:"required"`
	NewPassword2 string `json:"new_password2" validate:"required"`
}

type sessionRevoker interface {
	Revoke(ctx context.Context, accessID string) error
}

type objectRemover interface {
	Delete(ctx context.Context, key string) error
}

type service struct {
	repo        *Repository
	sessions    sessionRevoker
	objects     objectRemover
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewService constructs the account service.
func NewService(repo *Repository, sessions sessionRevoker, objects objectRemover, passwordCfg config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if objects == nil {
		return nil, fmt.Errorf("storage required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        repo,
		sessions:    sessions,
		objects:     objects,
		passwordCfg: passwordCfg,
		logg:        logg,
	}, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if input.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.Email != nil {
		email, err := NormalizeEmail(*input.Email)
		if err != nil {
			return nil, pkgerrors.Invalid("invalid email", "email", "invalid")
		}
		if email != user.Email {
			if taken, err := s.emailTaken(ctx, email, user.ID); err != nil {
				return nil, err
			} else if taken {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered").
					WithDetails(map[string]string{"email": "taken"})
			}
			fields["email"] = email
		}
	}

	if err := s.repo.UpdateFields(ctx, user.ID, fields); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return s.Profile(ctx, user.ID)
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error {
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := security.VerifyPassword(input.OldPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return pkgerrors.Invalid("old password is incorrect", "old_password", "incorrect")
	}
	hash, err := NewPasswordHash(input.NewPassword, input.NewPassword2, "new_password", s.passwordCfg)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "password changed")
	return nil
}

func (s *service) DeleteAccount(ctx context.Context, userID uuid.UUID, accessID, password string) error {
	if password == "" {
		return pkgerrors.Invalid("password is required to delete account", "password", "required")
	}
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return pkgerrors.Invalid("incorrect password", "password", "incorrect")
	}

	keys, err := s.repo.Delete(ctx, user.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete account")
	}

	ctx = s.logg.WithUserID(ctx, user.ID.String())
	if accessID != "" {
		if err := s.sessions.Revoke(ctx, accessID); err != nil {
			s.logg.Error(ctx, "failed to revoke session after account deletion", err)
		}
	}
	for _, key := range keys {
		if err := s.objects.Delete(ctx, key); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "image_key", key), "failed to remove upload image", err)
		}
	}
	s.logg.Info(s.logg.WithField(ctx, "uploads_removed", len(keys)), "account deleted")
	return nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *service) emailTaken(ctx context.Context, email string, self uuid.UUID) (bool, error) {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
	}
	return existing.ID != self, nil
}

// NormalizeEmail trims, lower-cases and validates an address.
func NormalizeEmail(value string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(value))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("invalid email %q", value)
	}
	return email, nil
}

// NewPasswordHash checks that both entries match and satisfy the password
// policy, then hashes the password. field names the input in error details.
func NewPasswordHash(password, confirm, field string, cfg config.PasswordConfig) (string, error) {
	if password != confirm {
		return "", pkgerrors.Invalid("password fields didn't match", field, "mismatch")
	}
	if err := security.ValidatePassword(password, cfg); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error()).
			WithDetails(map[string]string{field: err.Error()})
	}
	hash, err := security.HashPassword(password, cfg)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	return hash, nil
}
