package auth

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/angelmondragon/medrec-backend/internal/users"
	"github.com/angelmondragon/medrec-backend/pkg/auth/session"
	"github.com/angelmondragon/medrec-backend/pkg/config"
	"github.com/angelmondragon/medrec-backend/pkg/db/dbtest"
	"github.com/angelmondragon/medrec-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/medrec-backend/pkg/errors"
	"github.com/angelmondragon/medrec-backend/pkg/logger"
	"github.com/angelmondragon/medrec-backend/pkg/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memoryResetTokens struct {
	tokens map[uuid.UUID]string
}

func (m *memoryResetTokens) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	token := uuid.NewString()
	m.tokens[userID] = token
	return token, nil
}

func (m *memoryResetTokens) Consume(ctx context.Context, userID uuid.UUID, token string) error {
	stored, ok := m.tokens[userID]
	delete(m.tokens, userID)
	if !ok || stored != token {
		return session.ErrInvalidResetToken
	}
	return nil
}

func buildResetService(t *testing.T, expose bool) (PasswordResetService, *gorm.DB, *models.User) {
	t.Helper()
	conn := dbtest.Open(t)
	user := dbtest.CreateUser(t, conn)
	svc, err := NewPasswordResetService(PasswordResetParams{
		UserRepo:    users.NewRepository(conn),
		Tokens:      &memoryResetTokens{tokens: map[uuid.UUID]string{}},
		ResetConfig: config.PasswordResetConfig{FrontendURL: "http://localhost:3000/reset-password"},
		ExposeToken: expose,
		Logger:      logger.New(logger.Options{ServiceName: "auth-test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc, conn, user
}

func TestPasswordResetRoundTrip(t *testing.T) {
	svc, conn, user := buildResetService(t, true)
	ctx := context.Background()

	resp, err := svc.Request(ctx, PasswordResetRequest{Email: strings.ToUpper(user.Email)})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, EncodeUID(user.ID), resp.UID)
	assert.True(t, strings.HasPrefix(resp.ResetLink, "http://localhost:3000/reset-password/"+resp.UID+"/"))

	err = svc.Confirm(ctx, PasswordResetConfirmRequest{
		UID:          resp.UID,
		Token:        resp.Token,
		NewPassword:  "Fresh-mint-42",
		NewPassword2: "Fresh-mint-42",
	})
	require.NoError(t, err)

	var stored models.User
	require.NoError(t, conn.First(&stored, "id = ?", user.ID).Error)
	ok, err := security.VerifyPassword("Fresh-mint-42", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	err = svc.Confirm(ctx, PasswordResetConfirmRequest{
		UID:          resp.UID,
		Token:        resp.Token,
		NewPassword:  "Another-pass-7",
		NewPassword2: "Another-pass-7",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "token reuse: %v", err)
}

func TestPasswordResetHidesTokenWhenNotExposed(t *testing.T) {
	svc, _, user := buildResetService(t, false)

	resp, err := svc.Request(context.Background(), PasswordResetRequest{Email: user.Email})
	require.NoError(t, err)
	assert.Empty(t, resp.Token)
	assert.Empty(t, resp.ResetLink)
	assert.NotEmpty(t, resp.Message)
}

func TestPasswordResetUnknownEmailIsGeneric(t *testing.T) {
	svc, _, _ := buildResetService(t, true)

	resp, err := svc.Request(context.Background(), PasswordResetRequest{Email: "nobody@example.com"})
	require.NoError(t, err)
	assert.Empty(t, resp.Token)
	assert.Equal(t, passwordResetMessage, resp.Message)
}

func TestPasswordResetConfirmRejectsBadLinks(t *testing.T) {
	svc, _, user := buildResetService(t, true)
	ctx := context.Background()

	resp, err := svc.Request(ctx, PasswordResetRequest{Email: user.Email})
	require.NoError(t, err)

	cases := []PasswordResetConfirmRequest{
		{UID: "%%%", Token: resp.Token, NewPassword: "Fresh-mint-42", NewPassword2: "Fresh-mint-42"},
		{UID: EncodeUID(uuid.New()), Token: resp.Token, NewPassword: "Fresh-mint-42", NewPassword2: "Fresh-mint-42"},
		{UID: resp.UID, Token: resp.Token, NewPassword: "Fresh-mint-42", NewPassword2: "Fresh-mint-43"},
	}
	for _, req := range cases {
		err := svc.Confirm(ctx, req)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "req %+v: %v", req, err)
	}

	err = svc.Confirm(ctx, PasswordResetConfirmRequest{
		UID: resp.UID, Token: resp.Token, NewPassword: "Fresh-mint-42", NewPassword2: "Fresh-mint-42",
	})
	assert.NoError(t, err, "mismatched confirmation must not burn the token")
}

func TestUIDRoundTrip(t *testing.T) {
	id := uuid.New()
	decoded, err := DecodeUID(EncodeUID(id))
	require.NoError(t, err)
	assert.Equal(t, id, decoded)

	_, err = DecodeUID(EncodeUID(uuid.Nil))
	assert.Error(t, err)
}
