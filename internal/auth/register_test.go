package auth

import (
	"context"
	"testing"

	"github.com/angelmondragon/medrec-backend/pkg/config"
	"github.com/angelmondragon/medrec-backend/pkg/db"
	"github.com/angelmondragon/medrec-backend/pkg/db/dbtest"
	"github.com/angelmondragon/medrec-backend/pkg/db/models"
	"github.com/angelmondragon/medrec-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/medrec-backend/pkg/errors"
	"github.com/angelmondragon/medrec-backend/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRegisterRequest() RegisterRequest {
	return RegisterRequest{
		Username:  "amira",
		Email:     "Amira@Example.com",
		Password:  "Gr33n-tea-leaf",
		Password2: "Gr33n-tea-leaf",
		FirstName: "Amira",
		LastName:  "Haddad",
	}
}

func TestRegisterCreatesUser(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewRegisterService(RegisterServiceParams{DB: db.FromGorm(conn), PasswordConfig: config.PasswordConfig{}})
	require.NoError(t, err)

	dto, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)
	assert.Equal(t, "amira", dto.Username)
	assert.Equal(t, "amira@example.com", dto.Email)
	assert.Equal(t, enums.UserRoleUser, dto.Role)
	assert.True(t, dto.IsActive)

	var stored models.User
	require.NoError(t, conn.First(&stored, "id = ?", dto.ID).Error)
	ok, err := security.VerifyPassword("Gr33n-tea-leaf", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, stored.IsStaff)
}

func TestRegisterConflicts(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewRegisterService(RegisterServiceParams{DB: db.FromGorm(conn)})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Register(ctx, validRegisterRequest())
	require.NoError(t, err)

	sameUsername := validRegisterRequest()
	sameUsername.Email = "other@example.com"
	_, err = svc.Register(ctx, sameUsername)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "username: %v", err)

	sameEmail := validRegisterRequest()
	sameEmail.Username = "amira2"
	sameEmail.Email = "AMIRA@example.com"
	_, err = svc.Register(ctx, sameEmail)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "email: %v", err)

	var count int64
	require.NoError(t, conn.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRegisterValidation(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewRegisterService(RegisterServiceParams{DB: db.FromGorm(conn)})
	require.NoError(t, err)

	cases := map[string]func(*RegisterRequest){
		"mismatch":       func(r *RegisterRequest) { r.Password2 = "different-pass1" },
		"short":          func(r *RegisterRequest) { r.Password, r.Password2 = "abc12", "abc12" },
		"numeric":        func(r *RegisterRequest) { r.Password, r.Password2 = "1234567890", "1234567890" },
		"bad username":   func(r *RegisterRequest) { r.Username = "has space" },
		"bad email":      func(r *RegisterRequest) { r.Email = "not-an-email" },
		"empty username": func(r *RegisterRequest) { r.Username = "  " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRegisterRequest()
			mutate(&req)
			_, err := svc.Register(context.Background(), req)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestStaffRegisterGrantsAdminRole(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewStaffRegisterService(RegisterServiceParams{DB: db.FromGorm(conn)})
	require.NoError(t, err)

	dto, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleAdmin, dto.Role)
}

func TestRegisterRequiresDB(t *testing.T) {
	_, err := NewRegisterService(RegisterServiceParams{})
	assert.Error(t, err)
}
