package auth

import (
	pkgerrors "github.com/angelmondragon/medrec-backend/pkg/errors"
)

// NewStaffRegisterService builds the dev-only registration flow that creates
// staff accounts, which receive the admin role in their tokens.
func NewStaffRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &registerService{
		db:          params.DB,
		passwordCfg: params.PasswordConfig,
		staff:       true,
	}, nil
}
