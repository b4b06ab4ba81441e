package controllers

import (
	"net/http"

	"github.com/angelmondragon/medrec-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/medrec-backend/pkg/errors"
	"github.com/google/uuid"
)

const tokenHeader = "X-Medrec-Token"

func currentUserID(r *http.Request) (uuid.UUID, error) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return p.UserID, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable")
}
