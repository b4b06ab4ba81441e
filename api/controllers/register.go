package controllers

import (
	"net/http"

	"github.com/angelmondragon/medrec-backend/api/responses"
	"github.com/angelmondragon/medrec-backend/api/validators"
	"github.com/angelmondragon/medrec-backend/internal/auth"
	"github.com/angelmondragon/medrec-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/medrec-backend/pkg/errors"
	"github.com/angelmondragon/medrec-backend/pkg/logger"
)

// AuthRegister creates an account and signs it in.
func AuthRegister(reg auth.RegisterService, svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth service"))
			return
		}

		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		registerAndLogin(w, r, reg, svc, body, logg)
	}
}

// StaffRegister is the dev-only bootstrap for catalog administrators.
func StaffRegister(reg auth.RegisterService, svc auth.Service, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg == nil || cfg.App.IsProd() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "staff registration disabled"))
			return
		}
		if reg == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth service"))
			return
		}

		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		registerAndLogin(w, r, reg, svc, body, logg)
	}
}

func registerAndLogin(w http.ResponseWriter, r *http.Request, reg auth.RegisterService, svc auth.Service, body auth.RegisterRequest, logg *logger.Logger) {
	if _, err := reg.Register(r.Context(), body); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}

	result, err := svc.Login(r.Context(), auth.LoginRequest{Username: body.Username, Password: body.Password})
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}

	w.Header().Set(tokenHeader, result.AccessToken)
	responses.WriteCreated(w, result)
}
