package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/medrec-backend/api/controllers"
	"github.com/angelmondragon/medrec-backend/api/middleware"
	"github.com/angelmondragon/medrec-backend/internal/auth"
	"github.com/angelmondragon/medrec-backend/internal/catalog"
	"github.com/angelmondragon/medrec-backend/internal/uploads"
	"github.com/angelmondragon/medrec-backend/internal/users"
	"github.com/angelmondragon/medrec-backend/pkg/auth/session"
	"github.com/angelmondragon/medrec-backend/pkg/config"
	"github.com/angelmondragon/medrec-backend/pkg/enums"
	"github.com/angelmondragon/medrec-backend/pkg/logger"
	"github.com/angelmondragon/medrec-backend/pkg/storage"
	"github.com/angelmondragon/medrec-backend/pkg/storage/driver"
	"github.com/angelmondragon/medrec-backend/pkg/storage/fs"
)

// Deps carries everything the router mounts. Nil optional fields disable
// the routes or checks that need them.
type Deps struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	RateLimiter middleware.WindowCounter
	Sessions    session.AccessSessionChecker
	Storage     storage.Store

	Auth          auth.Service
	Register      auth.RegisterService
	StaffRegister auth.RegisterService
	PasswordReset auth.PasswordResetService
	Users         users.Service
	Catalog       catalog.Service
	Importer      *catalog.Importer
	Exporter      *catalog.Exporter
	Uploads       uploads.Service

	Metrics http.Handler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	resetPolicy := middleware.NewAuthRateLimitPolicy(
		"password_reset",
		cfg.AuthRateLimit.ResetWindow,
		cfg.AuthRateLimit.ResetIPLimit,
		cfg.AuthRateLimit.ResetEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readinessChecks(deps), logg))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	if store, ok := deps.Storage.(*fs.Store); ok && store != nil {
		files := http.StripPrefix(driver.MediaPath, http.FileServer(http.Dir(store.Root())))
		r.Method(http.MethodGet, driver.MediaPath+"/*", files)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.RateLimiter, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.RateLimiter, logg)).Post("/register", controllers.AuthRegister(deps.Register, deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Post("/verify", controllers.AuthVerify(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(resetPolicy, deps.RateLimiter, logg)).Post("/password/reset", controllers.PasswordResetRequest(deps.PasswordReset, logg))
		r.Post("/password/reset/confirm/{uid}/{token}", controllers.PasswordResetConfirm(deps.PasswordReset, logg))
	})

	r.Route("/api/admin/v1/auth", func(r chi.Router) {
		if !cfg.App.IsProd() {
			r.Post("/register", controllers.StaffRegister(deps.StaffRegister, deps.Auth, cfg, logg))
		}
		r.With(middleware.AuthRateLimit(loginPolicy, deps.RateLimiter, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

		r.Route("/v1/account", func(r chi.Router) {
			r.Get("/profile", controllers.AccountProfile(deps.Users, logg))
			r.Patch("/profile", controllers.AccountUpdateProfile(deps.Users, logg))
			r.Post("/password", controllers.AccountChangePassword(deps.Users, logg))
			r.Delete("/", controllers.AccountDelete(deps.Users, logg))
		})

		r.Route("/v1/uploads", func(r chi.Router) {
			r.Get("/", controllers.UploadsList(deps.Uploads, logg))
			r.Post("/", controllers.UploadsCreate(deps.Uploads, cfg.Uploads.MaxBytes(), logg))
			r.Get("/{uploadId}", controllers.UploadsGet(deps.Uploads, logg))
		})

		r.Route("/v1/medicines", func(r chi.Router) {
			r.Get("/", controllers.MedicinesList(deps.Catalog, logg))
			r.Get("/search", controllers.MedicinesSearch(deps.Catalog, logg))
			r.Get("/{code}", controllers.MedicineDetail(deps.Catalog, logg))
		})

		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))

			r.Route("/medicines", func(r chi.Router) {
				r.Post("/", controllers.AdminMedicineUpsert(deps.Catalog, logg))
				r.Post("/import", controllers.AdminMedicinesImport(deps.Importer, logg))
				r.Get("/export", controllers.AdminMedicinesExport(deps.Exporter, logg))
				r.Patch("/{code}", controllers.AdminMedicineUpdate(deps.Catalog, logg))
				r.Delete("/{code}", controllers.AdminMedicineDelete(deps.Catalog, logg))
			})
			r.Get("/uploads", controllers.AdminUploadsList(deps.Uploads, logg))
		})
	})

	return r
}

func readinessChecks(deps Deps) map[string]controllers.Pinger {
	checks := map[string]controllers.Pinger{}
	if deps.DB != nil {
		checks["db"] = deps.DB
	}
	if deps.Redis != nil {
		checks["redis"] = deps.Redis
	}
	if deps.Storage != nil {
		checks["storage"] = deps.Storage
	}
	return checks
}
