package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/identity-api/internal/access"
	"github.com/identity-api/internal/application/auth"
	"github.com/identity-api/internal/application/identity"
	"github.com/identity-api/internal/config"
	"github.com/identity-api/internal/domain"
	"github.com/identity-api/internal/transport/http/handler"
	appmiddleware "github.com/identity-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	policy := access.NewPolicy()
	authn := appmiddleware.NewAuthenticator(deps.Tokens, deps.IdentityRepo, policy)

	authSvc := auth.NewService(auth.ServiceDeps{
		IdentityRepo: deps.IdentityRepo,
		Mailer:       deps.Mailer,
		SMSSender:    deps.SMSSender,
		Tokens:       deps.Tokens,
	})
	identitySvc := identity.NewService(identity.ServiceDeps{
		IdentityRepo: deps.IdentityRepo,
		Mailer:       deps.Mailer,
		SMSSender:    deps.SMSSender,
		AvatarStore:  deps.AvatarStore,
		Tokens:       deps.Tokens,
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)
	userH := handler.NewUserHandler(identitySvc, policy)

	r.Route("/api/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/auth/register", authH.Register)
		r.With(sensitiveRL.Limit).Post("/auth/login", authH.Login)
		r.With(sensitiveRL.Limit).Get("/users/forgot-password", userH.SendResetCode)
		r.With(sensitiveRL.Limit).Post("/users/forgot-password", userH.ResetPassword)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Route("/users", func(r chi.Router) {
			// Reachable before phone verification, or callers could never
			// verify in the first place.
			r.With(authn.Require(access.ActionRead, access.ScopeOwn, access.ResourceUser,
				appmiddleware.VerificationExempt())).Get("/isauth", userH.IsAuth)
			r.With(authn.Require(access.ActionRead, access.ScopeOwn, access.ResourceUser,
				appmiddleware.VerificationExempt())).Get("/access", userH.CheckAccess)

			r.With(authn.Require(access.ActionUpdate, access.ScopeOwn, access.ResourceEmailCode,
				appmiddleware.VerificationExempt())).Post("/verify-email", userH.Verify(domain.ChannelEmail))
			r.With(authn.Require(access.ActionRead, access.ScopeOwn, access.ResourceEmailCode,
				appmiddleware.VerificationExempt())).Get("/verify-email", userH.ResendCode(domain.ChannelEmail))
			r.With(authn.Require(access.ActionUpdate, access.ScopeOwn, access.ResourcePhoneCode,
				appmiddleware.VerificationExempt())).Post("/verify-phone", userH.Verify(domain.ChannelPhone))
			r.With(authn.Require(access.ActionRead, access.ScopeOwn, access.ResourcePhoneCode,
				appmiddleware.VerificationExempt())).Get("/verify-phone", userH.ResendCode(domain.ChannelPhone))

			r.With(authn.Require(access.ActionUpdate, access.ScopeOwn, access.ResourcePassword)).
				Patch("/change-password", userH.ChangePassword)
			r.With(authn.Require(access.ActionUpdate, access.ScopeOwn, access.ResourceUser)).
				Patch("/update", userH.Update)

			// Admin-only: these require grants at scope any, which only the
			// admin role holds.
			r.With(authn.Require(access.ActionUpdate, access.ScopeAny, access.ResourceUser)).
				Patch("/admin/update-profile", userH.AdminUpdate)
			r.With(authn.Require(access.ActionUpdate, access.ScopeAny, access.ResourceUser)).
				Patch("/admin/change-user-role", userH.AdminChangeRole)
			r.With(authn.Require(access.ActionUpdate, access.ScopeAny, access.ResourceUser)).
				Patch("/admin/verify-user", userH.AdminVerify)
			r.With(authn.Require(access.ActionRead, access.ScopeAny, access.ResourceUser)).
				Get("/{role}/{id}", userH.AdminFind)
		})
	})

	return r
}
