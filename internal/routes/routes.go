package routes

import (
	"net/http"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/handlers"
	"github.com/BradenHooton/gatehouse/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Handlers bundles everything the router dispatches to
type Handlers struct {
	Auth    *handlers.AuthHandler
	Google  *handlers.GoogleHandler
	Profile *handlers.ProfileHandler
	Health  *handlers.HealthHandler
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	h Handlers,
	session func(http.Handler) http.Handler,
	rateLimit middleware.RateLimitConfig,
) {
	router.Get("/health", h.Health.Health)

	// Public routes, rate limited per client IP
	router.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(rateLimit))

		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Get("/verify-email", h.Auth.VerifyEmail)
		r.Post("/resend-verification", h.Auth.ResendVerification)
		r.Get("/csrf-token", h.Auth.CSRFToken)
		r.Post("/google", h.Google.SignIn)
	})

	// Session routes
	router.Route("/profile", func(r chi.Router) {
		r.Use(session)

		r.Get("/me", h.Profile.Me)
		r.Post("/complete", h.Profile.Complete)
		r.Put("/password", h.Profile.ChangePassword)
		r.With(auth.RequireCompletedProfile).Put("/", h.Profile.Update)
	})
}
