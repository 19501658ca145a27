package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/passdesk/internal/metrics"
	"github.com/hitoshi/passdesk/internal/middleware"
)

// SetupAuthRoutes returns a router with the sign-in routes only.
func SetupAuthRoutes(service AuthServiceInterface, config AuthHandlerConfig) http.Handler {
	r := chi.NewRouter()
	h := NewAuthHandler(service, config)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/methods", h.Methods)

		r.Get("/google/login", h.Login)
		r.Get("/google/callback", h.Callback)
		r.Post("/anonymous", h.Anonymous)

		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
	})

	return r
}

// RouterDeps holds everything NewRouter wires together.
type RouterDeps struct {
	// Middleware
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Metrics           metrics.MetricsCollector

	// Operations
	HealthChecker  HealthChecker
	MetricsHandler http.Handler // nil leaves /metrics unmounted

	// Auth
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// Passports
	PassportService PassportServiceInterface
	Changes         ChangeSubscriber
	CardRenderer    CardRenderer
	Negotiator      LanguageNegotiator

	// Photos
	PhotoEncoder  PhotoEncoder
	PhotoImporter PhotoImporter

	// Users
	UserService UserServiceInterface
}

// NewRouter builds the full route tree and middleware chain.
//
// Global middleware, outermost first:
//
//	RealIP → Logging → Recovery → SecurityHeaders → CORS
//
// Protected routes add Session → RateLimit(General) → CSRF.
// The sign-in routes sit outside the session group and are limited per client IP.
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mc := deps.Metrics
	if mc == nil {
		mc = metrics.NoopCollector{}
	}

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger, mc))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	passportHandler := NewPassportHandler(deps.PassportService)
	cardHandler := NewCardHandler(deps.PassportService, deps.CardRenderer, deps.Negotiator)
	eventsHandler := NewEventsHandler(deps.PassportService, deps.Changes)
	photoHandler := NewPhotoHandler(deps.PhotoEncoder, deps.PhotoImporter, mc)
	i18nHandler := NewI18nHandler(deps.Negotiator)
	userHandler := NewUserHandler(deps.UserService)

	// --- public routes ---

	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))
	r.Get("/api/i18n", i18nHandler.Translations)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/methods", authHandler.Methods)

		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.LoginMiddleware())
			r.Get("/google/login", authHandler.Login)
			r.Get("/google/callback", authHandler.Callback)
			r.Post("/anonymous", authHandler.Anonymous)
		})

		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- protected routes ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Route("/api/passports", func(r chi.Router) {
			r.Get("/", passportHandler.List)
			r.Post("/", passportHandler.Create)

			// Static segments win over {id} in chi.
			r.Get("/export.csv", passportHandler.Export)
			r.Get("/events", eventsHandler.Stream)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", passportHandler.Get)
				r.Put("/", passportHandler.Update)
				r.Delete("/", passportHandler.Delete)
				r.Get("/card", cardHandler.Card)
			})
		})

		r.Get("/api/dashboard", passportHandler.Dashboard)

		r.Route("/api/photos", func(r chi.Router) {
			r.Post("/", photoHandler.Upload)
			r.Post("/import", photoHandler.Import)
		})

		r.Route("/api/users", func(r chi.Router) {
			r.Delete("/me", userHandler.Withdraw)
		})
	})

	return r
}
