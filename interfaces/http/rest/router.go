package rest

import (
	"net/http"

	"photopedia-backend/application/ports"
	"photopedia-backend/domain/core/entities"
	"photopedia-backend/infrastructure/config"
	"photopedia-backend/infrastructure/storage"
	"photopedia-backend/interfaces/http/rest/handlers"
	"photopedia-backend/interfaces/http/rest/middleware"
	"photopedia-backend/pkg/auth"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg    *config.Config
	guard  *auth.Guard
	users  ports.UserRepository
	events ports.EventRepository
	media  ports.MediaRepository
	store  *storage.MediaStorage
	logger *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	guard *auth.Guard,
	users ports.UserRepository,
	events ports.EventRepository,
	media ports.MediaRepository,
	store *storage.MediaStorage,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:    cfg,
		guard:  guard,
		users:  users,
		events: events,
		media:  media,
		store:  store,
		logger: logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.photopedia.io"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Gallery-Password"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	authHandler := handlers.NewAuthHandler(rt.guard, rt.users, rt.logger)
	userHandler := handlers.NewUserHandler(rt.users, rt.logger)
	eventHandler := handlers.NewEventHandler(rt.events, rt.users, rt.logger)
	galleryHandler := handlers.NewGalleryHandler(rt.events, rt.media, rt.logger)
	mediaHandler := handlers.NewMediaHandler(rt.media, rt.events, rt.users, rt.store, rt.logger)

	publicLimiter := auth.NewIPRateLimiter(rt.cfg.PublicRateLimit)

	router.Route("/api/v1", func(r chi.Router) {
		// Registration and login run before a principal exists.
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Public gallery surface: guests welcome, but rate limited.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(publicLimiter))
			r.Use(middleware.OptionalAuthenticate(rt.guard))
			r.Get("/gallery/{code}", galleryHandler.Get)
			r.Get("/gallery/{code}/media", galleryHandler.ListMedia)
			r.Get("/gallery/{code}/people/{personID}", galleryHandler.SearchByPerson)
		})

		// Everything else requires an authenticated principal.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(rt.guard))

			r.Get("/auth/me", authHandler.Me)

			r.Route("/users", func(r chi.Router) {
				r.Patch("/me", userHandler.UpdateProfile)
				r.Put("/me/usage", userHandler.UpdateUsage)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRoles(entities.RoleAdmin))
					r.Get("/", userHandler.List)
					r.Put("/{userID}/subscription", userHandler.UpdateSubscription)
					r.Delete("/{userID}", userHandler.Deactivate)
				})
			})

			r.Route("/events", func(r chi.Router) {
				r.Get("/", eventHandler.List)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRoles(entities.RolePhotographer, entities.RoleAdmin))
					r.Post("/", eventHandler.Create)
				})

				r.Route("/{eventID}", func(r chi.Router) {
					r.Get("/", eventHandler.Get)
					r.Patch("/", eventHandler.Update)
					r.Post("/publish", eventHandler.Publish)
					r.Delete("/", eventHandler.Delete)

					r.Route("/media", func(r chi.Router) {
						r.Post("/upload-intent", mediaHandler.UploadIntent)
						r.Post("/", mediaHandler.Record)
						r.Get("/", mediaHandler.List)
						r.Patch("/{mediaID}", mediaHandler.Update)
						r.Get("/{mediaID}/download", mediaHandler.Download)
						r.Post("/{mediaID}/favorite", mediaHandler.Favorite)
						r.Delete("/{mediaID}", mediaHandler.Delete)
					})
				})
			})

			r.Get("/media", mediaHandler.ListMine)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
