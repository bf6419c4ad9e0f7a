package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/recipeapp/apiserver/config"
	"github.com/recipeapp/apiserver/internal/handlers"
	"github.com/recipeapp/apiserver/internal/metrics"
	"github.com/recipeapp/apiserver/internal/services"
)

// Dependencies are the collaborators the router serves.
type Dependencies struct {
	Config      config.Config
	DB          handlers.Pinger
	Users       *services.UserService
	Tags        *services.AttributeService
	Ingredients *services.AttributeService
	Recipes     *services.RecipeService

	// Media serves stored objects under /media/ when set.
	Media handlers.ObjectReader
}

// NewRouter builds the HTTP routes and middleware stack.
func NewRouter(deps Dependencies) *chi.Mux {
	cfg := deps.Config
	timeout := cfg.HTTP.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	router := chi.NewRouter()
	router.NotFound(handlers.NotFound)
	router.MethodNotAllowed(handlers.MethodNotAllowed)
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		handlers.RequestLogger,
		middleware.Recoverer,
		metrics.Middleware,
		middleware.StripSlashes,
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
			AllowedMethods: []string{
				http.MethodGet,
				http.MethodPost,
				http.MethodPut,
				http.MethodPatch,
				http.MethodDelete,
				http.MethodOptions,
			},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}),
		middleware.Timeout(timeout),
	)

	router.Get("/healthz", handlers.Healthz)
	router.Get("/readyz", handlers.Readyz(deps.DB))
	router.Handle("/metrics", promhttp.Handler())

	userHandler := handlers.NewUserHandler(deps.Users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	router.Route("/user", func(r chi.Router) {
		handlers.UserRouter(r, userHandler, tokenLimiter(cfg.HTTP.TokenRateLimitPerMin))
	})

	router.Route("/recipe", func(r chi.Router) {
		r.Use(handlers.RequireAuth(cfg.Auth.JWTSecret))
		r.Route("/tags", func(r chi.Router) {
			handlers.AttributeRouter(r, deps.Tags)
		})
		r.Route("/ingredients", func(r chi.Router) {
			handlers.AttributeRouter(r, deps.Ingredients)
		})
		r.Route("/recipes", func(r chi.Router) {
			handlers.RecipeRouter(r, handlers.NewRecipeHandler(deps.Recipes, 0))
		})
	})

	if deps.Media != nil {
		router.Route("/media", func(r chi.Router) {
			handlers.MediaRouter(r, deps.Media)
		})
	}

	return router
}

// tokenLimiter limits token requests per client IP. A non-positive limit
// disables it.
func tokenLimiter(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return nil
	}
	return httprate.Limit(
		perMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(handlers.TooManyRequests),
	)
}
