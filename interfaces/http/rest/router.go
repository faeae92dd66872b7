// Package rest assembles the engine's HTTP surface (§6), grounded on the
// teacher's chi + go-chi/cors router with its per-resource handler split,
// narrowed to AMP's six resources: objects, relationships, hybrid query,
// leases, episodic cache, and health.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"amp/application/commands/bus"
	querybus "amp/application/queries/bus"
	"amp/interfaces/http/rest/middleware"
	"amp/pkg/auth"
	apperrors "amp/pkg/errors"
)

// requestsPerMinute bounds how many requests a single client IP may issue
// per minute before the rate limiter starts rejecting with 429.
const requestsPerMinute = 600

// Version is the engine's build version, reported by /health.
const Version = "1.0.0"

// Router builds the chi handler tree from the wired command/query buses.
type Router struct {
	commandBus    *bus.CommandBus
	queryBus      *querybus.QueryBus
	logger        *zap.Logger
	authValidator *auth.JWTValidator
	debug         bool
}

// NewRouter creates a new router instance. authValidator is nil unless
// AUTH_REQUIRED=true, in which case every /v1 route requires a bearer token.
// debug controls whether error responses include the underlying cause and
// stack trace (set from !cfg.IsProduction()).
func NewRouter(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, logger *zap.Logger, authValidator *auth.JWTValidator, debug bool) *Router {
	return &Router{commandBus: commandBus, queryBus: queryBus, logger: logger, authValidator: authValidator, debug: debug}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	errHandler = apperrors.NewErrorHandler(rt.logger, rt.debug)

	router := chi.NewRouter()

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errHandler.HandleStatus(w, r, http.StatusNotFound, "no route matches "+r.URL.Path)
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errHandler.HandleStatus(w, r, http.StatusMethodNotAllowed, r.Method+" is not allowed for "+r.URL.Path)
	})

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(errHandler.Middleware)
	router.Use(middleware.Logger(rt.logger))
	router.Use(middleware.RateLimit(auth.NewIPRateLimiter(requestsPerMinute)))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	objects := &objectsHandler{rt}
	relationships := &relationshipsHandler{rt}
	query := &queryHandler{rt}
	leases := &leaseHandler{rt}
	cache := &cacheHandler{rt}

	router.Route("/v1", func(r chi.Router) {
		if rt.authValidator != nil {
			r.Use(middleware.Authenticate(rt.authValidator, respondError))
		}

		r.Route("/objects", func(r chi.Router) {
			r.Post("/", objects.create)
			r.Post("/batch", objects.createBatch)
			r.Get("/", objects.list)
			r.Get("/{id}", objects.get)
			r.Put("/{id}", objects.update)
			r.Delete("/{id}", objects.delete)
		})

		r.Route("/relationships", func(r chi.Router) {
			r.Post("/", relationships.create)
			r.Get("/", relationships.list)
			r.Delete("/{id}", relationships.delete)
		})

		r.Post("/query", query.query)

		r.Post("/leases:acquire", leases.acquire)
		r.Post("/leases:renew", leases.renew)
		r.Post("/leases:release", leases.release)
		r.Get("/leases/{resourceKey}", leases.status)

		r.Route("/cache", func(r chi.Router) {
			r.Post("/read", cache.read)
			r.Post("/write", cache.write)
			r.Post("/compact", cache.compact)
			r.Post("/gc", cache.gc)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": Version})
}

func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
