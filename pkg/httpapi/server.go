// Package httpapi is RCRT's external interface: a chi router implementing
// every operation in the breadcrumb store, search, and event-stream
// surface, wired through the admission middleware chain (deadline, body
// size, rate limit, auth) and rendering every failure through pkg/apperr so
// no handler hand-rolls a status code.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rcrtd/rcrt/pkg/auth"
	"github.com/rcrtd/rcrt/pkg/config"
	"github.com/rcrtd/rcrt/pkg/eventbus"
	"github.com/rcrtd/rcrt/pkg/observability"
	"github.com/rcrtd/rcrt/pkg/ratelimit"
	"github.com/rcrtd/rcrt/pkg/store"
)

// Deps are the components the HTTP surface is wired to. Store, Bus and Cfg
// are required. Validator is used only when Cfg.Auth is enabled, and must
// be set then. RateLimiter and Obs may be nil (no rate limiting, no
// metrics), matching the rest of the codebase's nil-safe observability
// convention.
type Deps struct {
	Store       *store.Store
	Bus         *eventbus.Bus
	Validator   *auth.Validator
	RateLimiter *ratelimit.Limiter
	Obs         *observability.Manager
	Cfg         config.ServerConfig

	// StartedAt is recorded once at process start.
	StartedAt time.Time

	Log *slog.Logger
}

// NewRouter builds the full chi.Mux for deps.
func NewRouter(deps Deps) http.Handler {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(recoverer(deps.Log))
	r.Use(metricsMiddleware(deps.Obs))
	r.Use(bodyLimit(deps.Cfg.MaxBodyBytes))
	r.Use(deadline(deps.Cfg.RequestDeadline))
	if deps.Cfg.CORS != nil {
		r.Use(cors(*deps.Cfg.CORS))
	}

	r.Get("/healthz", healthz(deps))
	r.Get("/readyz", readyz(deps))
	if deps.Obs != nil {
		r.Handle(deps.Obs.MetricsEndpoint(), deps.Obs.MetricsHandler())
	}

	if deps.Cfg.Auth != nil && deps.Cfg.Auth.DevTokenEndpoint {
		r.Post("/auth/token", devToken(deps.Cfg.Auth))
	}

	r.Get("/schemas", listSchemas)
	r.Get("/schemas/{resource}", getSchema)

	r.Group(func(r chi.Router) {
		r.Use(authenticate(deps.Validator, deps.Cfg.Auth))
		r.Use(rateLimit(deps.RateLimiter))

		r.Route("/breadcrumbs", func(r chi.Router) {
			r.With(requireRole(auth.RoleEmitter)).Post("/", createBreadcrumb(deps))
			r.With(requireRole(auth.RoleSubscriber)).Get("/", listBreadcrumbs(deps))
			r.With(requireRole(auth.RoleSubscriber)).Get("/search", searchBreadcrumbs(deps))

			r.Route("/{id}", func(r chi.Router) {
				r.With(requireRole(auth.RoleSubscriber)).Get("/", getBreadcrumbView(deps))
				r.With(requireRole(auth.RoleSubscriber)).Get("/full", getBreadcrumbRaw(deps))
				r.With(requireRole(auth.RoleCurator)).Patch("/", replaceBreadcrumb(deps))
				r.With(requireRole(auth.RoleCurator)).Delete("/", deleteBreadcrumb(deps))
				r.With(requireRole(auth.RoleCurator)).Post("/tags/add", addTags(deps))
				r.With(requireRole(auth.RoleCurator)).Post("/tags/remove", removeTags(deps))
				r.With(requireRole(auth.RoleCurator)).Post("/context/merge", mergeContext(deps))
				r.With(requireRole(auth.RoleCurator)).Post("/approve", approveBreadcrumb(deps))
				r.With(requireRole(auth.RoleCurator)).Post("/reject", rejectBreadcrumb(deps))
			})
		})

		r.With(requireRole(auth.RoleSubscriber)).Get("/events/stream", streamEvents(deps))
	})

	return r
}

func healthz(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func readyz(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Store == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if err := deps.Store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}
