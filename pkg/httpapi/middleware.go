package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rcrtd/rcrt/pkg/auth"
	"github.com/rcrtd/rcrt/pkg/breadcrumb"
	"github.com/rcrtd/rcrt/pkg/config"
	"github.com/rcrtd/rcrt/pkg/observability"
	"github.com/rcrtd/rcrt/pkg/ratelimit"
)

// responseWriter wraps http.ResponseWriter to capture the status and size
// metrics need, while still exposing Flush for the SSE stream handler.
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// metricsMiddleware records every request's method, matched chi route
// pattern, status, duration, and response size. A nil Manager degrades to
// a no-op via Metrics()'s nil-safe methods.
func metricsMiddleware(obs *observability.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w}
			next.ServeHTTP(wrapped, r)

			pattern := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				pattern = rctx.RoutePattern()
			}
			status := wrapped.status
			if status == 0 {
				status = http.StatusOK
			}
			obs.Metrics().RecordHTTPRequest(r.Context(), r.Method, pattern, status, time.Since(start), wrapped.size)
		})
	}
}

// recoverer turns a panicking handler into a rendered KindInternal error
// instead of crashing the server.
func recoverer(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("httpapi: panic recovered", "panic", rec, "path", r.URL.Path)
					writeError(w, breadcrumb.NewError(breadcrumb.KindInternal, "internal error"), false)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// bodyLimit caps request bodies at max bytes rather than letting an
// oversized body exhaust memory. A request whose declared Content-Length
// exceeds max fails admission with PayloadSize; a body with no declared
// length is cut off at max bytes, and the handler then reports it as a
// malformed body.
func bodyLimit(max int64) func(http.Handler) http.Handler {
	if max <= 0 {
		max = 1 << 20
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > max {
				writeError(w, breadcrumb.NewError(breadcrumb.KindPayloadSize, "request body too large"), false)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, max)
			next.ServeHTTP(w, r)
		})
	}
}

// deadline enforces the configured per-request deadline on every handler
// except the SSE stream, which is long-lived by design.
func deadline(d time.Duration) func(http.Handler) http.Handler {
	if d <= 0 {
		d = 30 * time.Second
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/events/stream" {
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// cors applies the configured cross-origin policy.
func cors(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origin := "*"
	if len(cfg.AllowedOrigins) > 0 {
		origin = cfg.AllowedOrigins[0]
	}
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", methods)
			w.Header().Set("Access-Control-Allow-Headers", headers)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authenticate validates the bearer token and attaches its Claims to the
// request context. When cfg is nil or disabled, every request is treated
// as a locally-trusted curator — matching AuthConfig's documented
// "useful for local development only" escape hatch.
func authenticate(v *auth.Validator, cfg *config.AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.IsEnabled() {
				ctx := auth.WithClaims(r.Context(), auth.Claims{
					TenantID: "default",
					AgentID:  "dev",
					Roles:    []auth.Role{auth.RoleCurator},
				})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			for _, excluded := range cfg.ExcludedPaths {
				if r.URL.Path == excluded {
					next.ServeHTTP(w, r)
					return
				}
			}

			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				writeError(w, breadcrumb.ErrUnauthorized, false)
				return
			}

			claims, err := v.ValidateToken(r.Context(), strings.TrimPrefix(header, prefix))
			if err != nil {
				writeError(w, breadcrumb.NewError(breadcrumb.KindAuth, "invalid or expired token"), false)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

// requireRole rejects the request with 403 unless the caller's claims
// satisfy min. Must run after authenticate.
func requireRole(min auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, breadcrumb.ErrUnauthorized, false)
				return
			}
			if !claims.HasRole(min) {
				writeError(w, breadcrumb.ErrForbidden, true)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimit enforces the per-tenant admission bucket. A nil limiter is a
// no-op.
func rateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil {
				tenant := "anonymous"
				if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
					tenant = claims.TenantID
				}
				if !limiter.Allow(tenant) {
					writeError(w, breadcrumb.NewError(breadcrumb.KindRateLimit, "rate limit exceeded"), false)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
