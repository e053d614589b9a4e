package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"weddingrsvp/internal/models"
	"weddingrsvp/internal/security"
	"weddingrsvp/internal/service"
)

type contextKey string

// GuestContextKey carries the authenticated guest through the request
// context.
const GuestContextKey contextKey = "guest"

// Middleware bundles request guards around the handler chain.
type Middleware struct {
	authService *service.AuthService
	limiter     *security.Limiter
	adminAPIKey string
}

func NewMiddleware(authService *service.AuthService, limiter *security.Limiter, adminAPIKey string) *Middleware {
	return &Middleware{
		authService: authService,
		limiter:     limiter,
		adminAPIKey: adminAPIKey,
	}
}

// RateLimit throttles an operation by client IP, independently of the
// per-identifier throttling inside the services. The limited response is
// the same generic body as any other auth failure.
func (m *Middleware) RateLimit(op string, retryAfter time.Duration, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.limiter.Allow(op, "ip:"+security.GetClientIP(r)) {
			log.Warn().
				Str("operation", op).
				Str("remote", security.GetClientIP(r)).
				Msg("rate limit exceeded for origin")
			respondRateLimited(w, int(retryAfter.Seconds()))
			return
		}
		next(w, r)
	}
}

// RequireGuest resolves the bearer token to a guest and puts the guest in
// the request context. Missing, malformed, and expired tokens all get the
// same 401.
func (m *Middleware) RequireGuest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bearer, ok := bearerToken(r)
		if !ok {
			respondAuthFailure(w)
			return
		}

		guest, err := m.authService.Authenticate(r.Context(), bearer)
		if err != nil {
			respondAuthFailure(w)
			return
		}

		ctx := context.WithValue(r.Context(), GuestContextKey, guest)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin guards admin endpoints with the configured API key.
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !security.ValidAdminKey(r.Header.Get("X-Admin-Key"), m.adminAPIKey) {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// Logging logs every request with method, path, status and duration.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Str("remote", security.GetClientIP(r)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	tok := strings.TrimSpace(auth[len(prefix):])
	return tok, tok != ""
}

// GuestFromContext retrieves the authenticated guest, or nil outside
// RequireGuest.
func GuestFromContext(ctx context.Context) *models.Guest {
	guest, ok := ctx.Value(GuestContextKey).(*models.Guest)
	if !ok {
		return nil
	}
	return guest
}
