package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"movie-catalog/internal/metrics"
	"movie-catalog/pkg/auth"
)

// ContextKey is the type for request context keys set by the middleware.
type ContextKey string

// ClaimsKey holds the authenticated caller's *auth.Claims.
const ClaimsKey ContextKey = "claims"

// Middleware authenticates requests and enforces the authorization
// policies of the catalog endpoints.
type Middleware struct {
	tokens auth.TokenManager
	logger *slog.Logger
}

// NewMiddleware creates a Middleware.
func NewMiddleware(tokens auth.TokenManager, logger *slog.Logger) *Middleware {
	return &Middleware{tokens: tokens, logger: logger}
}

// claimsFromContext returns the caller's identity claims, if any.
func claimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok
}

// userIDFromContext returns the caller's user id, or "" when anonymous.
func userIDFromContext(ctx context.Context) string {
	if claims, ok := claimsFromContext(ctx); ok {
		return claims.UserID
	}
	return ""
}

func (m *Middleware) bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// Authenticate rejects requests that do not carry a valid bearer token and
// attaches the token's claims to the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := m.bearerToken(r)
		if !ok {
			m.logger.WarnContext(r.Context(), "Missing or malformed Authorization header")
			respondError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}
		claims, err := m.tokens.Validate(tokenString)
		if err != nil {
			m.logger.WarnContext(r.Context(), "Invalid or expired token", slog.String("error", err.Error()))
			respondError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuthenticate attaches identity claims when a valid token is
// present but lets anonymous requests through. Read endpoints use it to
// personalize results without requiring login.
func (m *Middleware) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokenString, ok := m.bearerToken(r); ok {
			if claims, err := m.tokens.Validate(tokenString); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), ClaimsKey, claims))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTrustedMember allows trusted members and admins. It must run
// after Authenticate.
func (m *Middleware) RequireTrustedMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok || (!claims.IsTrustedMember && !claims.IsAdmin) {
			respondError(w, http.StatusForbidden, "Trusted member access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin allows admins only. It must run after Authenticate.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok || !claims.IsAdmin {
			respondError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for the metrics middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// MetricsMiddleware counts every handled request by method, route template
// and status.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if template, err := route.GetPathTemplate(); err == nil {
				path = template
			}
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(recorder.status)).Inc()
	})
}
