// internal/api/middleware.go
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"oikos-server/internal/auth"
	"oikos-server/internal/common/errors"
	"oikos-server/internal/common/logger"
	"oikos-server/internal/common/metrics"

	"github.com/gorilla/mux"
)

type contextKey string

const (
	userIDKey   = contextKey("userID")
	userTypeKey = contextKey("userType")
)

// UserID extracts the authenticated user id from the request context, ""
// when the request is anonymous.
func UserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

// AuthMiddleware requires a valid Bearer token and stashes its claims.
func AuthMiddleware(tokens *auth.TokenIssuer, log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := bearerClaims(r, tokens)
			if err != nil {
				writeError(w, log, err)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			ctx = context.WithValue(ctx, userTypeKey, claims.UserType)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches claims when a Bearer token is present and valid but
// lets anonymous requests through. Wizard sessions can be opened before
// sign-in; the submit decides whether a user is required.
func OptionalAuth(tokens *auth.TokenIssuer) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "" {
				if claims, err := bearerClaims(r, tokens); err == nil {
					ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
					ctx = context.WithValue(ctx, userTypeKey, claims.UserType)
					r = r.WithContext(ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerClaims(r *http.Request, tokens *auth.TokenIssuer) (*auth.Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, errors.NewAuthenticationError("missing Authorization header")
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, errors.NewAuthenticationError("invalid Authorization header format")
	}

	return tokens.Validate(parts[1])
}

// statusRecorder captures the response code for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs every request and records the HTTP request counter.
func RequestLogger(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}

			metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
			log.Info("request", map[string]interface{}{
				"method":   r.Method,
				"route":    route,
				"status":   rec.status,
				"duration": time.Since(start).String(),
			})
		})
	}
}
