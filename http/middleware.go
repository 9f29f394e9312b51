package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sagarc03/itemgate"
)

// TokenVerifier verifies a bearer token and returns the claims it carries.
type TokenVerifier interface {
	Authenticate(token string) (itemgate.Claims, error)
}

type claimsKey struct{}

// ClaimsFromContext returns the claims attached by AuthMiddleware.
func ClaimsFromContext(ctx context.Context) (itemgate.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(itemgate.Claims)
	return claims, ok
}

// AuthMiddleware rejects requests that do not carry a valid bearer token.
//
// The token is the second whitespace-separated segment of the Authorization
// header. A missing header or token answers 401; a token that fails
// verification answers 403.
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				WriteError(w, KindAuthentication, "Authorization header missing")
				return
			}

			parts := strings.Fields(header)
			if len(parts) < 2 {
				WriteError(w, KindAuthentication, "Token missing")
				return
			}

			claims, err := verifier.Authenticate(parts[1])
			if err != nil {
				slog.Info("token rejected",
					"request_id", middleware.GetReqID(r.Context()),
					"error", err,
				)
				WriteError(w, KindForbidden, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestTimeout cancels the request context after timeout. When the
// deadline passes and the handler has not written a response, it answers 504
// with a JSON error body.
func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			if ww.Status() == 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				WriteError(ww, KindTimeout, "")
			}
		})
	}
}

// RequestLogger logs one line per request once the response is written.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		slog.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
