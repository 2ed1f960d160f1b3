package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"canopy/internal/httputil"
)

// Auth verifies bearer tokens against a JWKS endpoint. When jwksURL
// is empty auth is disabled and every request passes through
// (single-user local mode).
func Auth(ctx context.Context, jwksURL string, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	if jwksURL == "" {
		logger.Warn("JWKS_URL not set - authentication disabled")
		return func(next http.Handler) http.Handler { return next }, nil
	}

	// keyfunc caches the JWKS and refreshes it based on HTTP cache
	// headers.
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("create JWKS client: %w", err)
	}
	logger.Info("auth enabled", "jwks_url", jwksURL)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Health stays reachable for probes.
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			token, err := parseBearer(r, jwks)
			if err != nil {
				logger.Debug("token rejected", "error", err)
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or missing token")
				return
			}

			subject, _ := token.Claims.GetSubject()
			next.ServeHTTP(w, r.WithContext(withSubject(r.Context(), subject)))
		})
	}, nil
}

func parseBearer(r *http.Request, jwks keyfunc.Keyfunc) (*jwt.Token, error) {
	header := r.Header.Get("Authorization")
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		return nil, fmt.Errorf("missing bearer token")
	}

	token, err := jwt.Parse(raw, jwks.Keyfunc)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token invalid")
	}

	// Reject algorithm confusion; only asymmetric signatures are
	// acceptable with a JWKS.
	switch token.Method.Alg() {
	case "RS256", "ES256":
	default:
		return nil, fmt.Errorf("unexpected algorithm %s", token.Method.Alg())
	}

	return token, nil
}

type contextKey string

const subjectKey contextKey = "auth.subject"

func withSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// Subject returns the authenticated subject, or "" when auth is
// disabled.
func Subject(ctx context.Context) string {
	subject, _ := ctx.Value(subjectKey).(string)
	return subject
}
