// VeriLoc - GNSS Position Authenticity Verification Gateway
// Copyright 2026 VeriLoc Authors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/veriloc/veriloc

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/veriloc/veriloc/internal/config"
	"github.com/veriloc/veriloc/internal/logging"
	"github.com/veriloc/veriloc/internal/metrics"
	"github.com/veriloc/veriloc/internal/models"
)

// requesterKey carries the authenticated feed client through the request
// context.
type requesterKey struct{}

// RequesterFromContext returns the authenticated requester, if any.
func RequesterFromContext(ctx context.Context) (models.Requester, bool) {
	r, ok := ctx.Value(requesterKey{}).(models.Requester)
	return r, ok
}

// correlationMiddleware assigns every request a correlation id, propagated
// through the context and echoed in the response.
func correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Correlation-ID")
		if id == "" {
			id = logging.GenerateCorrelationID()
		}
		ctx := logging.ContextWithCorrelationID(r.Context(), id)
		w.Header().Set("X-Correlation-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// metricsMiddleware records request counts and latency per route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.ObserveHTTPRequest(r.Method, pattern, rec.status, time.Since(start))
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

// feedClaims is the Keycloak-style token shape presented by feed clients.
type feedClaims struct {
	jwt.RegisteredClaims
	Azp               string `json:"azp"`
	PreferredUsername string `json:"preferred_username"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

// requireRole builds a middleware that verifies the bearer token signature
// and requires the given realm role. The authenticated requester is stored
// in the request context.
func requireRole(cfg config.SecurityConfig, role string) func(http.Handler) http.Handler {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
	}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}
	keyFunc := func(*jwt.Token) (any, error) {
		return []byte(cfg.JWTSecret), nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims := &feedClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, keyFunc, parserOpts...)
			if err != nil || !token.Valid {
				logging.Ctx(r.Context()).Warn().Err(err).Msg("rejected bearer token")
				writeError(w, r, http.StatusUnauthorized, "invalid bearer token")
				return
			}

			if !hasRole(claims.RealmAccess.Roles, role) {
				writeError(w, r, http.StatusForbidden, "insufficient role")
				return
			}

			requester := models.Requester{
				Client: claims.Azp,
				User:   claims.PreferredUsername,
			}
			ctx := context.WithValue(r.Context(), requesterKey{}, requester)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	return auth[len(prefix):], true
}

// hasRole reports whether roles contains want.
func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

// Aliased source-app identity: this specific client/user pair predates the
// per-app client split and keeps reporting under its product name.
const (
	aliasClient    = "get_token_client"
	aliasUser      = "goeasy_bq_library"
	aliasSourceApp = "ApesMobility"
)

// sourceApp derives the accounting source-app name for a requester.
func sourceApp(req models.Requester) string {
	if req.Client == aliasClient && req.User == aliasUser {
		return aliasSourceApp
	}
	return req.Client
}
