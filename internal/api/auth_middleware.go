package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// NewAuthMiddleware requires an HS256 token signed with secret and carrying
// role=admin on every route except health and metrics. The token is read
// from the Authorization header, falling back to the admin_token cookie.
func NewAuthMiddleware(secret []byte) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == HealthPath || r.URL.Path == MetricsPath {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, err := tokenFromRequest(r)
			if err != nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("Admin token missing")
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			claims, err := validateJWTToken(tokenString, secret)
			if err != nil {
				log.Error().Err(err).Str("path", r.URL.Path).Msg(LogJWTValidationFailed)
				http.Error(w, ErrInvalidToken, http.StatusUnauthorized)
				return
			}

			if claims.Role != AdminRole {
				log.Warn().Str("sub", claims.Subject).Str("role", claims.Role).Str("path", r.URL.Path).Msg("Token lacks admin role")
				http.Error(w, ErrForbidden, http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), AdminIDKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) (string, error) {
	if authHeader := r.Header.Get(AuthorizationHeader); authHeader != "" {
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			return "", errors.New(ErrInvalidAuthHeader)
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
		if token == "" {
			return "", errors.New(ErrInvalidAuthHeader)
		}
		return token, nil
	}

	if cookie, err := r.Cookie(AuthCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return "", errors.New(ErrAuthRequired)
}

// validateJWTToken verifies the signature and time claims of tokenString
func validateJWTToken(tokenString string, secret []byte) (*AdminClaims, error) {
	claims := &AdminClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuedAt())
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}

// AdminFromContext returns the subject of the admin token, if any
func AdminFromContext(ctx context.Context) string {
	id, _ := ctx.Value(AdminIDKey).(string)
	return id
}
