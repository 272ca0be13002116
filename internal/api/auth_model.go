package api

import "github.com/golang-jwt/jwt/v5"

type contextKey string

const (
	RequestIDKey contextKey = "requestID"
	AdminIDKey   contextKey = "adminID"
)

// HTTP header and cookie constants
const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
	RequestIDHeader     = "X-Request-ID"
	AuthCookieName      = "admin_token"
)

// HTTP path constants
const (
	HealthPath  = "/health"
	MetricsPath = "/metrics"
	AdminPrefix = "/adminPage"
)

// AdminRole is the role claim required on admin tokens
const AdminRole = "admin"

// Error message constants
const (
	ErrAuthRequired      = "Authorization required"
	ErrInvalidAuthHeader = "Invalid authorization header format"
	ErrInvalidToken      = "Invalid token"
	ErrForbidden         = "Admin role required"
)

// Log message constants
const (
	LogJWTValidationFailed = "JWT token validation failed"
)

// AdminClaims are the claims carried by an admin session token
type AdminClaims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
