// Package contextkeys provides centralized context key definitions.
//
// All context keys used across the application are defined here. This prevents
// typos, documents who sets and who reads each value, and keeps key usage
// discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions.
type Key string

const (
	// PrincipalKey contains the resolved *auth.Principal for the request.
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Required by: all guarded handlers for ownership checks
	PrincipalKey Key = "principal"

	// RawTokenKey contains the bearer token string the request arrived with.
	// Set by: middleware.AuthMiddleware
	// Used by: review creation (caller-scoped inserts), logout
	RawTokenKey Key = "raw_token"

	// RequestIDKey contains the request ID string.
	// Set by: HTTP middleware
	// Used by: structured logging
	RequestIDKey Key = "request_id"
)

// WithPrincipal attaches the resolved principal to the context.
func WithPrincipal(ctx context.Context, principal interface{}) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// Principal returns the raw principal value, or nil when unauthenticated.
func Principal(ctx context.Context) interface{} {
	return ctx.Value(PrincipalKey)
}

// WithRawToken attaches the bearer token to the context.
func WithRawToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, RawTokenKey, token)
}

// RawToken returns the bearer token for the request, or "" when absent.
func RawToken(ctx context.Context) string {
	token, _ := ctx.Value(RawTokenKey).(string)
	return token
}

// WithRequestID attaches the request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestID returns the request ID, or "" when absent.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
