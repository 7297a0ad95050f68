package middleware

import (
	"net/http"
	"strings"

	"github.com/keebreview/keebreview/pkg/apperrors"
	"github.com/keebreview/keebreview/pkg/auth"
	"github.com/keebreview/keebreview/pkg/contextkeys"
	"github.com/keebreview/keebreview/pkg/httputil"
	"github.com/keebreview/keebreview/pkg/observability"
)

// AuthMiddleware guards routes behind bearer-token authentication. It
// resolves the token to an identity, reconciles the identity with its local
// profile, and attaches the resulting principal (plus the raw token) to the
// request context. Requests without a valid token are rejected before any
// handler runs.
type AuthMiddleware struct {
	verifier auth.Verifier
	profiles auth.ProfileStore
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewAuthMiddleware creates the auth guard. metrics may be nil.
func NewAuthMiddleware(verifier auth.Verifier, profiles auth.ProfileStore, logger *observability.Logger, metrics *observability.Metrics) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		profiles: profiles,
		logger:   logger,
		metrics:  metrics,
	}
}

// Handler wraps next with the guard.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			m.reject(w, "missing or malformed authorization header")
			return
		}

		identity, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			m.logger.WithError(err).Debug("token verification failed")
			m.reject(w, "invalid or expired token")
			return
		}

		// Exactly one provider round trip has happened; profile lookup is
		// local. A missing profile degrades to a synthesized principal and
		// must not block the request.
		profile, err := m.profiles.Get(r.Context(), identity.ID)
		if err != nil {
			if !apperrors.Is(err, apperrors.CodeNotFound) {
				m.logger.WithError(err).WithField("identity_id", identity.ID).
					Error("profile lookup failed; using degraded principal")
			} else {
				m.logger.WithField("identity_id", identity.ID).
					Warn("authenticated identity has no profile")
			}
			profile = nil
		}

		principal := auth.NewPrincipal(identity, profile)

		if m.metrics != nil {
			m.metrics.AuthRequestsTotal.WithLabelValues("allowed").Inc()
		}

		ctx := contextkeys.WithPrincipal(r.Context(), &principal)
		ctx = contextkeys.WithRawToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Func adapts the guard for use with per-route handler wrapping.
func (m *AuthMiddleware) Func(next http.HandlerFunc) http.HandlerFunc {
	return m.Handler(next).ServeHTTP
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, message string) {
	if m.metrics != nil {
		m.metrics.AuthRequestsTotal.WithLabelValues("rejected").Inc()
	}
	httputil.WriteUnauthorized(w, message)
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// Anything else (missing header, wrong scheme, empty token) is malformed.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetPrincipal returns the principal the guard attached to the request, or
// nil for unguarded routes.
func GetPrincipal(r *http.Request) *auth.Principal {
	principal, _ := contextkeys.Principal(r.Context()).(*auth.Principal)
	return principal
}
