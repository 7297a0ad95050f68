package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keebreview/keebreview/pkg/apperrors"
	"github.com/keebreview/keebreview/pkg/auth"
	"github.com/keebreview/keebreview/pkg/contextkeys"
	"github.com/keebreview/keebreview/pkg/observability"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubProfiles struct {
	profiles map[string]*auth.Profile
	err      error
}

func (s *stubProfiles) Get(ctx context.Context, id string) (*auth.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	if p, ok := s.profiles[id]; ok {
		return p, nil
	}
	return nil, apperrors.NotFound("profile not found")
}

func (s *stubProfiles) Insert(ctx context.Context, profile *auth.Profile) error { return nil }

func (s *stubProfiles) Update(ctx context.Context, id string, update auth.ProfileUpdate) (*auth.Profile, error) {
	return nil, apperrors.NotFound("profile not found")
}

func guardFixture(t *testing.T, profiles *stubProfiles) (*AuthMiddleware, *auth.LocalVerifier) {
	t.Helper()
	verifier, err := auth.NewLocalVerifier(testSecret)
	require.NoError(t, err)
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewAuthMiddleware(verifier, profiles, logger, observability.NewMetrics()), verifier
}

func TestAuthMiddleware_AttachesPrincipalAndToken(t *testing.T) {
	profiles := &stubProfiles{profiles: map[string]*auth.Profile{
		"user-1": {ID: "user-1", Username: "keebfan", Email: "a@x.com"},
	}}
	guard, verifier := guardFixture(t, profiles)
	token, err := verifier.IssueLocal("user-1", "a@x.com", time.Hour)
	require.NoError(t, err)

	var seenPrincipal *auth.Principal
	var seenToken string
	handler := guard.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenPrincipal = GetPrincipal(r)
		seenToken = contextkeys.RawToken(r.Context())
	}))

	req := httptest.NewRequest("GET", "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seenPrincipal)
	assert.Equal(t, "user-1", seenPrincipal.ID)
	assert.Equal(t, "keebfan", seenPrincipal.Username)
	assert.Equal(t, token, seenToken)
}

func TestAuthMiddleware_DegradesWithoutProfile(t *testing.T) {
	guard, verifier := guardFixture(t, &stubProfiles{profiles: map[string]*auth.Profile{}})
	token, err := verifier.IssueLocal("user-1", "lonely@x.com", time.Hour)
	require.NoError(t, err)

	var seenPrincipal *auth.Principal
	handler := guard.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenPrincipal = GetPrincipal(r)
	}))

	req := httptest.NewRequest("GET", "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seenPrincipal)
	assert.Equal(t, "lonely", seenPrincipal.Username)
}

func TestAuthMiddleware_DegradesOnProfileStoreError(t *testing.T) {
	guard, verifier := guardFixture(t, &stubProfiles{err: assert.AnError})
	token, err := verifier.IssueLocal("user-1", "a@x.com", time.Hour)
	require.NoError(t, err)

	called := false
	handler := guard.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("GET", "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestAuthMiddleware_RejectsBeforeHandler(t *testing.T) {
	guard, verifier := guardFixture(t, &stubProfiles{profiles: map[string]*auth.Profile{}})
	expired, err := verifier.IssueLocal("user-1", "a@x.com", -time.Minute)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"empty token", "Bearer "},
		{"no space", "Bearertoken"},
		{"garbage token", "Bearer garbage"},
		{"expired token", "Bearer " + expired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			handler := guard.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest("GET", "/guarded", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, called)
		})
	}
}
