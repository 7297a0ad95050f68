package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keebreview/keebreview/pkg/apperrors"
	"github.com/keebreview/keebreview/pkg/observability"
)

type stubProfileStore struct {
	profiles   map[string]*Profile
	insertErr  error
	inserted   []*Profile
	updateSeen *ProfileUpdate
}

func newStubProfileStore() *stubProfileStore {
	return &stubProfileStore{profiles: map[string]*Profile{}}
}

func (s *stubProfileStore) Get(ctx context.Context, id string) (*Profile, error) {
	if p, ok := s.profiles[id]; ok {
		return p, nil
	}
	return nil, apperrors.NotFound("profile not found")
}

func (s *stubProfileStore) Insert(ctx context.Context, profile *Profile) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, profile)
	s.profiles[profile.ID] = profile
	return nil
}

func (s *stubProfileStore) Update(ctx context.Context, id string, update ProfileUpdate) (*Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, apperrors.NotFound("profile not found")
	}
	s.updateSeen = &update
	if update.Username != nil {
		p.Username = *update.Username
	}
	if update.Email != nil {
		p.Email = *update.Email
	}
	p.UpdatedAt = time.Now().UTC()
	return p, nil
}

func serviceFixture(t *testing.T, providerURL string) (*Service, *stubProfileStore) {
	t.Helper()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	verifier, err := NewLocalVerifier(testSecret)
	require.NoError(t, err)
	profiles := newStubProfileStore()
	provider := NewProviderClient(providerURL, "anon-key")
	return NewService(provider, verifier, profiles, logger), profiles
}

func signupProvider(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/signup":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"user": map[string]interface{}{"id": "identity-1", "email": "a@x.com"},
			})
		case "/auth/v1/token":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "token-1",
				"expires_in":   3600,
				"user":         map[string]interface{}{"id": "identity-1", "email": "a@x.com"},
			})
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"msg": "session not found"})
		default:
			w.Write([]byte("{}"))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestService_Register_InsertsProfile(t *testing.T) {
	provider := signupProvider(t)
	svc, profiles := serviceFixture(t, provider.URL)

	result, err := svc.Register(context.Background(), "cherry_fan", "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "identity-1", result.Identity.ID)

	require.Len(t, profiles.inserted, 1)
	assert.Equal(t, "identity-1", profiles.inserted[0].ID)
	assert.Equal(t, "cherry_fan", profiles.inserted[0].Username)
}

func TestService_Register_ProfileInsertFailureIsNonFatal(t *testing.T) {
	provider := signupProvider(t)
	svc, profiles := serviceFixture(t, provider.URL)
	profiles.insertErr = assert.AnError

	result, err := svc.Register(context.Background(), "cherry_fan", "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "identity-1", result.Identity.ID)
}

func TestService_Login(t *testing.T) {
	provider := signupProvider(t)
	svc, _ := serviceFixture(t, provider.URL)

	result, err := svc.Login(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "identity-1", result.Identity.ID)
	assert.Equal(t, "token-1", result.Session.AccessToken)
}

func TestService_Logout_SurfacesProviderFailure(t *testing.T) {
	provider := signupProvider(t)
	svc, _ := serviceFixture(t, provider.URL)

	err := svc.Logout(context.Background(), "stale-token")
	assert.Error(t, err)
}

func TestService_VerifyCallback_WithProfile(t *testing.T) {
	svc, profiles := serviceFixture(t, "")
	profiles.profiles["user-1"] = &Profile{ID: "user-1", Username: "keebfan", Email: "a@x.com"}

	verifier, err := NewLocalVerifier(testSecret)
	require.NoError(t, err)
	token, err := verifier.IssueLocal("user-1", "a@x.com", time.Hour)
	require.NoError(t, err)

	result, err := svc.VerifyCallback(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "email verified", result.Message)
	require.NotNil(t, result.Profile)
	assert.Equal(t, "keebfan", result.Profile.Username)
}

func TestService_VerifyCallback_ProfilePending(t *testing.T) {
	svc, _ := serviceFixture(t, "")

	verifier, err := NewLocalVerifier(testSecret)
	require.NoError(t, err)
	token, err := verifier.IssueLocal("user-1", "a@x.com", time.Hour)
	require.NoError(t, err)

	result, err := svc.VerifyCallback(context.Background(), token)
	require.NoError(t, err)
	assert.Nil(t, result.Profile)
	assert.Equal(t, "email verified; profile pending", result.Message)
}

func TestService_VerifyCallback_InvalidToken(t *testing.T) {
	svc, _ := serviceFixture(t, "")

	_, err := svc.VerifyCallback(context.Background(), "garbage")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnauthenticated, apperrors.CodeOf(err))
}

func TestService_CurrentUser(t *testing.T) {
	svc, profiles := serviceFixture(t, "")
	profiles.profiles["user-1"] = &Profile{ID: "user-1", Username: "keebfan", Email: "a@x.com"}

	result, err := svc.CurrentUser(context.Background(), Principal{ID: "user-1", Username: "keebfan"})
	require.NoError(t, err)
	require.NotNil(t, result.Profile)
	assert.Equal(t, "keebfan", result.Profile.Username)
}

func TestService_CurrentUser_NoProfile(t *testing.T) {
	svc, _ := serviceFixture(t, "")

	result, err := svc.CurrentUser(context.Background(), Principal{ID: "orphan", Username: "lonely"})
	require.NoError(t, err)
	assert.Nil(t, result.Profile)
	assert.Equal(t, "lonely", result.Principal.Username)
}

func TestService_UpdateProfile(t *testing.T) {
	svc, profiles := serviceFixture(t, "")
	profiles.profiles["user-1"] = &Profile{ID: "user-1", Username: "cherry_fan", Email: "a@x.com"}

	username := "cherry_mx"
	profile, err := svc.UpdateProfile(context.Background(), "user-1", ProfileUpdate{Username: &username})
	require.NoError(t, err)
	assert.Equal(t, "cherry_mx", profile.Username)
}

func TestService_UpdateProfile_EmptyUpdate(t *testing.T) {
	svc, _ := serviceFixture(t, "")

	_, err := svc.UpdateProfile(context.Background(), "user-1", ProfileUpdate{})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))
}
