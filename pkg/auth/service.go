package auth

import (
	"context"
	"time"

	"github.com/keebreview/keebreview/pkg/apperrors"
	"github.com/keebreview/keebreview/pkg/observability"
)

// Service orchestrates registration, login, logout, profile updates, and the
// email-verification callback. Credential handling stays in the provider;
// this service only reconciles identities with local profiles.
type Service struct {
	provider *ProviderClient
	verifier Verifier
	profiles ProfileStore
	logger   *observability.Logger
}

// NewService creates the auth service.
func NewService(provider *ProviderClient, verifier Verifier, profiles ProfileStore, logger *observability.Logger) *Service {
	return &Service{
		provider: provider,
		verifier: verifier,
		profiles: profiles,
		logger:   logger,
	}
}

// RegisterResult is returned by Register. Session is nil while the provider
// awaits email confirmation.
type RegisterResult struct {
	Identity *Identity `json:"user"`
	Session  *Session  `json:"session"`
}

// Register creates the credential with the provider and then inserts the
// local profile explicitly. Profile insert failure is logged, not fatal: the
// guard degrades gracefully for profile-less identities and the insert can be
// reconciled later.
func (s *Service) Register(ctx context.Context, username, email, password string) (*RegisterResult, error) {
	result, err := s.provider.SignUp(ctx, email, password, username)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeProviderFailure,
			"registration failed: "+apperrors.MessageOf(err), err)
	}

	now := time.Now().UTC()
	profile := &Profile{
		ID:        result.Identity.ID,
		Username:  username,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.profiles.Insert(ctx, profile); err != nil {
		s.logger.WithError(err).WithField("identity_id", result.Identity.ID).
			Warn("profile insert failed after registration")
	}

	return &RegisterResult{Identity: result.Identity, Session: result.Session}, nil
}

// Login delegates to the provider's password grant.
func (s *Service) Login(ctx context.Context, email, password string) (*SignInResult, error) {
	result, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeUnauthenticated) {
			return nil, apperrors.Wrap(apperrors.CodeUnauthenticated, "login failed", err)
		}
		return nil, err
	}
	return result, nil
}

// Logout invalidates the session behind token. Provider failure is reported
// to the caller but treated as non-fatal; the token expires on its own.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.provider.SignOut(ctx, token); err != nil {
		s.logger.WithError(err).Warn("provider sign-out failed")
		return err
	}
	return nil
}

// ResendConfirmation re-triggers the provider's confirmation email.
func (s *Service) ResendConfirmation(ctx context.Context, email string) error {
	if err := s.provider.ResendConfirmation(ctx, email); err != nil {
		return apperrors.Wrap(apperrors.CodeProviderFailure,
			"resending confirmation failed: "+apperrors.MessageOf(err), err)
	}
	return nil
}

// VerifyCallbackResult pairs the identity behind a freshly-confirmed token
// with its profile, which may legitimately still be nil.
type VerifyCallbackResult struct {
	Identity *Identity `json:"user"`
	Profile  *Profile  `json:"profile"`
	Message  string    `json:"message"`
}

// VerifyCallback resolves the identity from the token delivered by the
// email-confirmation redirect and reports whether a profile exists. A missing
// profile is a warning, never an error: the register-time insert may have
// been skipped or may still be reconciling.
func (s *Service) VerifyCallback(ctx context.Context, accessToken string) (*VerifyCallbackResult, error) {
	identity, err := s.verifier.Verify(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	result := &VerifyCallbackResult{
		Identity: identity,
		Message:  "email verified",
	}

	profile, err := s.profiles.Get(ctx, identity.ID)
	if err != nil {
		if !apperrors.Is(err, apperrors.CodeNotFound) {
			s.logger.WithError(err).WithField("identity_id", identity.ID).
				Warn("profile lookup failed during callback verification")
		} else {
			s.logger.WithField("identity_id", identity.ID).
				Warn("verified identity has no profile yet")
		}
		result.Message = "email verified; profile pending"
		return result, nil
	}

	result.Profile = profile
	return result, nil
}

// CurrentUser returns the identity+profile view for an authenticated
// principal (GET /auth/me).
type CurrentUserResult struct {
	Principal Principal `json:"user"`
	Profile   *Profile  `json:"profile"`
}

func (s *Service) CurrentUser(ctx context.Context, principal Principal) (*CurrentUserResult, error) {
	result := &CurrentUserResult{Principal: principal}

	profile, err := s.profiles.Get(ctx, principal.ID)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			return result, nil
		}
		return nil, err
	}

	result.Profile = profile
	return result, nil
}

// UpdateProfile writes the mutable profile fields and stamps updated_at.
// The identity-matches-principal check belongs to the HTTP layer, which only
// ever passes the authenticated principal's own id here.
func (s *Service) UpdateProfile(ctx context.Context, identityID string, update ProfileUpdate) (*Profile, error) {
	if update.Username == nil && update.Email == nil {
		return nil, apperrors.InvalidArg("no profile fields to update")
	}

	profile, err := s.profiles.Update(ctx, identityID, update)
	if err != nil {
		return nil, err
	}
	return profile, nil
}
