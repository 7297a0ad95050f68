package auth

import (
	"context"
	"strings"
	"time"
)

// Identity is the account record owned by the external identity provider.
// Read-only to this service; credentials never pass through it.
type Identity struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Session is the token pair issued by the provider on login or synchronous
// sign-up.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// Profile is the locally-owned display record keyed 1:1 by Identity.ID.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileUpdate carries the mutable profile fields; nil means "leave as is".
type ProfileUpdate struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// Principal is the request-scoped view of the caller used for authorization
// decisions. It merges Identity and Profile and lives only for one request.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// NewPrincipal builds a Principal from an identity and its profile. A nil
// profile degrades to a synthesized view: the username falls back to the
// local part of the identity email, or "Unknown" when there is no email.
// Resolution never produces an empty principal for a verified identity.
func NewPrincipal(identity *Identity, profile *Profile) Principal {
	if profile != nil {
		return Principal{
			ID:       profile.ID,
			Username: profile.Username,
			Email:    profile.Email,
		}
	}

	username := "Unknown"
	if identity.Email != "" {
		username = strings.SplitN(identity.Email, "@", 2)[0]
	}

	return Principal{
		ID:       identity.ID,
		Username: username,
		Email:    identity.Email,
	}
}

// ProfileStore is the persistence boundary for profiles. Implemented by
// pkg/storage/postgres, optionally wrapped with the Redis cache.
type ProfileStore interface {
	Get(ctx context.Context, id string) (*Profile, error)
	Insert(ctx context.Context, profile *Profile) error
	Update(ctx context.Context, id string, update ProfileUpdate) (*Profile, error)
}

// Verifier establishes the identity behind a bearer token. Two
// implementations exist: remote introspection against the identity provider,
// and local HS256 signature verification. The guard depends only on this
// interface.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}
