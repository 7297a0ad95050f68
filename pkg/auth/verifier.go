package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/keebreview/keebreview/pkg/apperrors"
)

// RemoteVerifier resolves tokens by introspection against the identity
// provider. One provider round trip per call.
type RemoteVerifier struct {
	client *ProviderClient
}

// NewRemoteVerifier creates a Verifier backed by provider introspection.
func NewRemoteVerifier(client *ProviderClient) *RemoteVerifier {
	return &RemoteVerifier{client: client}
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	identity, err := v.client.GetUser(ctx, token)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeUnauthenticated) {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeUnauthenticated, "invalid or expired token", err)
	}
	return identity, nil
}

// LocalVerifier validates HS256-signed tokens with a shared secret, for
// deployments where tokens are issued locally instead of by a remote
// provider. The two backends are mutually exclusive and selected by
// configuration at startup.
type LocalVerifier struct {
	secret []byte
}

// NewLocalVerifier creates a Verifier for locally-issued HS256 tokens.
// The secret must be at least 32 bytes of random data in production.
func NewLocalVerifier(secret string) (*LocalVerifier, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: signing secret must be at least 16 characters")
	}
	return &LocalVerifier{secret: []byte(secret)}, nil
}

type localClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (v *LocalVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	parsed, err := jwt.ParseWithClaims(
		token,
		&localClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.Unauthorized("invalid or expired token")
		}
		return nil, apperrors.Wrap(apperrors.CodeUnauthenticated, "invalid or expired token", err)
	}

	claims, ok := parsed.Claims.(*localClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	identity := &Identity{
		ID:    claims.Subject,
		Email: claims.Email,
	}
	if claims.IssuedAt != nil {
		identity.CreatedAt = claims.IssuedAt.Time
	}
	return identity, nil
}

// IssueLocal signs an HS256 token for an identity. Used by tests and by
// local-mode tooling; the remote backend never issues tokens here.
func (v *LocalVerifier) IssueLocal(id, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := localClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}
