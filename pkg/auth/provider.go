package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/keebreview/keebreview/pkg/apperrors"
)

// ProviderClient talks to the external identity provider's REST API
// (GoTrue-compatible: signup, password grant, logout, resend, user
// introspection). It is stateless and safe for concurrent use; one instance
// is constructed at startup and injected everywhere.
type ProviderClient struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewProviderClient creates a client for the identity provider at baseURL.
// anonKey is sent as the provider's public API key header on every call.
func NewProviderClient(baseURL, anonKey string) *ProviderClient {
	return &ProviderClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// SignUpResult is the provider's response to a registration. Session is nil
// when the provider requires email confirmation before issuing tokens.
type SignUpResult struct {
	Identity *Identity `json:"user"`
	Session  *Session  `json:"session,omitempty"`
}

// SignInResult is the provider's response to a successful password grant.
type SignInResult struct {
	Identity *Identity `json:"user"`
	Session  *Session  `json:"session"`
}

type providerError struct {
	Message          string `json:"msg"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
}

func (e *providerError) text() string {
	if e.Message != "" {
		return e.Message
	}
	if e.ErrorDescription != "" {
		return e.ErrorDescription
	}
	return "provider request failed"
}

// SignUp creates a new credential with the provider, attaching username as
// profile metadata.
func (c *ProviderClient) SignUp(ctx context.Context, email, password, username string) (*SignUpResult, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
		"data":     map[string]string{"username": username},
	}

	var result SignUpResult
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", body, &result); err != nil {
		return nil, err
	}
	if result.Identity == nil {
		return nil, apperrors.Provider("registration failed", fmt.Errorf("provider returned no identity"))
	}
	return &result, nil
}

// SignInWithPassword exchanges email+password for an identity and session.
func (c *ProviderClient) SignInWithPassword(ctx context.Context, email, password string) (*SignInResult, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}

	var result struct {
		AccessToken  string    `json:"access_token"`
		RefreshToken string    `json:"refresh_token"`
		TokenType    string    `json:"token_type"`
		ExpiresIn    int64     `json:"expires_in"`
		User         *Identity `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &result); err != nil {
		return nil, err
	}
	if result.User == nil || result.AccessToken == "" {
		return nil, apperrors.Provider("login failed", fmt.Errorf("provider returned no session"))
	}

	return &SignInResult{
		Identity: result.User,
		Session: &Session{
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
			TokenType:    result.TokenType,
			ExpiresIn:    result.ExpiresIn,
		},
	}, nil
}

// SignOut invalidates the session behind token.
func (c *ProviderClient) SignOut(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", token, nil, nil)
}

// ResendConfirmation re-triggers the provider's confirmation email.
func (c *ProviderClient) ResendConfirmation(ctx context.Context, email string) error {
	body := map[string]string{
		"type":  "signup",
		"email": email,
	}
	return c.do(ctx, http.MethodPost, "/auth/v1/resend", "", body, nil)
}

// GetUser resolves a bearer token to its identity (token introspection).
// Exactly one round trip; no retries.
func (c *ProviderClient) GetUser(ctx context.Context, token string) (*Identity, error) {
	var identity Identity
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", token, nil, &identity); err != nil {
		return nil, err
	}
	if identity.ID == "" {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}
	return &identity, nil
}

func (c *ProviderClient) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, "encoding provider request", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "building provider request", err)
	}
	req.Header.Set("apikey", c.anonKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Provider("identity provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var provErr providerError
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &provErr)

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return apperrors.Wrap(apperrors.CodeUnauthenticated, provErr.text(),
				fmt.Errorf("provider status %d", resp.StatusCode))
		}
		// The token endpoint rejects bad credentials with 400 invalid_grant,
		// not 401. That is still an authentication failure, not a provider
		// outage.
		if resp.StatusCode == http.StatusBadRequest && strings.HasPrefix(path, "/auth/v1/token") {
			return apperrors.Wrap(apperrors.CodeUnauthenticated, provErr.text(),
				fmt.Errorf("provider status %d", resp.StatusCode))
		}
		if resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusConflict {
			return apperrors.Wrap(apperrors.CodeAlreadyExists, provErr.text(),
				fmt.Errorf("provider status %d", resp.StatusCode))
		}
		return apperrors.Provider(provErr.text(), fmt.Errorf("provider status %d", resp.StatusCode))
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperrors.Provider("decoding provider response", err)
		}
	}
	return nil
}
