package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"

	"github.com/juristech/authbridge/providers"
)

// Compile-time check that Provider implements the providers.Provider interface.
var _ providers.Provider = (*Provider)(nil)

// providerName is the identity-provider hint this provider answers to.
const providerName = "github"

// defaultAPIBaseURL is the GitHub REST API base.
const defaultAPIBaseURL = "https://api.github.com"

// defaultScopes is the fixed minimal scope set needed to resolve the
// user's identity and email. Caller-requested scopes are ignored.
var defaultScopes = []string{"read:user", "user:email"}

// Provider implements the providers.Provider interface for GitHub OAuth.
type Provider struct {
	*oauth2.Config
	httpClient     *http.Client
	requestTimeout time.Duration
	apiBaseURL     string
}

// Config holds GitHub OAuth configuration.
type Config struct {
	// ClientID is the GitHub OAuth App client ID.
	ClientID string

	// ClientSecret is the GitHub OAuth App client secret.
	ClientSecret string

	// RedirectURL is the bridge's own callback URL. It is registered
	// with the OAuth App and never substituted with a caller value.
	RedirectURL string

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client

	// RequestTimeout bounds each outbound GitHub call (default: 10s).
	RequestTimeout time.Duration

	// Endpoint overrides the OAuth endpoints, for tests.
	Endpoint *oauth2.Endpoint

	// APIBaseURL overrides the REST API base URL, for tests.
	APIBaseURL string
}

// NewProvider creates a new GitHub OAuth provider.
func NewProvider(cfg *Config) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client secret is required")
	}

	endpoint := oauthgithub.Endpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}

	apiBaseURL := cfg.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
	}

	requestTimeout := cfg.RequestTimeout
	if requestTimeout == 0 {
		requestTimeout = 10 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	scopes := make([]string, len(defaultScopes))
	copy(scopes, defaultScopes)

	return &Provider{
		Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		httpClient:     httpClient,
		requestTimeout: requestTimeout,
		apiBaseURL:     apiBaseURL,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// AuthorizationURL generates the GitHub authorize URL carrying state.
// The redirect URI and scopes come from the provider configuration.
func (p *Provider) AuthorizationURL(state string) string {
	return p.AuthCodeURL(state)
}

// ensureContextTimeout ensures the context has a deadline, adding one if needed.
func (p *Provider) ensureContextTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.requestTimeout)
}

// ExchangeCode exchanges an authorization code for an access token.
//
// Outcomes stay distinguishable for the caller:
//   - GitHub answered with a structured error (including a 200 body
//     carrying error/error_description): *providers.RejectedError with
//     the provider's code and description verbatim.
//   - GitHub answered success without an access token:
//     *providers.RejectedError with a generic description.
//   - GitHub could not be reached (network failure, timeout):
//     *providers.UnavailableError.
func (p *Provider) ExchangeCode(ctx context.Context, code string) (*providers.Credential, error) {
	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.Exchange(ctx, code)
	if err != nil {
		return nil, classifyExchangeError(err)
	}

	if token.AccessToken == "" {
		return nil, &providers.RejectedError{
			Code:        "invalid_token_response",
			Description: "token response did not include an access token",
		}
	}

	return &providers.Credential{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		Scope:       scopeFromToken(token),
	}, nil
}

// classifyExchangeError maps oauth2 exchange failures onto the bridge's
// provider error taxonomy.
func classifyExchangeError(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.ErrorCode != "" {
			return &providers.RejectedError{
				Code:        rerr.ErrorCode,
				Description: rerr.ErrorDescription,
			}
		}
		return &providers.RejectedError{
			Code:        "token_exchange_failed",
			Description: fmt.Sprintf("token endpoint returned status %d", rerr.Response.StatusCode),
		}
	}

	var uerr *url.Error
	if errors.As(err, &uerr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &providers.UnavailableError{Err: err}
	}

	// Anything else is a malformed provider response, e.g. a success
	// body the oauth2 package could not extract a token from.
	return &providers.RejectedError{
		Code:        "invalid_token_response",
		Description: err.Error(),
	}
}

// scopeFromToken extracts the granted scope GitHub reports alongside
// the token, when present.
func scopeFromToken(token *oauth2.Token) string {
	if s, ok := token.Extra("scope").(string); ok {
		return s
	}
	return ""
}

// FetchUser resolves the authenticated user's profile from GitHub.
// If the profile exposes no public email, the account's email list is
// consulted for an entry that is both primary and verified; when none
// qualifies the email stays empty, which is a valid outcome.
func (p *Provider) FetchUser(ctx context.Context, accessToken string) (*providers.UserInfo, error) {
	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()

	user, err := p.fetchProfile(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	if user.Email == "" {
		// Best-effort lookup: a failed or empty email list leaves
		// Email blank, and downstream consumers tolerate the absence.
		if email, err := p.fetchPrimaryEmail(ctx, accessToken); err == nil {
			user.Email = email
		}
	}

	return user, nil
}

// fetchProfile fetches the user record from GitHub's /user endpoint.
func (p *Provider) fetchProfile(ctx context.Context, accessToken string) (*providers.UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBaseURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user request failed with status %d", resp.StatusCode)
	}

	var ghUser struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}

	return &providers.UserInfo{
		ID:        ghUser.ID,
		Login:     ghUser.Login,
		Name:      ghUser.Name,
		Email:     ghUser.Email,
		AvatarURL: ghUser.AvatarURL,
	}, nil
}

// fetchPrimaryEmail fetches the user's verified primary email from
// /user/emails. Returns empty when no entry is both primary and verified.
func (p *Provider) fetchPrimaryEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBaseURL+"/user/emails", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("emails request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("emails request failed with status %d", resp.StatusCode)
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", fmt.Errorf("failed to decode emails: %w", err)
	}

	for _, email := range emails {
		if email.Primary && email.Verified {
			return email.Email, nil
		}
	}

	return "", nil
}

// HealthCheck verifies that the GitHub API is reachable. It calls the
// rate limit endpoint, which answers without authentication.
func (p *Provider) HealthCheck(ctx context.Context) error {
	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBaseURL+"/rate_limit", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github api unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github health check failed with status %d", resp.StatusCode)
	}

	return nil
}
