// Package providers defines the interface the bridge uses to talk to an
// upstream identity provider and the error types that let callers tell a
// provider's own rejection apart from a transport failure.
package providers

import (
	"context"
	"fmt"
)

// Provider is the upstream identity provider behind the bridge. The
// bridge supports exactly one (GitHub), but the flow logic only depends
// on this interface.
type Provider interface {
	// Name returns the provider identifier matched against the
	// caller's identity-provider hint (e.g. "github").
	Name() string

	// AuthorizationURL builds the provider authorize URL carrying the
	// given state parameter. The redirect URI and scopes are fixed at
	// construction time and never caller-controlled.
	AuthorizationURL(state string) string

	// ExchangeCode exchanges an authorization code for an access
	// token. Failures are *RejectedError when the provider answered
	// with a structured error and *UnavailableError when the provider
	// could not be reached.
	ExchangeCode(ctx context.Context, code string) (*Credential, error)

	// FetchUser resolves the authenticated user's profile, including
	// the verified-primary-email fallback lookup. A missing email is
	// not an error.
	FetchUser(ctx context.Context, accessToken string) (*UserInfo, error)

	// HealthCheck verifies the provider API is reachable.
	HealthCheck(ctx context.Context) error
}

// Credential is the provider's own access token, held in memory only
// for the duration of one callback. Never persisted or logged.
type Credential struct {
	AccessToken string
	TokenType   string
	Scope       string
}

// UserInfo is the identity record resolved from the provider.
type UserInfo struct {
	// ID is the provider's numeric user ID.
	ID int64

	// Login is the provider login name.
	Login string

	// Name is the display name; may be empty.
	Name string

	// Email may be empty when no verified primary email exists.
	Email string

	// AvatarURL is the profile picture URL.
	AvatarURL string
}

// RejectedError is a structured error reported by the provider itself,
// carried verbatim. A token response without an access token is also
// reported this way.
type RejectedError struct {
	Code        string
	Description string
}

func (e *RejectedError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Message returns the most specific human-readable text available.
func (e *RejectedError) Message() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Code
}

// UnavailableError is a transport-level failure reaching the provider,
// including timeouts.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("provider unreachable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
