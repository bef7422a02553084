package authbridge

import (
	"fmt"
	"net/http"
)

// Bridge error codes as constants
const (
	ErrorCodeUnsupportedProvider = "unsupported_provider"
	ErrorCodeConfiguration       = "configuration_error"
	ErrorCodeUpstreamUnavailable = "upstream_unavailable"
	ErrorCodeIdentityFetch       = "identity_fetch_failed"
	ErrorCodeNotAuthenticated    = "not_authenticated"
	ErrorCodeInvalidSession      = "invalid_session"
	ErrorCodeMethodNotAllowed    = "method_not_allowed"
	ErrorCodeInvalidRequest      = "invalid_request"
	ErrorCodeRateLimitExceeded   = "rate_limit_exceeded"

	// ErrorCodeProviderRejected is the error code surfaced when GitHub
	// itself rejects the login. The wording is part of the response
	// contract consumed by the frontend.
	ErrorCodeProviderRejected = "GitHub OAuth error"
)

// BridgeError represents an error response of the bridge
type BridgeError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Status  int    // HTTP status code
}

// Error implements the error interface
func (e *BridgeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBridgeError creates a new bridge error
func NewBridgeError(code, message string, status int) *BridgeError {
	return &BridgeError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

// Common bridge errors as reusable constructors
var (
	// ErrUnsupportedProvider rejects an identity-provider hint other than
	// the single supported provider, naming the rejected hint.
	ErrUnsupportedProvider = func(hint string) *BridgeError {
		return NewBridgeError(ErrorCodeUnsupportedProvider,
			fmt.Sprintf("unsupported identity provider: %q", hint), http.StatusBadRequest)
	}

	// ErrConfiguration indicates required server-side configuration is missing
	ErrConfiguration = func(message string) *BridgeError {
		return NewBridgeError(ErrorCodeConfiguration, message, http.StatusInternalServerError)
	}

	// ErrUpstreamUnavailable indicates the identity provider could not be reached
	ErrUpstreamUnavailable = func(message string) *BridgeError {
		return NewBridgeError(ErrorCodeUpstreamUnavailable, message, http.StatusBadGateway)
	}

	// ErrProviderRejected carries an error the identity provider reported itself
	ErrProviderRejected = func(message string) *BridgeError {
		return NewBridgeError(ErrorCodeProviderRejected, message, http.StatusBadRequest)
	}

	// ErrIdentityFetch indicates the user profile could not be resolved
	ErrIdentityFetch = func(message string) *BridgeError {
		return NewBridgeError(ErrorCodeIdentityFetch, message, http.StatusBadGateway)
	}

	// ErrNotAuthenticated indicates no session credential was presented
	ErrNotAuthenticated = func() *BridgeError {
		return NewBridgeError(ErrorCodeNotAuthenticated, "no token found", http.StatusUnauthorized)
	}

	// ErrSessionInvalid indicates a presented credential failed verification
	ErrSessionInvalid = func() *BridgeError {
		return NewBridgeError(ErrorCodeInvalidSession, "invalid or expired session", http.StatusUnauthorized)
	}

	// ErrMethodNotAllowed rejects a request method outside the endpoint's allow-list
	ErrMethodNotAllowed = func(method string) *BridgeError {
		return NewBridgeError(ErrorCodeMethodNotAllowed,
			fmt.Sprintf("method %s is not allowed", method), http.StatusMethodNotAllowed)
	}

	// ErrInvalidRequest indicates the request is missing required parameters
	ErrInvalidRequest = func(message string) *BridgeError {
		return NewBridgeError(ErrorCodeInvalidRequest, message, http.StatusBadRequest)
	}

	// ErrRateLimitExceeded indicates the caller is sending requests too quickly
	ErrRateLimitExceeded = func() *BridgeError {
		return NewBridgeError(ErrorCodeRateLimitExceeded, "too many requests", http.StatusTooManyRequests)
	}
)
