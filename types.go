package authbridge

// ErrorResponse is the JSON error body returned by every endpoint
type ErrorResponse struct {
	// Error is the machine-readable error code
	Error string `json:"error"`

	// Message is the human-readable error message
	Message string `json:"message,omitempty"`
}

// SessionUser is the identity subset exposed to authenticated callers
type SessionUser struct {
	// ID is the session subject, the provider user ID as a string
	ID string `json:"id"`

	// Email may be empty when the account exposes no verified email
	Email string `json:"email,omitempty"`

	// Name is the display name; may be empty
	Name string `json:"name,omitempty"`

	// AvatarURL is the profile picture URL
	AvatarURL string `json:"avatar_url,omitempty"`

	// ProviderID is the provider's numeric user ID
	ProviderID int64 `json:"provider_id"`
}

// CallbackResponse is returned by POST callbacks that submit a code directly
type CallbackResponse struct {
	// Success is true when a session credential was minted
	Success bool `json:"success"`

	// Token is the signed session credential
	Token string `json:"token"`

	// User is the resolved identity
	User *SessionUser `json:"user"`

	// ProviderAccessToken is the GitHub access token obtained at login.
	// It is also embedded in the session credential; exposing it here is
	// the documented statelessness trade-off, not an accident.
	ProviderAccessToken string `json:"provider_access_token,omitempty"`
}

// SessionResponse is returned by the session check endpoint
type SessionResponse struct {
	// Authenticated is true when a valid credential was presented
	Authenticated bool `json:"authenticated"`

	// User is the identity carried by the credential
	User *SessionUser `json:"user,omitempty"`
}

// LogoutResponse is returned by the logout endpoint
type LogoutResponse struct {
	// Success is always true; logout is idempotent
	Success bool `json:"success"`

	// Message describes the outcome
	Message string `json:"message,omitempty"`
}

// RuntimeConfig is the client-visible configuration served at /api/config
type RuntimeConfig struct {
	// AppMode is the deployment mode label
	AppMode string `json:"app_mode"`

	// GitHubClientID is the public OAuth App client ID
	GitHubClientID string `json:"github_client_id"`

	// AuthEnabled is true when GitHub credentials are configured
	AuthEnabled bool `json:"auth_enabled"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	// Status is "ok" or "degraded"
	Status string `json:"status"`
}
