// Package github implements the bridge's provider interface for GitHub
// OAuth Apps: building the authorize URL, exchanging the callback code
// for an access token, and resolving the user's identity.
//
// GitHub OAuth differs from OIDC providers in several key ways:
//   - No OIDC discovery: Endpoints are hardcoded (not dynamically discovered)
//   - Non-expiring tokens: Standard OAuth Apps issue tokens that don't expire
//   - No refresh tokens: Standard OAuth Apps don't provide refresh tokens
//   - Email privacy: User emails may be private, requiring a separate API call
//
// # Scopes
//
// The provider always requests the fixed minimal scope set needed to
// resolve identity:
//   - read:user: Read user profile data
//   - user:email: Read user email addresses (for the private-email fallback)
//
// Caller-supplied scope parameters are ignored.
//
// # Error Classification
//
// ExchangeCode keeps three failure modes distinguishable: a structured
// rejection from GitHub (surfaced verbatim), a success response missing
// the access token (treated as a rejection with a generic message), and
// a transport failure or timeout (surfaced as unavailable). Callers map
// these to different HTTP statuses.
//
// # Example Usage
//
//	provider, err := github.NewProvider(&github.Config{
//	    ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
//	    ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
//	    RedirectURL:  "http://localhost:8080/oauth/callback",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
package github
