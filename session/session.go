// Package session mints and verifies the bridge's stateless session
// credential.
//
// The credential is a symmetric-key signed JWT held entirely client-side
// as a cookie or bearer token. There is no server-side session table:
// validity is decided by signature, issuer, audience, and expiry alone.
// The credential embeds the GitHub access token obtained at login, so
// possession of a session credential is possession of the provider
// token. That coupling is deliberate and documented, not an accident.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the fixed name of the session cookie.
const CookieName = "openhands_auth"

// Lifetime is the fixed validity window of a session credential.
const Lifetime = 24 * time.Hour

// Sentinel errors distinguishing "no credential at all" from "a
// credential that fails verification". Handlers map these to distinct
// 401 reasons.
var (
	ErrNoToken        = errors.New("no token found")
	ErrInvalidSession = errors.New("invalid or expired session")
)

// Identity is the user identity embedded in a session credential.
type Identity struct {
	// GitHubID is the numeric GitHub account ID.
	GitHubID int64

	// Login is the GitHub login name.
	Login string

	// Name is the display name; may be empty.
	Name string

	// Email may be empty when the account exposes no verified email.
	Email string

	// AvatarURL is the GitHub avatar URL.
	AvatarURL string

	// AccessToken is the GitHub OAuth access token obtained at login.
	AccessToken string
}

// Claims is the full claim set carried by a session credential.
type Claims struct {
	jwt.RegisteredClaims
	Email       string `json:"email,omitempty"`
	Name        string `json:"name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	GitHubID    int64  `json:"github_id"`
	GitHubLogin string `json:"github_login"`
	GitHubToken string `json:"github_token,omitempty"`
}

// Config holds the signing parameters shared by Minter and Verifier.
type Config struct {
	// Secret is the symmetric signing key.
	Secret []byte

	// Issuer and Audience are fixed strings checked on verification.
	Issuer   string
	Audience string

	// SecureCookies marks minted cookies Secure. Enable when the bridge
	// is served over TLS.
	SecureCookies bool

	// Now overrides the clock, for tests. Nil means time.Now.
	Now func() time.Time
}

func (c *Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Minter produces signed session credentials.
type Minter struct {
	cfg *Config
}

// NewMinter creates a session minter.
func NewMinter(cfg *Config) (*Minter, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("signing secret is required")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, fmt.Errorf("issuer and audience are required")
	}
	return &Minter{cfg: cfg}, nil
}

// Mint signs a credential for the given identity, valid for Lifetime.
func (m *Minter) Mint(id Identity) (string, error) {
	now := m.cfg.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", id.GitHubID),
			Issuer:    m.cfg.Issuer,
			Audience:  jwt.ClaimStrings{m.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(Lifetime)),
		},
		Email:       id.Email,
		Name:        id.Name,
		AvatarURL:   id.AvatarURL,
		GitHubID:    id.GitHubID,
		GitHubLogin: id.Login,
		GitHubToken: id.AccessToken,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Cookie builds the Set-Cookie value carrying a freshly minted credential.
func (m *Minter) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(Lifetime.Seconds()),
		HttpOnly: true,
		Secure:   m.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie builds the Set-Cookie value that erases the session
// cookie. Issued on logout regardless of whether a session existed.
func ClearCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Verifier validates presented session credentials.
type Verifier struct {
	cfg *Config
}

// NewVerifier creates a session verifier.
func NewVerifier(cfg *Config) (*Verifier, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("signing secret is required")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, fmt.Errorf("issuer and audience are required")
	}
	return &Verifier{cfg: cfg}, nil
}

// FromRequest extracts and verifies the credential carried by r.
// The cookie is checked first; an Authorization: Bearer header is only
// consulted when no cookie is present. Returns ErrNoToken when neither
// carries a credential.
func (v *Verifier) FromRequest(r *http.Request) (*Claims, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return nil, ErrNoToken
	}
	return v.Verify(token)
}

// TokenFromRequest returns the raw credential from r, cookie first,
// then bearer header. Empty string when absent.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}

	auth := r.Header.Get("Authorization")
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// Verify checks signature, issuer, audience, and expiry. Any failure
// is reported as ErrInvalidSession; the underlying cause is wrapped for
// logging but callers must not branch on it.
func (v *Verifier) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return v.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithAudience(v.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.cfg.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	return claims, nil
}
