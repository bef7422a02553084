package authbridge

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// DefaultSessionSecret is the well-known fallback signing secret used
// when AUTHBRIDGE_JWT_SECRET is unset. It exists so development setups
// work out of the box and is an intentional weak default: deployments
// MUST override it. Startup logs a loud warning when it is in effect.
const DefaultSessionSecret = "openhands-insecure-dev-secret"

// Config holds the bridge configuration.
// Structured using composition, read once from the environment at
// startup and passed by reference; never mutated afterwards.
type Config struct {
	// Server holds the HTTP serving settings
	Server ServerConfig

	// GitHub holds the OAuth App credentials
	GitHub GitHubConfig

	// Session holds the session credential signing settings
	Session SessionConfig

	// Options holds the static option lists served to the frontend
	Options OptionsConfig

	// RateLimit holds the per-IP rate limiting settings
	RateLimit RateLimitConfig

	// Security holds audit and proxy trust settings
	Security SecurityConfig
}

// ServerConfig holds HTTP serving configuration
type ServerConfig struct {
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string `env:"AUTHBRIDGE_LISTEN_ADDR" envDefault:":3000"`

	// PublicBaseURL is the externally visible base URL of the bridge.
	// It determines the OAuth callback URL and whether cookies are
	// marked Secure.
	PublicBaseURL string `env:"AUTHBRIDGE_PUBLIC_BASE_URL" envDefault:"http://localhost:3000"`

	// AppMode is the deployment mode label exposed at /api/config.
	AppMode string `env:"AUTHBRIDGE_APP_MODE" envDefault:"oss"`

	// DefaultRedirect is the post-login destination used when the
	// continuation state carries no redirect target.
	DefaultRedirect string `env:"AUTHBRIDGE_DEFAULT_REDIRECT" envDefault:"/"`
}

// GitHubConfig holds GitHub OAuth App credentials.
// Both values may be absent: the bridge starts anyway and the login
// endpoints fail per-request with a configuration error.
type GitHubConfig struct {
	// ClientID is the GitHub OAuth App client ID.
	ClientID string `env:"GITHUB_CLIENT_ID"`

	// ClientSecret is the GitHub OAuth App client secret.
	ClientSecret string `env:"GITHUB_CLIENT_SECRET"`
}

// SessionConfig holds session credential signing configuration
type SessionConfig struct {
	// Secret is the symmetric signing key. Falls back to
	// DefaultSessionSecret when unset.
	Secret string `env:"AUTHBRIDGE_JWT_SECRET"`

	// Issuer is the fixed issuer claim checked on verification.
	Issuer string `env:"AUTHBRIDGE_JWT_ISSUER" envDefault:"authbridge"`

	// Audience is the fixed audience claim checked on verification.
	Audience string `env:"AUTHBRIDGE_JWT_AUDIENCE" envDefault:"openhands"`
}

// OptionsConfig holds the option lists served at /api/options/*.
// Empty lists fall back to the built-in defaults.
type OptionsConfig struct {
	// Models is the selectable model list.
	Models []string `env:"AUTHBRIDGE_MODELS" envSeparator:","`

	// Agents is the selectable agent list.
	Agents []string `env:"AUTHBRIDGE_AGENTS" envSeparator:","`

	// SecurityAnalyzers is the selectable security analyzer list.
	SecurityAnalyzers []string `env:"AUTHBRIDGE_SECURITY_ANALYZERS" envSeparator:","`
}

// RateLimitConfig holds per-IP rate limiting configuration
type RateLimitConfig struct {
	// Rate is requests per second allowed per IP on the login
	// endpoints. Zero disables limiting.
	Rate int `env:"AUTHBRIDGE_RATE_LIMIT" envDefault:"0"`

	// Burst is the maximum burst size allowed per IP.
	Burst int `env:"AUTHBRIDGE_RATE_LIMIT_BURST" envDefault:"10"`
}

// SecurityConfig holds audit logging and proxy trust settings
type SecurityConfig struct {
	// EnableAuditLogging enables security audit logging (hashed user
	// identifiers, login and session events).
	EnableAuditLogging bool `env:"AUTHBRIDGE_AUDIT_LOGGING" envDefault:"true"`

	// TrustProxy enables trusting X-Forwarded-For and X-Real-IP
	// headers. Only enable behind a trusted reverse proxy.
	TrustProxy bool `env:"AUTHBRIDGE_TRUST_PROXY" envDefault:"false"`

	// TrustedProxyCount is the number of trusted reverse proxies in
	// front of the bridge.
	TrustedProxyCount int `env:"AUTHBRIDGE_TRUSTED_PROXY_COUNT" envDefault:"1"`
}

// Built-in option list defaults, served when the environment provides
// no override.
var (
	defaultModels = []string{
		"gpt-4",
		"gpt-4-turbo",
		"gpt-4-turbo-preview",
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-3.5-turbo",
		"gpt-3.5-turbo-16k",
		"claude-3-opus-20240229",
		"claude-3-sonnet-20240229",
		"claude-3-haiku-20240307",
		"claude-3-5-sonnet-20240620",
		"claude-3-5-sonnet-20241022",
		"claude-3-5-haiku-20241022",
		"gemini-pro",
		"gemini-1.5-pro",
		"gemini-1.5-flash",
	}

	defaultAgents = []string{
		"MonologueAgent",
		"CodeActAgent",
		"PlannerAgent",
	}

	defaultSecurityAnalyzers = []string{
		"invariant",
	}
)

// LoadFromEnv builds the configuration from environment variables.
// Absent values yield defaults or disabled features, never an error;
// only malformed values (e.g. a non-numeric rate) fail.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset values and logs warnings for insecure
// configuration. It is idempotent and must run before the config is
// handed to NewHandler.
func (c *Config) ApplyDefaults(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	if c.Session.Secret == "" {
		c.Session.Secret = DefaultSessionSecret
		logger.Warn("  SECURITY WARNING: no session signing secret configured",
			"risk", "anyone who knows the default secret can forge session credentials",
			"action", "set AUTHBRIDGE_JWT_SECRET before exposing this service")
	}

	if c.GitHub.ClientID == "" || c.GitHub.ClientSecret == "" {
		logger.Warn("GitHub OAuth credentials not configured; login endpoints will fail per-request",
			"action", "set GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET")
	}

	if !c.SecureCookies() {
		logger.Warn("public base URL is not https; session cookies will not be marked Secure",
			"public_base_url", c.Server.PublicBaseURL)
	}

	if len(c.Options.Models) == 0 {
		c.Options.Models = append([]string(nil), defaultModels...)
	}
	if len(c.Options.Agents) == 0 {
		c.Options.Agents = append([]string(nil), defaultAgents...)
	}
	if len(c.Options.SecurityAnalyzers) == 0 {
		c.Options.SecurityAnalyzers = append([]string(nil), defaultSecurityAnalyzers...)
	}
}

// CallbackURL returns the bridge-controlled OAuth callback URL. It is
// derived from the public base URL, never from caller input.
func (c *Config) CallbackURL() string {
	return strings.TrimRight(c.Server.PublicBaseURL, "/") + "/oauth/callback"
}

// SecureCookies reports whether minted cookies should carry the Secure
// attribute, based on the public base URL scheme.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.Server.PublicBaseURL, "https://")
}

// AuthEnabled reports whether GitHub login is configured.
func (c *Config) AuthEnabled() bool {
	return c.GitHub.ClientID != "" && c.GitHub.ClientSecret != ""
}
