// Package authbridge implements a stateless OAuth bridge that presents
// a Keycloak-shaped authorization surface in front of GitHub OAuth.
//
// The bridge intercepts an authorize request carrying an
// identity-provider hint, redirects to GitHub, exchanges the returned
// code for an access token, resolves the GitHub identity, and mints a
// signed 24-hour session credential delivered as a cookie and bearer
// token. Subsequent requests are verified against that credential
// alone; there is no server-side session store.
package authbridge

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/juristech/authbridge/instrumentation"
	"github.com/juristech/authbridge/providers"
	"github.com/juristech/authbridge/providers/github"
	"github.com/juristech/authbridge/security"
	"github.com/juristech/authbridge/session"
	"github.com/juristech/authbridge/state"
)

// providerHint is the single identity-provider hint the bridge accepts.
// Matching is exact: case variants are rejected.
const providerHint = "github"

// Handler is the HTTP surface of the bridge. Every endpoint applies the
// same CORS and method guard before any business logic runs.
type Handler struct {
	cfg      *Config
	provider providers.Provider
	minter   *session.Minter
	verifier *session.Verifier
	logger   *slog.Logger
	limiter  *security.RateLimiter
	auditor  *security.Auditor
	inst     *instrumentation.Instrumentation
	tracer   trace.Tracer
}

// HandlerOption customizes a Handler during construction.
type HandlerOption func(*Handler)

// WithProvider substitutes the identity provider. Used by tests to
// point the bridge at a fake GitHub.
func WithProvider(p providers.Provider) HandlerOption {
	return func(h *Handler) { h.provider = p }
}

// WithInstrumentation attaches OpenTelemetry instrumentation.
func WithInstrumentation(inst *instrumentation.Instrumentation) HandlerOption {
	return func(h *Handler) { h.inst = inst }
}

// NewHandler creates the bridge's HTTP handler. Missing GitHub
// credentials are not an error here: the login endpoints fail
// per-request instead, so the remaining surface stays available.
func NewHandler(cfg *Config, logger *slog.Logger, opts ...HandlerOption) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.ApplyDefaults(logger)

	sessionCfg := &session.Config{
		Secret:        []byte(cfg.Session.Secret),
		Issuer:        cfg.Session.Issuer,
		Audience:      cfg.Session.Audience,
		SecureCookies: cfg.SecureCookies(),
	}
	minter, err := session.NewMinter(sessionCfg)
	if err != nil {
		return nil, err
	}
	verifier, err := session.NewVerifier(sessionCfg)
	if err != nil {
		return nil, err
	}

	h := &Handler{
		cfg:      cfg,
		minter:   minter,
		verifier: verifier,
		logger:   logger,
		auditor:  security.NewAuditor(logger, cfg.Security.EnableAuditLogging),
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.provider == nil && cfg.AuthEnabled() {
		p, err := github.NewProvider(&github.Config{
			ClientID:     cfg.GitHub.ClientID,
			ClientSecret: cfg.GitHub.ClientSecret,
			RedirectURL:  cfg.CallbackURL(),
		})
		if err != nil {
			return nil, err
		}
		h.provider = p
	}

	if cfg.RateLimit.Rate > 0 {
		h.limiter = security.NewRateLimiter(cfg.RateLimit.Rate, cfg.RateLimit.Burst, logger)
	}

	if h.inst != nil {
		h.tracer = h.inst.Tracer("http")
	}

	return h, nil
}

// Close releases background resources held by the handler.
func (h *Handler) Close() {
	if h.limiter != nil {
		h.limiter.Stop()
	}
}

// Routes returns a mux with every bridge endpoint registered.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/authorize", h.ServeAuthorize)
	mux.HandleFunc("/oauth/callback", h.ServeCallback)
	mux.HandleFunc("/oauth/session", h.ServeSession)
	mux.HandleFunc("/oauth/logout", h.ServeLogout)
	mux.HandleFunc("/api/options/models", h.ServeModels)
	mux.HandleFunc("/api/options/agents", h.ServeAgents)
	mux.HandleFunc("/api/options/security-analyzers", h.ServeSecurityAnalyzers)
	mux.HandleFunc("/api/config", h.ServeRuntimeConfig)
	mux.HandleFunc("/healthz", h.ServeHealth)
	return mux
}

// HTTPHandler wraps the routes with request ID propagation.
func (h *Handler) HTTPHandler() http.Handler {
	return security.RequestIDMiddleware(h.Routes())
}

// ServeAuthorize handles the Keycloak-shaped authorization endpoint.
// It validates the identity-provider hint, encodes the caller's
// redirect target and state into the continuation, and redirects to
// GitHub's authorize URL. The caller-requested scope is ignored: a
// fixed minimal scope sufficient for identity resolution is used.
func (h *Handler) ServeAuthorize(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var span trace.Span
	ctx := r.Context()
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "auth.http.authorize")
		defer span.End()
		r = r.WithContext(ctx)
	}

	if !h.beginRequest(w, r, "authorize", startTime, http.MethodGet) {
		return
	}
	if !h.allowRate(w, r, true, "authorize", startTime) {
		return
	}

	q := r.URL.Query()
	hint := q.Get("kc_idp_hint")
	if hint != providerHint {
		instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrProvider, hint))
		h.failRequest(w, r, true, "authorize", startTime, ErrUnsupportedProvider(hint))
		return
	}

	if h.provider == nil {
		h.logger.Error("Authorization requested but GitHub credentials are not configured")
		h.failRequest(w, r, true, "authorize", startTime,
			ErrConfiguration("GitHub client credentials are not configured"))
		return
	}

	cont := state.Continuation{
		RedirectURI: q.Get("redirect_uri"),
		ClientState: q.Get("state"),
	}
	authURL := h.provider.AuthorizationURL(state.Encode(cont))

	h.auditor.LogLoginStarted(h.clientIP(r))
	h.recordLoginStarted(ctx)
	h.recordHTTPMetrics("authorize", r.Method, http.StatusFound, startTime)
	instrumentation.SetSpanSuccess(span)

	http.Redirect(w, r, authURL, http.StatusFound)
}

// ServeCallback handles the provider redirect (GET) and direct code
// submission (POST). GET responds with a redirect to the continuation
// target and a Set-Cookie; POST responds with a JSON body carrying the
// minted credential.
func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var span trace.Span
	ctx := r.Context()
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "auth.http.callback")
		defer span.End()
		r = r.WithContext(ctx)
	}

	if !h.beginRequest(w, r, "callback", startTime, http.MethodGet, http.MethodPost) {
		return
	}

	// Browser navigations get an HTML error page; JSON callers get a
	// structured body.
	browser := r.Method == http.MethodGet

	if !h.allowRate(w, r, browser, "callback", startTime) {
		return
	}

	code, stateToken, provErrCode, provErrDesc := h.callbackParams(r)

	if provErrCode != "" {
		h.logger.Warn("Provider returned error on callback", "error", provErrCode, "description", provErrDesc)
		message := provErrDesc
		if message == "" {
			message = provErrCode
		}
		h.failLogin(w, r, browser, startTime, span, ErrProviderRejected(message))
		return
	}

	if code == "" {
		h.failLogin(w, r, browser, startTime, span, ErrInvalidRequest("authorization code is required"))
		return
	}

	if h.provider == nil {
		h.logger.Error("Callback received but GitHub credentials are not configured")
		h.failLogin(w, r, browser, startTime, span,
			ErrConfiguration("GitHub client credentials are not configured"))
		return
	}

	// Best-effort: a malformed state never blocks login, it only
	// affects where the user lands afterwards.
	cont := state.Decode(stateToken)

	cred, err := h.provider.ExchangeCode(ctx, code)
	if err != nil {
		h.logger.Error("Token exchange failed", "error", err)
		instrumentation.RecordError(span, err)
		h.failLogin(w, r, browser, startTime, span, classifyProviderError(err))
		return
	}

	user, err := h.provider.FetchUser(ctx, cred.AccessToken)
	if err != nil {
		h.logger.Error("Identity fetch failed", "error", err)
		instrumentation.RecordError(span, err)
		h.failLogin(w, r, browser, startTime, span, ErrIdentityFetch("failed to fetch user profile"))
		return
	}

	token, err := h.minter.Mint(session.Identity{
		GitHubID:    user.ID,
		Login:       user.Login,
		Name:        user.Name,
		Email:       user.Email,
		AvatarURL:   user.AvatarURL,
		AccessToken: cred.AccessToken,
	})
	if err != nil {
		h.logger.Error("Failed to mint session credential", "error", err)
		instrumentation.RecordError(span, err)
		h.failLogin(w, r, browser, startTime, span, ErrConfiguration("failed to mint session credential"))
		return
	}

	http.SetCookie(w, h.minter.Cookie(token))

	h.auditor.LogLoginSucceeded(user.Login, h.clientIP(r))
	h.recordLoginCompleted(ctx)
	instrumentation.AddFlowAttributes(span, providerHint, user.Login)
	instrumentation.SetSpanSuccess(span)

	if browser {
		h.recordHTTPMetrics("callback", r.Method, http.StatusFound, startTime)
		http.Redirect(w, r, h.continuationRedirect(cont), http.StatusFound)
		return
	}

	h.recordHTTPMetrics("callback", r.Method, http.StatusOK, startTime)
	h.writeJSON(w, http.StatusOK, &CallbackResponse{
		Success:             true,
		Token:               token,
		User:                identityUser(user),
		ProviderAccessToken: cred.AccessToken,
	})
}

// ServeSession verifies the presented session credential and returns
// the identity it carries. The credential is never refreshed.
func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var span trace.Span
	ctx := r.Context()
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "auth.http.session")
		defer span.End()
		r = r.WithContext(ctx)
	}

	if !h.beginRequest(w, r, "session", startTime, http.MethodGet, http.MethodPost) {
		return
	}

	claims, err := h.verifier.FromRequest(r)
	if err != nil {
		h.recordSessionCheck(ctx, false)
		if errors.Is(err, session.ErrNoToken) {
			h.failRequest(w, r, false, "session", startTime, ErrNotAuthenticated())
			return
		}
		h.logger.Debug("Session credential rejected", "error", err)
		h.auditor.LogSessionRejected(h.clientIP(r), ErrorCodeInvalidSession)
		instrumentation.RecordError(span, err)
		h.failRequest(w, r, false, "session", startTime, ErrSessionInvalid())
		return
	}

	h.recordSessionCheck(ctx, true)
	instrumentation.AddFlowAttributes(span, providerHint, claims.GitHubLogin)
	instrumentation.SetSpanSuccess(span)
	h.recordHTTPMetrics("session", r.Method, http.StatusOK, startTime)
	h.writeJSON(w, http.StatusOK, &SessionResponse{
		Authenticated: true,
		User:          claimsUser(claims),
	})
}

// ServeLogout instructs the client to erase the session cookie.
// Always succeeds, whether or not a session existed.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	if !h.beginRequest(w, r, "logout", startTime, http.MethodPost) {
		return
	}

	if claims, err := h.verifier.FromRequest(r); err == nil {
		h.auditor.LogLogout(claims.GitHubLogin, h.clientIP(r))
	}

	http.SetCookie(w, session.ClearCookie(h.cfg.SecureCookies()))
	h.recordHTTPMetrics("logout", r.Method, http.StatusOK, startTime)
	h.writeJSON(w, http.StatusOK, &LogoutResponse{
		Success: true,
		Message: "logged out",
	})
}

// beginRequest applies the shared CORS and method guard. It answers
// preflight requests with a bare 204 and rejects disallowed methods
// with a 405 before any business logic runs. Returns false when the
// request was already answered.
func (h *Handler) beginRequest(w http.ResponseWriter, r *http.Request, endpoint string, startTime time.Time, allowed ...string) bool {
	security.SetSecurityHeaders(w, h.cfg.Server.PublicBaseURL)
	h.setCORSHeaders(w, r, allowed)

	if r.Method == http.MethodOptions {
		h.recordHTTPMetrics(endpoint, r.Method, http.StatusNoContent, startTime)
		w.WriteHeader(http.StatusNoContent)
		return false
	}

	if !slices.Contains(allowed, r.Method) {
		h.recordHTTPMetrics(endpoint, r.Method, http.StatusMethodNotAllowed, startTime)
		h.writeError(w, ErrMethodNotAllowed(r.Method))
		return false
	}

	return true
}

// setCORSHeaders reflects the requesting origin, or a wildcard when the
// request carries none, and enumerates the endpoint's accepted methods.
func (h *Handler) setCORSHeaders(w http.ResponseWriter, r *http.Request, allowed []string) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		// Echo the specific origin so credentialed requests work.
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}

	w.Header().Set("Access-Control-Allow-Credentials", "true")

	methods := append(append([]string(nil), allowed...), http.MethodOptions)
	w.Header().Set("Access-Control-Allow-Methods", strings.Join(methods, ", "))
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
}

// allowRate enforces the per-IP rate limit on the login endpoints.
// Returns false when the request was rejected.
func (h *Handler) allowRate(w http.ResponseWriter, r *http.Request, browser bool, endpoint string, startTime time.Time) bool {
	if h.limiter == nil {
		return true
	}

	ip := h.clientIP(r)
	if h.limiter.Allow(ip) {
		return true
	}

	h.logger.Warn("Rate limit exceeded", "endpoint", endpoint, "ip", ip)
	h.recordRateLimitExceeded(r.Context(), endpoint)
	h.failRequest(w, r, browser, endpoint, startTime, ErrRateLimitExceeded())
	return false
}

// callbackParams extracts the code, state, and provider error from a
// callback request. GET reads the query string; POST also accepts a
// form body or a JSON body, which take precedence over the query.
func (h *Handler) callbackParams(r *http.Request) (code, stateToken, errCode, errDesc string) {
	q := r.URL.Query()
	code = q.Get("code")
	stateToken = q.Get("state")
	errCode = q.Get("error")
	errDesc = q.Get("error_description")

	if r.Method != http.MethodPost {
		return
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Code  string `json:"code"`
			State string `json:"state"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			if body.Code != "" {
				code = body.Code
			}
			if body.State != "" {
				stateToken = body.State
			}
		}
		return
	}

	if err := r.ParseForm(); err == nil {
		if v := r.PostForm.Get("code"); v != "" {
			code = v
		}
		if v := r.PostForm.Get("state"); v != "" {
			stateToken = v
		}
	}
	return
}

// continuationRedirect resolves the post-login destination from the
// decoded continuation. The caller's original state rides along as a
// query parameter so the frontend can match the response to its
// request; an empty continuation falls back to the default redirect.
func (h *Handler) continuationRedirect(cont state.Continuation) string {
	target := cont.RedirectURI
	if target == "" {
		target = h.cfg.Server.DefaultRedirect
	}
	if cont.ClientState == "" {
		return target
	}

	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set("state", cont.ClientState)
	u.RawQuery = q.Encode()
	return u.String()
}

// classifyProviderError maps a provider failure onto the response
// taxonomy: a structured rejection surfaces the provider's own message,
// anything else is an upstream availability problem.
func classifyProviderError(err error) *BridgeError {
	var rejected *providers.RejectedError
	if errors.As(err, &rejected) {
		return ErrProviderRejected(rejected.Message())
	}

	var unavailable *providers.UnavailableError
	if errors.As(err, &unavailable) {
		return ErrUpstreamUnavailable("identity provider is unreachable")
	}

	return ErrUpstreamUnavailable("token exchange failed")
}

// failLogin reports a failed login attempt and answers the request.
func (h *Handler) failLogin(w http.ResponseWriter, r *http.Request, browser bool, startTime time.Time, span trace.Span, bridgeErr *BridgeError) {
	h.auditor.LogLoginFailed(h.clientIP(r), bridgeErr.Code)
	h.recordLoginFailed(r.Context(), bridgeErr.Code)
	instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrError, bridgeErr.Code))
	h.failRequest(w, r, browser, "callback", startTime, bridgeErr)
}

// failRequest records metrics for a failed request and writes the
// error, as an HTML page for browser navigations and JSON otherwise.
func (h *Handler) failRequest(w http.ResponseWriter, r *http.Request, browser bool, endpoint string, startTime time.Time, bridgeErr *BridgeError) {
	h.recordHTTPMetrics(endpoint, r.Method, bridgeErr.Status, startTime)
	if browser {
		h.serveErrorPage(w, bridgeErr)
		return
	}
	h.writeError(w, bridgeErr)
}

// writeError writes the structured JSON error body.
func (h *Handler) writeError(w http.ResponseWriter, bridgeErr *BridgeError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(bridgeErr.Status)
	_ = json.NewEncoder(w).Encode(&ErrorResponse{
		Error:   bridgeErr.Code,
		Message: bridgeErr.Message,
	})
}

// writeJSON writes a JSON response body.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

// errorPageTemplate is the HTML error page served to browser
// navigations (the authorize redirect and the callback GET), where a
// JSON body would be useless to the user.
const errorPageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Login Failed</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: linear-gradient(135deg, #1a1a2e 0%, #16213e 50%, #0f3460 100%);
            min-height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
            color: #fff;
        }
        .container { text-align: center; padding: 2rem; max-width: 480px; }
        h1 { font-size: 1.75rem; font-weight: 600; margin-bottom: 0.75rem; }
        .status { color: #e05260; font-weight: 500; margin-bottom: 1rem; }
        .message {
            color: rgba(255, 255, 255, 0.7);
            font-size: 1rem;
            line-height: 1.6;
        }
    </style>
</head>
<body>
    <div class="container">
        <h1>Login Failed</h1>
        <p class="status">{{.Status}} {{.StatusText}}</p>
        <p class="message">{{.Message}}</p>
    </div>
</body>
</html>`

var errorPageTmpl = template.Must(template.New("error").Parse(errorPageTemplate))

// errorPageData holds the template data for the error page.
type errorPageData struct {
	Status     int
	StatusText string
	Message    string
}

// serveErrorPage renders the HTML error page with the same status and
// message the JSON body would carry.
func (h *Handler) serveErrorPage(w http.ResponseWriter, bridgeErr *BridgeError) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(bridgeErr.Status)
	if err := errorPageTmpl.Execute(w, errorPageData{
		Status:     bridgeErr.Status,
		StatusText: http.StatusText(bridgeErr.Status),
		Message:    bridgeErr.Message,
	}); err != nil {
		h.logger.Error("Failed to render error page", "error", err)
	}
}

// clientIP resolves the caller's IP respecting proxy trust settings.
func (h *Handler) clientIP(r *http.Request) string {
	return security.GetClientIP(r, h.cfg.Security.TrustProxy, h.cfg.Security.TrustedProxyCount)
}

// identityUser converts a resolved provider identity to the response shape.
func identityUser(user *providers.UserInfo) *SessionUser {
	return &SessionUser{
		ID:         strconv.FormatInt(user.ID, 10),
		Email:      user.Email,
		Name:       user.Name,
		AvatarURL:  user.AvatarURL,
		ProviderID: user.ID,
	}
}

// claimsUser converts verified session claims to the response shape.
func claimsUser(claims *session.Claims) *SessionUser {
	return &SessionUser{
		ID:         claims.Subject,
		Email:      claims.Email,
		Name:       claims.Name,
		AvatarURL:  claims.AvatarURL,
		ProviderID: claims.GitHubID,
	}
}

// recordHTTPMetrics records HTTP request metrics (total count and duration)
func (h *Handler) recordHTTPMetrics(endpoint, method string, status int, startTime time.Time) {
	if h.inst == nil {
		return
	}
	duration := time.Since(startTime).Seconds() * 1000
	h.inst.Metrics().RecordHTTPRequest(context.Background(), method, endpoint, status, duration)
}

func (h *Handler) recordLoginStarted(ctx context.Context) {
	if h.inst == nil {
		return
	}
	h.inst.Metrics().RecordLoginStarted(ctx, providerHint)
}

func (h *Handler) recordLoginCompleted(ctx context.Context) {
	if h.inst == nil {
		return
	}
	h.inst.Metrics().RecordLoginCompleted(ctx, providerHint)
}

func (h *Handler) recordLoginFailed(ctx context.Context, reason string) {
	if h.inst == nil {
		return
	}
	h.inst.Metrics().RecordLoginFailed(ctx, providerHint, reason)
}

func (h *Handler) recordSessionCheck(ctx context.Context, authenticated bool) {
	if h.inst == nil {
		return
	}
	h.inst.Metrics().RecordSessionCheck(ctx, authenticated)
}

func (h *Handler) recordRateLimitExceeded(ctx context.Context, endpoint string) {
	if h.inst == nil {
		return
	}
	h.inst.Metrics().RecordRateLimitExceeded(ctx, endpoint)
}
