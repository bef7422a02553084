package authbridge

import (
	"net/http"
	"time"
)

// ServeModels returns the selectable model list.
func (h *Handler) ServeModels(w http.ResponseWriter, r *http.Request) {
	h.serveOptionList(w, r, "models", h.cfg.Options.Models)
}

// ServeAgents returns the selectable agent list.
func (h *Handler) ServeAgents(w http.ResponseWriter, r *http.Request) {
	h.serveOptionList(w, r, "agents", h.cfg.Options.Agents)
}

// ServeSecurityAnalyzers returns the selectable security analyzer list.
func (h *Handler) ServeSecurityAnalyzers(w http.ResponseWriter, r *http.Request) {
	h.serveOptionList(w, r, "security_analyzers", h.cfg.Options.SecurityAnalyzers)
}

// serveOptionList answers an options endpoint with a static JSON array.
func (h *Handler) serveOptionList(w http.ResponseWriter, r *http.Request, endpoint string, values []string) {
	startTime := time.Now()

	if !h.beginRequest(w, r, endpoint, startTime, http.MethodGet) {
		return
	}

	if values == nil {
		values = []string{}
	}

	h.recordHTTPMetrics(endpoint, r.Method, http.StatusOK, startTime)
	h.writeJSON(w, http.StatusOK, values)
}

// ServeRuntimeConfig returns the client-visible runtime configuration.
// Only values safe to expose publicly belong here; the client ID is
// public by OAuth design, the client secret never appears.
func (h *Handler) ServeRuntimeConfig(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	if !h.beginRequest(w, r, "config", startTime, http.MethodGet) {
		return
	}

	h.recordHTTPMetrics("config", r.Method, http.StatusOK, startTime)
	h.writeJSON(w, http.StatusOK, &RuntimeConfig{
		AppMode:        h.cfg.Server.AppMode,
		GitHubClientID: h.cfg.GitHub.ClientID,
		AuthEnabled:    h.cfg.AuthEnabled(),
	})
}

// ServeHealth reports liveness. With ?deep=true it also probes GitHub
// reachability through the provider, answering 503 when the probe
// fails; upstream error detail is logged, never returned.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	if !h.beginRequest(w, r, "healthz", startTime, http.MethodGet) {
		return
	}

	if r.URL.Query().Get("deep") == "true" && h.provider != nil {
		if err := h.provider.HealthCheck(r.Context()); err != nil {
			h.logger.Warn("Health probe failed", "error", err)
			h.recordHTTPMetrics("healthz", r.Method, http.StatusServiceUnavailable, startTime)
			h.writeJSON(w, http.StatusServiceUnavailable, &HealthResponse{Status: "degraded"})
			return
		}
	}

	h.recordHTTPMetrics("healthz", r.Method, http.StatusOK, startTime)
	h.writeJSON(w, http.StatusOK, &HealthResponse{Status: "ok"})
}
