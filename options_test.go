package authbridge

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newOptionsHandler(t *testing.T, cfg *Config) *Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	handler, err := NewHandler(cfg, logger)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	t.Cleanup(handler.Close)
	return handler
}

func decodeStringList(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	var list []string
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	return list
}

func TestHandler_ServeModels_Defaults(t *testing.T) {
	handler := newOptionsHandler(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/options/models", nil)
	w := httptest.NewRecorder()

	handler.ServeModels(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	models := decodeStringList(t, w)
	if len(models) == 0 {
		t.Fatal("default model list should not be empty")
	}

	found := false
	for _, m := range models {
		if m == "gpt-4o" {
			found = true
		}
	}
	if !found {
		t.Errorf("models = %v, want the default list including gpt-4o", models)
	}
}

func TestHandler_ServeModels_Override(t *testing.T) {
	cfg := testConfig()
	cfg.Options.Models = []string{"only-model"}
	handler := newOptionsHandler(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/options/models", nil)
	w := httptest.NewRecorder()

	handler.ServeModels(w, req)

	models := decodeStringList(t, w)
	if len(models) != 1 || models[0] != "only-model" {
		t.Errorf("models = %v, want the configured override", models)
	}
}

func TestHandler_ServeAgents_Defaults(t *testing.T) {
	handler := newOptionsHandler(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/options/agents", nil)
	w := httptest.NewRecorder()

	handler.ServeAgents(w, req)

	agents := decodeStringList(t, w)
	want := []string{"MonologueAgent", "CodeActAgent", "PlannerAgent"}
	if len(agents) != len(want) {
		t.Fatalf("agents = %v, want %v", agents, want)
	}
	for i := range want {
		if agents[i] != want[i] {
			t.Errorf("agents[%d] = %q, want %q", i, agents[i], want[i])
		}
	}
}

func TestHandler_ServeSecurityAnalyzers(t *testing.T) {
	handler := newOptionsHandler(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/options/security-analyzers", nil)
	w := httptest.NewRecorder()

	handler.ServeSecurityAnalyzers(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if analyzers := decodeStringList(t, w); len(analyzers) == 0 {
		t.Error("analyzer list should not be empty")
	}
}

func TestHandler_OptionsMethodGuard(t *testing.T) {
	handler := newOptionsHandler(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/options/models", nil)
	w := httptest.NewRecorder()

	handler.ServeModels(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandler_ServeRuntimeConfig(t *testing.T) {
	tests := []struct {
		name        string
		github      GitHubConfig
		wantEnabled bool
	}{
		{
			name:        "auth configured",
			github:      GitHubConfig{ClientID: "client-id", ClientSecret: "client-secret"},
			wantEnabled: true,
		},
		{
			name:        "auth not configured",
			github:      GitHubConfig{},
			wantEnabled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.GitHub = tt.github
			handler := newOptionsHandler(t, cfg)

			req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
			w := httptest.NewRecorder()

			handler.ServeRuntimeConfig(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			var rc RuntimeConfig
			if err := json.NewDecoder(w.Body).Decode(&rc); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if rc.AppMode != "oss" {
				t.Errorf("AppMode = %q, want %q", rc.AppMode, "oss")
			}
			if rc.GitHubClientID != tt.github.ClientID {
				t.Errorf("GitHubClientID = %q, want %q", rc.GitHubClientID, tt.github.ClientID)
			}
			if rc.AuthEnabled != tt.wantEnabled {
				t.Errorf("AuthEnabled = %v, want %v", rc.AuthEnabled, tt.wantEnabled)
			}
		})
	}
}

func TestHandler_ServeHealth(t *testing.T) {
	handler := newOptionsHandler(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	handler.ServeHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var health HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("Status = %q, want %q", health.Status, "ok")
	}
}

func TestHandler_ServeHealth_DeepProbeFailure(t *testing.T) {
	// A provider whose API endpoint is gone makes the deep probe fail.
	ts := httptest.NewServer(http.NotFoundHandler())
	baseURL := ts.URL
	ts.Close()

	handler := setupTestHandlerWithBase(t, baseURL)

	req := httptest.NewRequest(http.MethodGet, "/healthz?deep=true", nil)
	w := httptest.NewRecorder()

	handler.ServeHealth(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	var health HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if health.Status != "degraded" {
		t.Errorf("Status = %q, want %q", health.Status, "degraded")
	}
}
