package security

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(1, 2, slog.Default())
	defer rl.Stop()

	if !rl.Allow("1.2.3.4") {
		t.Error("first request should be allowed")
	}
	if !rl.Allow("1.2.3.4") {
		t.Error("second request within burst should be allowed")
	}
	if rl.Allow("1.2.3.4") {
		t.Error("third request should exceed burst")
	}

	// A different identifier has its own bucket.
	if !rl.Allow("5.6.7.8") {
		t.Error("request from different identifier should be allowed")
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1, slog.Default())
	defer rl.Stop()

	rl.Allow("1.2.3.4")
	rl.Cleanup(0)

	rl.mu.Lock()
	remaining := len(rl.limiters)
	rl.mu.Unlock()
	if remaining != 0 {
		t.Errorf("limiters remaining after cleanup = %d, want 0", remaining)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xRealIP    string
		trustProxy bool
		proxyCount int
		want       string
	}{
		{
			name:       "direct connection",
			remoteAddr: "192.0.2.10:54321",
			want:       "192.0.2.10",
		},
		{
			name:       "proxy headers ignored when untrusted",
			remoteAddr: "192.0.2.10:54321",
			xff:        "203.0.113.7",
			want:       "192.0.2.10",
		},
		{
			name:       "single trusted proxy",
			remoteAddr: "10.0.0.1:1234",
			xff:        "203.0.113.7, 10.0.0.1",
			trustProxy: true,
			proxyCount: 1,
			want:       "203.0.113.7",
		},
		{
			name:       "two trusted proxies",
			remoteAddr: "10.0.0.1:1234",
			xff:        "203.0.113.7, 10.0.0.2, 10.0.0.1",
			trustProxy: true,
			proxyCount: 2,
			want:       "203.0.113.7",
		},
		{
			name:       "x-real-ip fallback",
			remoteAddr: "10.0.0.1:1234",
			xRealIP:    "203.0.113.7",
			trustProxy: true,
			want:       "203.0.113.7",
		},
		{
			name:       "invalid forwarded value falls back to remote addr",
			remoteAddr: "10.0.0.1:1234",
			xff:        "not-an-ip",
			trustProxy: true,
			proxyCount: 1,
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				r.Header.Set("X-Real-IP", tt.xRealIP)
			}

			if got := GetClientIP(r, tt.trustProxy, tt.proxyCount); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("generates id when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if seen == "" {
			t.Fatal("no request ID in context")
		}
		if got := rec.Header().Get(RequestIDHeader); got != seen {
			t.Errorf("response header = %q, context = %q", got, seen)
		}
	})

	t.Run("preserves valid upstream id", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(RequestIDHeader, "upstream-id-42")
		handler.ServeHTTP(httptest.NewRecorder(), r)

		if seen != "upstream-id-42" {
			t.Errorf("request ID = %q, want upstream ID preserved", seen)
		}
	})

	t.Run("replaces injected id", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(RequestIDHeader, "bad\r\nSet-Cookie: x=1")
		handler.ServeHTTP(httptest.NewRecorder(), r)

		if strings.Contains(seen, "\r") || strings.Contains(seen, "\n") {
			t.Errorf("request ID %q contains header injection characters", seen)
		}
	})
}

func TestAuditor_HashesUserIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	auditor := NewAuditor(logger, true)
	auditor.LogLoginSucceeded("user-12345", "192.0.2.10")

	out := buf.String()
	if strings.Contains(out, "user-12345") {
		t.Error("audit log contains raw user ID")
	}
	if !strings.Contains(out, "login_succeeded") {
		t.Error("audit log missing event type")
	}
}

func TestAuditor_DisabledIsSilent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	auditor := NewAuditor(logger, false)
	auditor.LogLoginFailed("192.0.2.10", "provider_rejected")

	if buf.Len() != 0 {
		t.Errorf("disabled auditor wrote output: %s", buf.String())
	}
}

func TestSetSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSecurityHeaders(rec, "https://bridge.example.com")

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("Strict-Transport-Security"); got == "" {
		t.Error("HSTS header missing for https server URL")
	}

	rec = httptest.NewRecorder()
	SetSecurityHeaders(rec, "http://localhost:3000")
	if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
		t.Error("HSTS header set for plain http server URL")
	}
}
