// Package instrumentation provides OpenTelemetry metrics and tracing for the
// authentication bridge.
//
// The package wraps OpenTelemetry providers behind a small facade so the rest
// of the codebase never touches provider wiring directly. When instrumentation
// is disabled, no-op providers are used and every recording call becomes free.
//
// # Usage
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		ServiceName:    "authbridge",
//		ServiceVersion: "1.0.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
//
//	inst.Metrics().RecordLoginStarted(ctx, "github")
//
// # Metric instruments
//
// HTTP layer:
//   - auth.http.requests.total: request count by method, endpoint and status
//   - auth.http.request.duration: request latency histogram in milliseconds
//
// Login flow:
//   - auth.login.started: authorization redirects issued
//   - auth.login.completed: callbacks that produced a session credential
//   - auth.login.failed: callbacks that ended in an error, by reason
//
// Sessions:
//   - auth.session.checks: session verification attempts, by outcome
//
// Provider:
//   - auth.provider.api.calls.total: upstream API calls by operation and status
//   - auth.provider.api.duration: upstream call latency histogram
//   - auth.provider.api.errors.total: upstream call failures by error type
//
// Security:
//   - auth.rate_limit.exceeded: rate limit rejections
//   - auth.audit.events.total: audit events emitted, by event type
//
// # Security
//
// Never record credential material (access tokens, authorization codes,
// session credentials, client secrets) as span attributes or metric labels.
// Traces and metrics outlive requests and are visible to a wider audience
// than the process itself. Record metadata only: outcomes, providers,
// operation names, status codes.
package instrumentation
