// Package security provides the cross-cutting security plumbing for the
// bridge: per-IP rate limiting, audit logging with hashed identifiers,
// request ID propagation, client IP extraction, and response security
// headers.
//
// # Rate Limiting
//
// RateLimiter tracks a token bucket per identifier (normally the client
// IP) and periodically drops buckets that have gone idle, so memory
// stays bounded without an explicit eviction policy.
//
//	limiter := security.NewRateLimiter(10, 20, logger)
//	defer limiter.Stop()
//
//	if !limiter.Allow(clientIP) {
//	    // 429
//	}
//
// # Audit Logging
//
// Auditor emits structured auth events. User identifiers are SHA-256
// hashed before logging so audit trails correlate without carrying PII.
package security
