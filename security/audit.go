package security

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// Auditor handles security event logging with PII protection.
type Auditor struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditor creates a new security auditor.
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		logger:  logger,
		enabled: enabled,
	}
}

// Event represents a security audit event.
type Event struct {
	Type      string
	UserID    string
	IPAddress string
	Details   map[string]any
	Timestamp time.Time
}

// LogEvent logs a security event with hashed user identifiers.
func (a *Auditor) LogEvent(event Event) {
	if a == nil || !a.enabled {
		return
	}

	event.Timestamp = time.Now()

	a.logger.Info("security_audit",
		"event_type", event.Type,
		"user_id_hash", hashForLogging(event.UserID),
		"ip_address", event.IPAddress,
		"details", event.Details,
		"timestamp", event.Timestamp,
	)
}

// LogLoginStarted logs the start of an authorization flow.
func (a *Auditor) LogLoginStarted(ipAddress string) {
	a.LogEvent(Event{
		Type:      "login_started",
		IPAddress: ipAddress,
	})
}

// LogLoginSucceeded logs a completed login with a freshly minted session.
func (a *Auditor) LogLoginSucceeded(userID, ipAddress string) {
	a.LogEvent(Event{
		Type:      "login_succeeded",
		UserID:    userID,
		IPAddress: ipAddress,
	})
}

// LogLoginFailed logs a failed login attempt with the failure reason.
func (a *Auditor) LogLoginFailed(ipAddress, reason string) {
	a.LogEvent(Event{
		Type:      "login_failed",
		IPAddress: ipAddress,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// LogSessionRejected logs a presented session credential that failed
// verification.
func (a *Auditor) LogSessionRejected(ipAddress, reason string) {
	a.LogEvent(Event{
		Type:      "session_rejected",
		IPAddress: ipAddress,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// LogLogout logs a logout request.
func (a *Auditor) LogLogout(userID, ipAddress string) {
	a.LogEvent(Event{
		Type:      "logout",
		UserID:    userID,
		IPAddress: ipAddress,
	})
}

// hashForLogging hashes an identifier for audit logs so events can be
// correlated without recording the identifier itself.
func hashForLogging(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:8])
}
