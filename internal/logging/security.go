// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// SecurityEvent is an audit record for the token lifecycle.
type SecurityEvent struct {
	// Event names what happened, e.g. "login_success" or "token_reuse".
	Event     string
	UserID    string
	Email     string
	ChainID   string
	IPAddress string
	UserAgent string
	Success   bool
	Error     string
	Details   map[string]string
}

// SecurityLogger writes audit events with sensitive values masked.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a security logger on the global logger.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{
		logger: With().Str("component", "security").Logger(),
	}
}

// NewSecurityLoggerWithLogger creates a security logger on logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger.With().Str("component", "security").Logger(),
	}
}

// LogEvent logs event. Failures log at warn level.
func (l *SecurityLogger) LogEvent(event *SecurityEvent) {
	e := l.logger.Info()
	if !event.Success {
		e = l.logger.Warn()
	}
	e = e.Str("event", event.Event)

	if event.Success {
		e = e.Str("status", "success")
	} else {
		e = e.Str("status", "failed")
	}
	if event.UserID != "" {
		e = e.Str("user_id", event.UserID)
	}
	if event.Email != "" {
		e = e.Str("email", SanitizeEmail(event.Email))
	}
	if event.ChainID != "" {
		e = e.Str("chain_id", event.ChainID)
	}
	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}
	if event.UserAgent != "" {
		e = e.Str("user_agent", truncateString(event.UserAgent, 100))
	}
	if event.Error != "" && !event.Success {
		e = e.Str("error", SanitizeError(event.Error))
	}
	for k, v := range event.Details {
		e = e.Str(k, SanitizeValue(k, v))
	}

	e.Msg("")
}

// LogLoginSuccess logs a successful login.
func (l *SecurityLogger) LogLoginSuccess(userID, email, ip, userAgent string) {
	l.LogEvent(&SecurityEvent{
		Event:     "login_success",
		UserID:    userID,
		Email:     email,
		IPAddress: ip,
		UserAgent: userAgent,
		Success:   true,
	})
}

// LogLoginFailure logs a failed login.
func (l *SecurityLogger) LogLoginFailure(email, ip, userAgent, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:     "login_failure",
		Email:     email,
		IPAddress: ip,
		UserAgent: userAgent,
		Error:     reason,
	})
}

// LogRegistration logs a new account.
func (l *SecurityLogger) LogRegistration(userID, email, ip string) {
	l.LogEvent(&SecurityEvent{
		Event:     "register",
		UserID:    userID,
		Email:     email,
		IPAddress: ip,
		Success:   true,
	})
}

// LogLogout logs a refresh-token revocation.
func (l *SecurityLogger) LogLogout(userID, chainID string) {
	l.LogEvent(&SecurityEvent{
		Event:   "logout",
		UserID:  userID,
		ChainID: chainID,
		Success: true,
	})
}

// LogTokenRefresh logs a rotation attempt.
func (l *SecurityLogger) LogTokenRefresh(userID, chainID string, success bool, errMsg string) {
	l.LogEvent(&SecurityEvent{
		Event:   "token_refresh",
		UserID:  userID,
		ChainID: chainID,
		Success: success,
		Error:   errMsg,
	})
}

// LogTokenReuse logs a detected refresh-token replay and how many tokens
// were revoked in response.
func (l *SecurityLogger) LogTokenReuse(userID, chainID string, revoked int) {
	l.logger.Error().
		Str("event", "token_reuse").
		Str("status", "failed").
		Str("user_id", userID).
		Str("chain_id", chainID).
		Int("revoked", revoked).
		Msg("refresh token reuse detected, all refresh tokens of user revoked")
}

// LogAgentRejected logs a failed agent authentication.
func (l *SecurityLogger) LogAgentRejected(ip, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:     "agent_auth",
		IPAddress: ip,
		Error:     reason,
	})
}

// SanitizeToken masks a token, showing only first and last 4 characters.
// Example: "eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..." -> "eyJh...kpXV"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeEmail masks an email address.
// Example: "john.doe@example.com" -> "jo***@example.com"
func SanitizeEmail(email string) string {
	if email == "" {
		return ""
	}

	atIndex := strings.Index(email, "@")
	if atIndex <= 0 {
		return "***"
	}

	localPart := email[:atIndex]
	domain := email[atIndex:]

	if len(localPart) <= 2 {
		return "***" + domain
	}
	return localPart[:2] + "***" + domain
}

// SanitizeError replaces error messages that may echo credentials.
func SanitizeError(err string) string {
	sensitivePatterns := []string{
		"password",
		"secret",
		"bearer",
		"authorization",
		"api_key",
		"x-api-key",
	}

	lowerErr := strings.ToLower(err)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(lowerErr, pattern) {
			return "authentication error"
		}
	}
	return truncateString(err, 200)
}

// SanitizeValue sanitizes a value based on its key name.
func SanitizeValue(key, value string) string {
	switch strings.ToLower(key) {
	case "access_token", "refresh_token", "token", "password", "secret",
		"api_key", "apikey", "authorization", "bearer":
		return SanitizeToken(value)
	}
	if strings.Contains(value, "@") && strings.Contains(value, ".") {
		return SanitizeEmail(value)
	}
	return value
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
