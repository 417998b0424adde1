// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"short", "***"},
		{"eyJhbGciOiJIUzI1NiJ9.payload.sig", "eyJh....sig"},
	}
	for _, tt := range tests {
		if got := SanitizeToken(tt.input); got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSanitizeEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"john.doe@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"not-an-email", "***"},
	}
	for _, tt := range tests {
		if got := SanitizeEmail(tt.input); got != tt.want {
			t.Errorf("SanitizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSanitizeError(t *testing.T) {
	if got := SanitizeError("wrong password for user"); got != "authentication error" {
		t.Errorf("SanitizeError() = %q", got)
	}
	if got := SanitizeError("connection refused"); got != "connection refused" {
		t.Errorf("SanitizeError() = %q", got)
	}
	if got := SanitizeError(strings.Repeat("x", 300)); len(got) != 203 {
		t.Errorf("long error length = %d, want 203", len(got))
	}
}

func TestSanitizeValue(t *testing.T) {
	if got := SanitizeValue("refresh_token", "abcdefghijklmnopqrstuvwxyz"); got != "abcd...wxyz" {
		t.Errorf("SanitizeValue(refresh_token) = %q", got)
	}
	if got := SanitizeValue("contact", "alice@example.com"); got != "al***@example.com" {
		t.Errorf("SanitizeValue(contact) = %q", got)
	}
	if got := SanitizeValue("feed_id", "cam-1"); got != "cam-1" {
		t.Errorf("SanitizeValue(feed_id) = %q", got)
	}
}

func TestSecurityLogger_LogEvent(t *testing.T) {
	var buf bytes.Buffer
	l := NewSecurityLoggerWithLogger(NewTestLogger(&buf))

	l.LogLoginFailure("alice@example.com", "10.0.0.1", "curl/8", "bad password")

	out := buf.String()
	for _, want := range []string{`"event":"login_failure"`, `"status":"failed"`, `"email":"al***@example.com"`, `"error":"authentication error"`, `"component":"security"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
	if strings.Contains(out, "alice@") {
		t.Errorf("email not masked: %s", out)
	}
}

func TestSecurityLogger_LogTokenReuse(t *testing.T) {
	var buf bytes.Buffer
	l := NewSecurityLoggerWithLogger(NewTestLogger(&buf))

	l.LogTokenReuse("u-1", "chain-1", 3)

	out := buf.String()
	for _, want := range []string{`"level":"error"`, `"event":"token_reuse"`, `"revoked":3`, `"chain_id":"chain-1"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}
