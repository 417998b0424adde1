// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package alerts

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/safex/internal/auth"
	"github.com/tomtom215/safex/internal/metrics"
	"github.com/tomtom215/safex/internal/models"
	"github.com/tomtom215/safex/internal/pubsub"
	"github.com/tomtom215/safex/internal/store"
	"github.com/tomtom215/safex/internal/validation"
)

func TestCreateAlert_PublishesAfterCommit(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	// The alert must already be readable when the notification goes out.
	var visibleAtPublish error
	env.pub.onPublish = func() {
		n := len(env.pub.published())
		list, err := env.svc.ListAlerts(ctx, models.AlertFilter{})
		if err == nil && len(list) != n+1 {
			err = fmt.Errorf("%d alerts stored at publish time, want %d", len(list), n+1)
		}
		visibleAtPublish = err
	}

	conf := 0.87
	a, err := env.svc.CreateAlert(ctx, agentCreds, CreateAlertInput{
		FeedID:     "cam-1",
		Severity:   models.SeverityHigh,
		AlertType:  models.AlertTypeIntrusion,
		Confidence: &conf,
		Payload:    json.RawMessage(`{"zone":"north gate"}`),
	})
	if err != nil {
		t.Fatalf("CreateAlert() error = %v", err)
	}
	if visibleAtPublish != nil {
		t.Fatalf("alert not committed before publish: %v", visibleAtPublish)
	}

	msgs := env.pub.published()
	if len(msgs) != 1 {
		t.Fatalf("published %d notifications, want 1", len(msgs))
	}
	n := msgs[0]
	if n.Event != models.EventAlertCreated || n.AlertID != a.ID || n.FeedID != "cam-1" || n.Severity != models.SeverityHigh {
		t.Errorf("notification = %+v", n)
	}
	if string(n.Payload) != `{"zone":"north gate"}` {
		t.Errorf("payload = %s", n.Payload)
	}
	if env.pub.topics[0] != models.TopicAlerts {
		t.Errorf("topic = %q, want %q", env.pub.topics[0], models.TopicAlerts)
	}
	if a.Source != "agent-1" || a.Status != models.AlertStatusActive {
		t.Errorf("alert = %+v", a)
	}
}

func TestCreateAlert_SurvivesChannelOutage(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.pub.err = fmt.Errorf("%w: %w", pubsub.ErrChannelUnavailable, errOutage)
	before := testutil.ToFloat64(metrics.AlertPublishFailures)

	a, err := env.svc.CreateAlert(context.Background(), agentCreds, CreateAlertInput{
		FeedID:   "cam-1",
		Severity: models.SeverityCritical,
	})
	if err != nil {
		t.Fatalf("CreateAlert() during outage error = %v", err)
	}

	got, err := env.svc.GetAlert(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetAlert() error = %v", err)
	}
	if got.ID != a.ID || got.Severity != models.SeverityCritical {
		t.Errorf("GetAlert() = %+v", got)
	}
	if after := testutil.ToFloat64(metrics.AlertPublishFailures); after < before+1 {
		t.Errorf("publish failures = %v, want at least %v", after, before+1)
	}
}

func TestCreateAlert_ThroughOpenBreaker(t *testing.T) {
	t.Parallel()

	bus := pubsub.NewGoChannelBus(16)
	t.Cleanup(func() { _ = bus.Close() })
	_ = bus.Close()
	breaker := pubsub.NewBreakerBus(bus, pubsub.BreakerConfig{Name: "alerts-test", FailureThreshold: 1, Timeout: time.Minute})

	base := newTestEnv(t)
	svc, err := NewService(base.store, breaker, auth.NewAgentAuthenticator([]string{testAgentKey}, nil), ServiceConfig{})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.CreateAlert(context.Background(), agentCreds, CreateAlertInput{FeedID: "cam-9", Severity: models.SeverityLow}); err != nil {
			t.Fatalf("CreateAlert() #%d error = %v", i, err)
		}
	}
	list, err := svc.ListAlerts(context.Background(), models.AlertFilter{FeedID: "cam-9"})
	if err != nil || len(list) != 3 {
		t.Fatalf("ListAlerts() = %d alerts, %v; want 3", len(list), err)
	}
}

func TestCreateAlert_Validation(t *testing.T) {
	t.Parallel()

	tooConfident := 1.5
	tests := []struct {
		name  string
		input CreateAlertInput
	}{
		{"missing feed", CreateAlertInput{Severity: models.SeverityLow}},
		{"blank feed", CreateAlertInput{FeedID: "   ", Severity: models.SeverityLow}},
		{"unknown severity", CreateAlertInput{FeedID: "cam-1", Severity: "urgent"}},
		{"unknown type", CreateAlertInput{FeedID: "cam-1", Severity: models.SeverityLow, AlertType: "ufo"}},
		{"confidence above one", CreateAlertInput{FeedID: "cam-1", Severity: models.SeverityLow, Confidence: &tooConfident}},
		{"bad video url", CreateAlertInput{FeedID: "cam-1", Severity: models.SeverityLow, VideoURL: "not a url"}},
		{"array payload", CreateAlertInput{FeedID: "cam-1", Severity: models.SeverityLow, Payload: json.RawMessage(`[1,2]`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)

			_, err := env.svc.CreateAlert(context.Background(), agentCreds, tt.input)
			if !errors.Is(err, validation.ErrInvalid) {
				t.Fatalf("CreateAlert() error = %v, want validation error", err)
			}
			if len(env.pub.published()) != 0 {
				t.Error("invalid alert was published")
			}
			list, _ := env.svc.ListAlerts(context.Background(), models.AlertFilter{})
			if len(list) != 0 {
				t.Errorf("invalid alert was stored: %+v", list)
			}
		})
	}
}

func TestCreateAlert_Defaults(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	a, err := env.svc.CreateAlert(context.Background(), agentCreds, CreateAlertInput{
		FeedID:   " cam-3 ",
		Severity: models.SeverityMedium,
		Payload:  json.RawMessage("null"),
	})
	if err != nil {
		t.Fatalf("CreateAlert() error = %v", err)
	}
	if a.AlertType != models.AlertTypeOther {
		t.Errorf("AlertType = %q, want other", a.AlertType)
	}
	if a.FeedID != "cam-3" {
		t.Errorf("FeedID = %q, want trimmed", a.FeedID)
	}
	if a.Payload != nil {
		t.Errorf("Payload = %s, want nil", a.Payload)
	}
	if !a.Timestamp.Equal(time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("Timestamp = %v", a.Timestamp)
	}
}

func TestCreateAlert_AgentAuthentication(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	tests := []struct {
		name  string
		creds auth.AgentCredentials
	}{
		{"no credentials", auth.AgentCredentials{}},
		{"wrong key", auth.AgentCredentials{APIKey: "agent-key-wrong-000000"}},
		{"bearer without token manager", auth.AgentCredentials{BearerToken: "abc.def.ghi"}},
	}
	for _, tt := range tests {
		_, err := env.svc.CreateAlert(context.Background(), tt.creds, CreateAlertInput{FeedID: "cam-1", Severity: models.SeverityLow})
		if !errors.Is(err, auth.ErrAuthInvalid) {
			t.Errorf("%s: error = %v, want ErrAuthInvalid", tt.name, err)
		}
	}
	if len(env.pub.published()) != 0 {
		t.Error("unauthenticated alert was published")
	}
}

func TestCreateAlert_PersistenceFailure(t *testing.T) {
	t.Parallel()

	base := newTestEnv(t)
	env := newTestEnvWithStore(t, failingStore{Store: base.store, err: store.Transient(errors.New("i/o timeout"))})

	_, err := env.svc.CreateAlert(context.Background(), agentCreds, CreateAlertInput{FeedID: "cam-1", Severity: models.SeverityLow})
	if !errors.Is(err, store.ErrPersistenceFailure) {
		t.Fatalf("CreateAlert() error = %v, want ErrPersistenceFailure", err)
	}
	if len(env.pub.published()) != 0 {
		t.Error("notification published for an alert that was not stored")
	}
}

func TestListAlerts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	first := env.create(t, "cam-1")
	env.create(t, "cam-2")
	last := env.create(t, "cam-1")
	ctx := context.Background()

	all, err := env.svc.ListAlerts(ctx, models.AlertFilter{})
	if err != nil {
		t.Fatalf("ListAlerts() error = %v", err)
	}
	if len(all) != 3 || all[0].ID != last.ID {
		t.Fatalf("ListAlerts() = %d alerts, first %s; want 3 newest first", len(all), all[0].ID)
	}

	cam1, err := env.svc.ListAlerts(ctx, models.AlertFilter{FeedID: "cam-1", Limit: 1})
	if err != nil || len(cam1) != 1 || cam1[0].ID != last.ID {
		t.Fatalf("ListAlerts(cam-1, 1) = %+v, %v", cam1, err)
	}

	if _, err := env.svc.ResolveAlert(ctx, first.ID, "u-1", ResolveInput{}); err != nil {
		t.Fatal(err)
	}
	active, err := env.svc.ListAlerts(ctx, models.AlertFilter{Status: models.AlertStatusActive})
	if err != nil || len(active) != 2 {
		t.Fatalf("ListAlerts(active) = %d, %v; want 2", len(active), err)
	}

	empty, err := env.svc.ListAlerts(ctx, models.AlertFilter{FeedID: "cam-404"})
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("ListAlerts(unknown feed) = %v, %v; want empty non-nil", empty, err)
	}

	for _, bad := range []models.AlertFilter{{Limit: MaxListLimit + 1}, {Limit: -1}, {Status: "open"}} {
		if _, err := env.svc.ListAlerts(ctx, bad); !errors.Is(err, validation.ErrInvalid) {
			t.Errorf("ListAlerts(%+v) error = %v, want validation error", bad, err)
		}
	}
}

func TestGetAlert_NotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	if _, err := env.svc.GetAlert(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetAlert() error = %v, want ErrNotFound", err)
	}
}

func TestResolveAlert_Idempotent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	a := env.create(t, "cam-1")

	first, err := env.svc.ResolveAlert(ctx, a.ID, "op-1", ResolveInput{Notes: "checked on site"})
	if err != nil {
		t.Fatalf("ResolveAlert() error = %v", err)
	}
	if first.Status != models.AlertStatusResolved || first.ResolvedBy != "op-1" || first.ResolvedAt == nil {
		t.Fatalf("first resolve = %+v", first)
	}

	env.clock.Advance(time.Hour)
	second, err := env.svc.ResolveAlert(ctx, a.ID, "op-2", ResolveInput{Status: models.AlertStatusFalseAlarm})
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("second ResolveAlert() error = %v, want ErrAlreadyResolved", err)
	}
	if second == nil || second.ResolvedBy != "op-1" || !second.ResolvedAt.Equal(*first.ResolvedAt) {
		t.Errorf("second resolve returned %+v, want original resolution", second)
	}

	stored, err := env.svc.GetAlert(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.ResolvedBy != "op-1" || stored.Status != models.AlertStatusResolved || !stored.ResolvedAt.Equal(*first.ResolvedAt) {
		t.Errorf("stored alert = %+v, want untouched first resolution", stored)
	}

	var resolved int
	for _, n := range env.pub.published() {
		if n.Event == models.EventAlertResolved {
			resolved++
			if n.ResolvedBy != "op-1" || n.Status != models.AlertStatusResolved {
				t.Errorf("resolved notification = %+v", n)
			}
		}
	}
	if resolved != 1 {
		t.Errorf("published %d alert.resolved notifications, want 1", resolved)
	}
}

func TestResolveAlert_Errors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	a := env.create(t, "cam-1")

	if _, err := env.svc.ResolveAlert(context.Background(), "missing", "op-1", ResolveInput{}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("ResolveAlert(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := env.svc.ResolveAlert(context.Background(), a.ID, "op-1", ResolveInput{Status: models.AlertStatusActive}); !errors.Is(err, validation.ErrInvalid) {
		t.Errorf("ResolveAlert(active) error = %v, want validation error", err)
	}
}
