// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package alerts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/safex/internal/auth"
	"github.com/tomtom215/safex/internal/ids"
	"github.com/tomtom215/safex/internal/logging"
	"github.com/tomtom215/safex/internal/metrics"
	"github.com/tomtom215/safex/internal/models"
	"github.com/tomtom215/safex/internal/pubsub"
	"github.com/tomtom215/safex/internal/store"
	"github.com/tomtom215/safex/internal/validation"
)

// ErrAlreadyResolved is returned when resolving an alert that is no longer
// active.
var ErrAlreadyResolved = store.ErrAlreadyResolved

// List limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// DefaultPublishTimeout bounds a single post-commit publish.
const DefaultPublishTimeout = 2 * time.Second

// CreateAlertInput is the agent-supplied alert body.
type CreateAlertInput struct {
	FeedID       string           `json:"feed_id" validate:"required,min=1,max=128"`
	Severity     models.Severity  `json:"severity" validate:"required,severity"`
	AlertType    models.AlertType `json:"alert_type,omitempty" validate:"omitempty,alert_type"`
	Title        string           `json:"title,omitempty" validate:"max=255"`
	Description  string           `json:"description,omitempty" validate:"max=4096"`
	Confidence   *float64         `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	VideoURL     string           `json:"video_url,omitempty" validate:"omitempty,url"`
	ThumbnailURL string           `json:"thumbnail_url,omitempty" validate:"omitempty,url"`
	Payload      json.RawMessage  `json:"payload,omitempty"`
}

// ResolveInput is the operator-supplied resolution body. An empty Status
// means resolved.
type ResolveInput struct {
	Status models.AlertStatus `json:"status,omitempty" validate:"omitempty,resolution_status"`
	Notes  string             `json:"notes,omitempty" validate:"max=4096"`
}

// ServiceConfig configures NewService.
type ServiceConfig struct {
	RetryBackoff   time.Duration
	PublishTimeout time.Duration

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Service creates, lists and resolves alerts.
type Service struct {
	store          store.Store
	publisher      pubsub.Publisher
	agents         *auth.AgentAuthenticator
	backoff        time.Duration
	publishTimeout time.Duration
	now            func() time.Time
	log            zerolog.Logger
}

// NewService creates an alert service. publisher may be nil, in which case
// notifications are skipped.
func NewService(st store.Store, publisher pubsub.Publisher, agents *auth.AgentAuthenticator, cfg ServiceConfig) (*Service, error) {
	if st == nil || agents == nil {
		return nil, errors.New("alert service requires a store and an agent authenticator")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &Service{
		store:          st,
		publisher:      publisher,
		agents:         agents,
		backoff:        cfg.RetryBackoff,
		publishTimeout: timeout,
		now:            now,
		log:            logging.WithComponent("alerts"),
	}, nil
}

// CreateAlert authenticates the agent, validates in, persists the alert and
// then publishes alert.created. A publish failure does not fail the call.
func (s *Service) CreateAlert(ctx context.Context, creds auth.AgentCredentials, in CreateAlertInput) (*models.Alert, error) {
	agent, err := s.agents.Authenticate(creds)
	if err != nil {
		return nil, err
	}
	if err := validateCreate(&in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	alert := &models.Alert{
		ID:           ids.NewAt(now),
		FeedID:       in.FeedID,
		Severity:     in.Severity,
		AlertType:    in.AlertType,
		Status:       models.AlertStatusActive,
		Title:        in.Title,
		Description:  in.Description,
		Confidence:   in.Confidence,
		VideoURL:     in.VideoURL,
		ThumbnailURL: in.ThumbnailURL,
		Payload:      in.Payload,
		Source:       agent.ID,
		Timestamp:    now,
		UpdatedAt:    now,
	}
	if alert.AlertType == "" {
		alert.AlertType = models.AlertTypeOther
	}

	err = store.RetryOnce(ctx, s.backoff, func() error {
		return s.store.Update(ctx, func(tx store.Tx) error {
			return tx.Alerts().CreateAlert(ctx, alert)
		})
	})
	if err != nil {
		return nil, persistenceError("create alert", err)
	}

	metrics.AlertsCreated.WithLabelValues(string(alert.Severity)).Inc()
	logging.Ctx(ctx).Info().
		Str("alert_id", alert.ID).
		Str("feed_id", alert.FeedID).
		Str("severity", string(alert.Severity)).
		Str("source", alert.Source).
		Msg("alert created")

	s.publish(ctx, models.NewAlertCreatedNotification(alert))
	return alert, nil
}

func validateCreate(in *CreateAlertInput) error {
	in.FeedID = strings.TrimSpace(in.FeedID)
	if err := validation.ValidateStruct(in); err != nil {
		return err
	}
	payload := bytes.TrimSpace(in.Payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		in.Payload = nil
		return nil
	}
	if payload[0] != '{' || !json.Valid(payload) {
		return validation.Invalid("payload", "payload must be a JSON object")
	}
	in.Payload = payload
	return nil
}

// GetAlert returns the alert with id or store.ErrNotFound.
func (s *Service) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	var alert *models.Alert
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		alert, err = tx.Alerts().GetAlert(ctx, id)
		return err
	})
	if err != nil {
		return nil, persistenceError("get alert", err)
	}
	return alert, nil
}

// ListAlerts returns alerts newest first. A zero limit means
// DefaultListLimit; limits above MaxListLimit are rejected.
func (s *Service) ListAlerts(ctx context.Context, filter models.AlertFilter) ([]*models.Alert, error) {
	switch {
	case filter.Limit == 0:
		filter.Limit = DefaultListLimit
	case filter.Limit < 0 || filter.Limit > MaxListLimit:
		return nil, validation.Invalid("limit", fmt.Sprintf("limit must be between 1 and %d", MaxListLimit))
	}
	if filter.Status != "" && filter.Status != models.AlertStatusActive &&
		filter.Status != models.AlertStatusResolved && filter.Status != models.AlertStatusFalseAlarm {
		return nil, validation.Invalid("status", "status must be active, resolved or false_alarm")
	}

	var alerts []*models.Alert
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		alerts, err = tx.Alerts().ListAlerts(ctx, filter)
		return err
	})
	if err != nil {
		return nil, persistenceError("list alerts", err)
	}
	if alerts == nil {
		alerts = []*models.Alert{}
	}
	return alerts, nil
}

// ResolveAlert closes an active alert on behalf of resolverID and publishes
// alert.resolved. Resolving an alert twice returns ErrAlreadyResolved along
// with the alert as first resolved.
func (s *Service) ResolveAlert(ctx context.Context, id, resolverID string, in ResolveInput) (*models.Alert, error) {
	if err := validation.ValidateStruct(&in); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = models.AlertStatusResolved
	}

	res := models.Resolution{
		Status:     in.Status,
		ResolvedBy: resolverID,
		ResolvedAt: s.now().UTC(),
		Notes:      in.Notes,
	}

	var alert *models.Alert
	err := store.RetryOnce(ctx, s.backoff, func() error {
		return s.store.Update(ctx, func(tx store.Tx) error {
			var err error
			alert, err = tx.Alerts().ResolveAlert(ctx, id, res)
			return err
		})
	})
	if errors.Is(err, store.ErrAlreadyResolved) {
		return alert, fmt.Errorf("resolve alert %s: %w", id, ErrAlreadyResolved)
	}
	if err != nil {
		return nil, persistenceError("resolve alert", err)
	}

	metrics.AlertsResolved.WithLabelValues(string(alert.Status)).Inc()
	logging.Ctx(ctx).Info().
		Str("alert_id", alert.ID).
		Str("status", string(alert.Status)).
		Str("resolved_by", resolverID).
		Msg("alert resolved")

	s.publish(ctx, models.NewAlertResolvedNotification(alert))
	return alert, nil
}

// publish sends n on the alert topic. It runs after commit and never fails
// the caller. The request context's cancellation is ignored so a client
// hanging up does not suppress the notification.
func (s *Service) publish(ctx context.Context, n models.AlertNotification) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		s.log.Error().Err(err).Str("alert_id", n.AlertID).Msg("failed to encode alert notification")
		metrics.AlertPublishFailures.Inc()
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, models.TopicAlerts, payload); err != nil {
		metrics.AlertPublishFailures.Inc()
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("alert_id", n.AlertID).
			Str("event", n.Event).
			Msg("alert persisted but notification not published")
	}
}

func persistenceError(op string, err error) error {
	if store.IsDomainError(err) || errors.Is(err, store.ErrPersistenceFailure) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, store.Unavailable(err))
}
