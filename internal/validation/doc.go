// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

// Package validation validates request payloads with go-playground/validator.
//
// A single validator instance is shared process-wide. Field names in error
// messages use the json tag, so clients see "feed_id" rather than "FeedID".
//
// Custom tags:
//
//	severity          low, medium, high or critical
//	alert_type        one of models.ValidAlertTypes
//	resolution_status resolved or false_alarm
//	password          PasswordPolicy (length, repeats, common passwords)
//
// Failures are returned as *RequestValidationError, which matches
// ErrInvalid with errors.Is and converts to a VALIDATION_ERROR APIError.
package validation
