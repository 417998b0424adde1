// SafeX - Real-time Safety Monitoring Alert Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safex

package models

import "time"

// Role constants. Agents never have a User row; RoleAgent is only carried in
// access tokens minted for detection agents.
const (
	RoleViewer   = "viewer"
	RoleOperator = "operator"
	RoleAdmin    = "admin"
	RoleAgent    = "agent"
)

// ValidUserRoles contains the roles assignable to a User.
var ValidUserRoles = []string{RoleViewer, RoleOperator, RoleAdmin}

// IsValidUserRole checks if role may be assigned to a User.
func IsValidUserRole(role string) bool {
	for _, r := range ValidUserRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User is a monitoring console account. Users are never hard-deleted;
// IsActive=false disables login and refresh.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Organization string    `json:"organization,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
