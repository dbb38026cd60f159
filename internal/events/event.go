// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

// Package events carries the typed notifications the decision engine emits for
// messaging and audit collaborators.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Type identifies the kind of notification.
type Type string

const (
	// TypeAuthenticated fires when a connecting session is trusted without a
	// password. Reason carries why.
	TypeAuthenticated Type = "authenticated"
	// TypePremiumLinkRevoked fires when a record's premium linkage is severed.
	TypePremiumLinkRevoked Type = "premium_link_revoked"
	// TypeNameMismatchDenied fires when the impersonation guard denies a
	// pre-login attempt.
	TypeNameMismatchDenied Type = "name_mismatch_denied"
)

// Event is a single notification. Reason is set only for TypeAuthenticated.
type Event struct {
	ID       ulid.ULID
	Type     Type
	UserID   uuid.UUID
	Username string
	Reason   string
	At       time.Time
}

// New creates an Event stamped with a fresh ID and the given time.
func New(t Type, userID uuid.UUID, username, reason string, at time.Time) Event {
	return Event{
		ID:       ulid.Make(),
		Type:     t,
		UserID:   userID,
		Username: username,
		Reason:   reason,
		At:       at,
	}
}
