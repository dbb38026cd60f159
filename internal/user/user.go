// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

// Package user defines the stored identity record and its persistence contract.
package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PremiumLink records whether an account is bound to a verified premium
// identity. The zero value is unlinked.
type PremiumLink struct {
	id     uuid.UUID
	linked bool
}

// LinkedTo returns a link bound to the given premium identifier.
func LinkedTo(id uuid.UUID) PremiumLink {
	return PremiumLink{id: id, linked: true}
}

// Unlinked returns an absent premium link.
func Unlinked() PremiumLink {
	return PremiumLink{}
}

// Linked reports whether a premium identity is bound.
func (l PremiumLink) Linked() bool {
	return l.linked
}

// ID returns the bound premium identifier. ok is false when unlinked.
func (l PremiumLink) ID() (id uuid.UUID, ok bool) {
	return l.id, l.linked
}

// String returns the premium identifier, or "" when unlinked.
// Used for logging and event payloads.
func (l PremiumLink) String() string {
	if !l.linked {
		return ""
	}
	return l.id.String()
}

// User is a stored identity record.
//
// ID is assigned once at provisioning and never reassigned. Nickname is the
// canonical, case-exact display name last persisted for the account.
// CurrentUsername is the name presented on this connection attempt; it is
// session-scoped and never persisted.
type User struct {
	ID                  uuid.UUID
	Premium             PremiumLink
	CurrentUsername     string
	Nickname            string
	CredentialHash      string // empty = not self-registered
	TOTPSecret          string // opaque to the decision engine
	JoinedAt            time.Time
	LastSeenAt          time.Time
	LastAuthenticatedAt *time.Time
	LastIP              string
	LastServer          string
}

// AutologinEligible reports whether the account may skip interactive
// authentication on the strength of its premium linkage alone.
func (u *User) AutologinEligible() bool {
	return u.Premium.Linked()
}

// Registered reports whether the account holds a stored credential.
func (u *User) Registered() bool {
	return u.CredentialHash != ""
}

// SameUsername reports whether the name presented this session matches the
// canonical nickname, case-exactly. When either side is unset there is nothing
// to compare and the check passes.
func (u *User) SameUsername() bool {
	if u.Nickname == "" || u.CurrentUsername == "" {
		return true
	}
	return u.Nickname == u.CurrentUsername
}

// RevokePremium severs the premium linkage, demoting the account to
// offline-only trust.
func (u *User) RevokePremium() {
	u.Premium = Unlinked()
}

// Repository manages identity record persistence.
//
// Implementations must enforce uniqueness of ID, of bound premium IDs, and of
// nicknames compared case-insensitively. Insert returns ErrDuplicate when any
// of those constraints reject the record.
type Repository interface {
	// GetByID retrieves a record by its local identifier.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByPremiumID retrieves the record bound to a premium identifier.
	GetByPremiumID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByName retrieves a record by nickname (case-insensitive).
	GetByName(ctx context.Context, name string) (*User, error)

	// Insert stores a new record. Returns ErrDuplicate on any uniqueness
	// violation.
	Insert(ctx context.Context, u *User) error

	// Update persists changes to an existing record.
	Update(ctx context.Context, u *User) error
}
