// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth

import (
	"time"

	"github.com/gatewarden/gatewarden/internal/user"
)

// Destination is a pre-authentication routing class.
type Destination int

const (
	// DestinationLimbo is the untrusted holding destination where sessions
	// await interactive authentication.
	DestinationLimbo Destination = iota
	// DestinationLobby is the trusted destination.
	DestinationLobby
)

func (d Destination) String() string {
	if d == DestinationLobby {
		return "lobby"
	}
	return "limbo"
}

// Selector chooses the routing destination for a connecting session before
// full authentication.
type Selector struct {
	sessionTimeout time.Duration
}

// NewSelector creates a Selector.
func NewSelector(sessionTimeout time.Duration) *Selector {
	return &Selector{sessionTimeout: sessionTimeout}
}

// Choose routes trusted sessions to the lobby and everything else to limbo.
// Bridged identities are exempted from trust evaluation upstream and always
// route trusted; u may be nil in that case. Trust is decided by IsTrusted,
// the same predicate post-login authentication uses.
func (s *Selector) Choose(u *user.User, bridged bool, requestIP string, now time.Time) Destination {
	if bridged || IsTrusted(u, requestIP, now, s.sessionTimeout) {
		return DestinationLobby
	}
	return DestinationLimbo
}
