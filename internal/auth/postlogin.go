// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/gatewarden/gatewarden/internal/events"
	"github.com/gatewarden/gatewarden/internal/user"
)

// Reason describes why a connecting session was trusted without a password.
type Reason string

const (
	// ReasonPremium means the connection was premium-verified and the
	// presented username matched the canonical nickname.
	ReasonPremium Reason = "premium"
	// ReasonSession means a sufficiently recent prior authentication from the
	// same IP existed.
	ReasonSession Reason = "session"
	// ReasonNone means the session falls through to interactive credential
	// authentication.
	ReasonNone Reason = ""
)

// AuthorizationTracker is the interactive-credential collaborator. The engine
// hands a session to it when no automatic trust applies.
type AuthorizationTracker interface {
	StartTracking(ctx context.Context, u *user.User)
}

// Authenticator decides post-connect automatic authentication.
type Authenticator struct {
	users          user.Repository
	tracker        AuthorizationTracker
	sink           events.Sink
	sessionTimeout time.Duration
	logger         *slog.Logger
}

// NewAuthenticator creates an Authenticator. A non-positive sessionTimeout
// disables the session bypass.
func NewAuthenticator(users user.Repository, tracker AuthorizationTracker, sink events.Sink, sessionTimeout time.Duration, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		users:          users,
		tracker:        tracker,
		sink:           sink,
		sessionTimeout: sessionTimeout,
		logger:         logger,
	}
}

// Evaluate runs once a connection session exists. u.CurrentUsername must be
// set to the name presented this session before calling.
//
// Premium trust takes precedence over the session bypass. When neither
// applies, a premium-linked record with casing drift loses its linkage and the
// session is handed to the interactive tracker. The record's last-seen
// timestamp is always updated and persisted.
//
// Exactly one authenticated notification fires when a reason is assigned;
// none fires otherwise.
func (a *Authenticator) Evaluate(ctx context.Context, u *user.User, requestIP string, now time.Time) (Reason, error) {
	reason := ReasonNone

	switch {
	case u.AutologinEligible() && u.SameUsername():
		reason = ReasonPremium
	case SessionValid(u, requestIP, now, a.sessionTimeout):
		reason = ReasonSession
	default:
		if u.AutologinEligible() {
			// Username provenance is inconsistent: the account is premium-
			// linked but the presented name drifted from the canonical one.
			a.logger.Warn("username issue detected, revoking premium link",
				"user_id", u.ID.String(),
				"presented", u.CurrentUsername,
				"canonical", u.Nickname,
			)
			u.RevokePremium()
			if err := a.users.Update(ctx, u); err != nil {
				return ReasonNone, oops.Code("POSTLOGIN_UPDATE_FAILED").
					With("operation", "revoke premium link").
					With("user_id", u.ID.String()).
					Wrap(err)
			}
			a.sink.Publish(events.New(events.TypePremiumLinkRevoked, u.ID, u.CurrentUsername, "", now))
		}
		a.tracker.StartTracking(ctx, u)
	}

	if reason != ReasonNone {
		a.sink.Publish(events.New(events.TypeAuthenticated, u.ID, u.CurrentUsername, string(reason), now))
	}

	u.LastSeenAt = now
	if err := a.users.Update(ctx, u); err != nil {
		return reason, oops.Code("POSTLOGIN_UPDATE_FAILED").
			With("operation", "update last seen").
			With("user_id", u.ID.String()).
			Wrap(err)
	}

	return reason, nil
}
