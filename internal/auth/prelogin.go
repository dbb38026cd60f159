// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"regexp"

	"github.com/samber/oops"

	"github.com/gatewarden/gatewarden/internal/clock"
	"github.com/gatewarden/gatewarden/internal/events"
	"github.com/gatewarden/gatewarden/internal/premium"
	"github.com/gatewarden/gatewarden/internal/user"
	"github.com/gatewarden/gatewarden/pkg/errutil"
)

// MaxUsernameLength is the platform's username length cap.
const MaxUsernameLength = 16

// namePattern matches legal usernames. The empty name matches and is denied
// downstream by the store lookups rather than here, matching platform
// behavior.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_]*$`)

// PreLoginState is the terminal outcome of pre-login evaluation. It instructs
// the platform layer which connection-trust mode to establish.
type PreLoginState int

const (
	// StateDenied terminates the connection attempt with a reason.
	StateDenied PreLoginState = iota
	// StateForceOnline establishes the connection in premium-verified mode.
	StateForceOnline
	// StateForceOffline establishes the connection without premium
	// verification; interactive authentication follows.
	StateForceOffline
)

func (s PreLoginState) String() string {
	switch s {
	case StateDenied:
		return "denied"
	case StateForceOnline:
		return "force_online"
	case StateForceOffline:
		return "force_offline"
	default:
		return "unknown"
	}
}

// DenialReason is a stable code naming why a pre-login attempt was denied.
// Rendering user-facing text from the code is the platform's concern.
type DenialReason string

const (
	DenyIllegalUsername  DenialReason = "illegal-username"
	DenyThrottled        DenialReason = "premium-error-throttled"
	DenyLookupFailed     DenialReason = "premium-error-undefined"
	DenyInvalidCase      DenialReason = "invalid-case-username"
	DenyOccupiedUsername DenialReason = "occupied-username"
	DenyNameMismatch     DenialReason = "name-mismatch"
)

// PreLoginResult is the outcome of Evaluate. Reason and Detail are set only
// when State is StateDenied; Detail carries the stored casing or the
// occupying nickname where the reason calls for one.
type PreLoginResult struct {
	State  PreLoginState
	Reason DenialReason
	Detail string
}

func denied(reason DenialReason, detail string) PreLoginResult {
	return PreLoginResult{State: StateDenied, Reason: reason, Detail: detail}
}

// PreLoginEngine decides the connection-trust mode for a claimed username
// before any game session exists.
type PreLoginEngine struct {
	users      user.Repository
	lookup     premium.Lookup
	reconciler *Reconciler
	sink       events.Sink
	clock      clock.Clock
	logger     *slog.Logger
}

// NewPreLoginEngine creates a PreLoginEngine.
func NewPreLoginEngine(users user.Repository, lookup premium.Lookup, reconciler *Reconciler, sink events.Sink, clk clock.Clock, logger *slog.Logger) *PreLoginEngine {
	return &PreLoginEngine{
		users:      users,
		lookup:     lookup,
		reconciler: reconciler,
		sink:       sink,
		clock:      clk,
		logger:     logger,
	}
}

// Evaluate runs the pre-login state machine for username.
//
// The returned error is non-nil only for store-level failures, which abort the
// connection attempt without a specific denial reason. Every policy outcome,
// including upstream lookup faults, is expressed in the PreLoginResult.
func (e *PreLoginEngine) Evaluate(ctx context.Context, username string) (PreLoginResult, error) {
	if len(username) > MaxUsernameLength || !namePattern.MatchString(username) {
		return denied(DenyIllegalUsername, ""), nil
	}

	profile, err := e.lookup.LookupName(ctx, username)
	if err != nil {
		if premium.IsThrottled(err) {
			return denied(DenyThrottled, ""), nil
		}
		errutil.LogError(e.logger, "premium identity lookup failed", err)
		return denied(DenyLookupFailed, ""), nil
	}

	if profile == nil {
		return e.evaluateOffline(ctx, username)
	}
	return e.evaluatePremium(ctx, username, profile)
}

// evaluateOffline handles names with no premium account: resolve or provision
// a local record and revoke any stale premium linkage left on it.
func (e *PreLoginEngine) evaluateOffline(ctx context.Context, username string) (PreLoginResult, error) {
	u, err := e.reconciler.Reconcile(ctx, username, user.Unlinked(), true)
	if err != nil {
		if result, ok := denialFor(err); ok {
			return result, nil
		}
		return PreLoginResult{}, err
	}

	// The name no longer resolves to a premium account, so a surviving link
	// is stale and must not keep granting autologin.
	if u.AutologinEligible() {
		u.RevokePremium()
		if err := e.users.Update(ctx, u); err != nil {
			return PreLoginResult{}, oops.Code("PRELOGIN_UPDATE_FAILED").
				With("operation", "revoke stale premium link").
				With("username", username).
				Wrap(err)
		}
		e.sink.Publish(events.New(events.TypePremiumLinkRevoked, u.ID, username, "", e.clock.Now()))
	}

	return PreLoginResult{State: StateForceOffline}, nil
}

// evaluatePremium handles names the upstream service recognizes.
func (e *PreLoginEngine) evaluatePremium(ctx context.Context, username string, profile *premium.Profile) (PreLoginResult, error) {
	linked, err := e.users.GetByPremiumID(ctx, profile.ID)
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		return PreLoginResult{}, oops.Code("PRELOGIN_LOOKUP_FAILED").
			With("operation", "get user by premium id").
			With("premium_id", profile.ID.String()).
			Wrap(err)
	}

	if linked == nil {
		// First contact for this premium identity. Provision (or resolve) by
		// name; linkage happens only when auto-registration policy allows it.
		byName, err := e.reconciler.Reconcile(ctx, username, user.LinkedTo(profile.ID), true)
		if err != nil {
			if result, ok := denialFor(err); ok {
				return result, nil
			}
			return PreLoginResult{}, err
		}
		if byName.AutologinEligible() {
			return PreLoginResult{State: StateForceOnline}, nil
		}
		// Not auto-registered: the player still authenticates interactively.
		return PreLoginResult{State: StateForceOffline}, nil
	}

	byName, err := e.reconciler.Reconcile(ctx, username, user.LinkedTo(profile.ID), false)
	if err != nil {
		if result, ok := denialFor(err); ok {
			return result, nil
		}
		return PreLoginResult{}, err
	}

	// Impersonation guard: the premium identity and the name must not resolve
	// to two different accounts.
	if byName != nil && byName.ID != linked.ID {
		e.sink.Publish(events.New(events.TypeNameMismatchDenied, linked.ID, username, "", e.clock.Now()))
		return denied(DenyNameMismatch, username), nil
	}

	// Keep the local display name in sync with upstream identity changes.
	if linked.Nickname != profile.Name {
		linked.Nickname = profile.Name
		if err := e.users.Update(ctx, linked); err != nil {
			return PreLoginResult{}, oops.Code("PRELOGIN_UPDATE_FAILED").
				With("operation", "refresh canonical nickname").
				With("username", username).
				Wrap(err)
		}
	}

	return PreLoginResult{State: StateForceOnline}, nil
}

// denialFor maps reconciliation failures onto denial outcomes. Store-level
// errors are not denials and return ok=false.
func denialFor(err error) (PreLoginResult, bool) {
	var invalid *InvalidUsernameError
	if !errors.As(err, &invalid) {
		return PreLoginResult{}, false
	}
	switch invalid.Kind {
	case IssueCaseMismatch:
		return denied(DenyInvalidCase, invalid.CorrectCasing), true
	case IssueIDCollision:
		return denied(DenyOccupiedUsername, invalid.OccupiedBy), true
	default:
		return denied(DenyLookupFailed, ""), true
	}
}
