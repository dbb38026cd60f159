// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/gatewarden/gatewarden/internal/clock"
	"github.com/gatewarden/gatewarden/internal/user"
)

// Reconciler maps a claimed username to a single authoritative record,
// provisioning one when permitted.
type Reconciler struct {
	users        user.Repository
	ids          IDGenerator
	autoRegister bool
	clock        clock.Clock
}

// NewReconciler creates a Reconciler. autoRegister controls whether freshly
// provisioned records for premium names are created with the premium linkage
// already bound.
func NewReconciler(users user.Repository, ids IDGenerator, autoRegister bool, clk clock.Clock) *Reconciler {
	return &Reconciler{
		users:        users,
		ids:          ids,
		autoRegister: autoRegister,
		clock:        clk,
	}
}

// Reconcile resolves username against the store.
//
// An existing record is returned only when its canonical nickname matches the
// claimed name case-exactly; otherwise *InvalidUsernameError (case mismatch)
// is returned. With provision disabled a missing record yields (nil, nil).
// With provision enabled a new record is created, guarded against identifier
// collisions, and persisted.
//
// A duplicate-key rejection on insert means another connection won a
// provisioning race; reconciliation is retried once so the winner's record is
// picked up, and a second rejection resolves to the collision error rather
// than proceeding with an unconfirmed record.
func (r *Reconciler) Reconcile(ctx context.Context, username string, premium user.PremiumLink, provision bool) (*user.User, error) {
	var resolved *user.User

	backoff := retry.WithMaxRetries(1, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		u, err := r.reconcileOnce(ctx, username, premium, provision)
		if err != nil {
			if errors.Is(err, user.ErrDuplicate) {
				return retry.RetryableError(err)
			}
			return err
		}
		resolved = u
		return nil
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			return nil, &InvalidUsernameError{Kind: IssueIDCollision}
		}
		return nil, err
	}
	return resolved, nil
}

func (r *Reconciler) reconcileOnce(ctx context.Context, username string, premium user.PremiumLink, provision bool) (*user.User, error) {
	found, err := r.users.GetByName(ctx, username)
	if err == nil {
		if found.Nickname != username {
			return nil, &InvalidUsernameError{Kind: IssueCaseMismatch, CorrectCasing: found.Nickname}
		}
		return found, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, oops.Code("RECONCILE_LOOKUP_FAILED").
			With("operation", "get user by name").
			With("username", username).
			Wrap(err)
	}

	if !provision {
		return nil, nil
	}

	newID := r.ids.Generate(username, premium)

	conflicting, err := r.users.GetByID(ctx, newID)
	if err == nil {
		return nil, &InvalidUsernameError{Kind: IssueIDCollision, OccupiedBy: conflicting.Nickname}
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, oops.Code("RECONCILE_LOOKUP_FAILED").
			With("operation", "get user by generated id").
			With("username", username).
			With("id", newID.String()).
			Wrap(err)
	}

	link := user.Unlinked()
	if premium.Linked() && r.autoRegister {
		link = premium
	}

	now := r.clock.Now()
	created := &user.User{
		ID:         newID,
		Premium:    link,
		Nickname:   username,
		JoinedAt:   now,
		LastSeenAt: now,
	}

	if err := r.users.Insert(ctx, created); err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			return nil, err //nolint:wrapcheck // Reconcile maps duplicates to the retry path
		}
		return nil, oops.Code("RECONCILE_INSERT_FAILED").
			With("operation", "insert user").
			With("username", username).
			With("id", newID.String()).
			Wrap(err)
	}
	return created, nil
}
