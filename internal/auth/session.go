// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth

import (
	"time"

	"github.com/gatewarden/gatewarden/internal/user"
)

// SessionValid reports whether a record still carries a valid recent-
// authentication bypass for the requesting IP at the given time.
//
// A non-positive timeout disables the bypass entirely. The window is
// inclusive: a request at exactly lastAuthenticatedAt+timeout is still valid.
func SessionValid(u *user.User, requestIP string, now time.Time, timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	if u.LastAuthenticatedAt == nil || u.LastIP == "" {
		return false
	}
	if requestIP != u.LastIP {
		return false
	}
	return !now.After(u.LastAuthenticatedAt.Add(timeout))
}

// IsTrusted is the single trust predicate shared by post-login authentication
// and server selection. A session is trusted when the account is premium-
// linked and the presented username still matches the canonical nickname, or
// when a session bypass is valid. The two call sites must never diverge, so
// neither re-derives this locally.
func IsTrusted(u *user.User, requestIP string, now time.Time, timeout time.Duration) bool {
	if u == nil {
		return false
	}
	if u.AutologinEligible() && u.SameUsername() {
		return true
	}
	return SessionValid(u, requestIP, now, timeout)
}
