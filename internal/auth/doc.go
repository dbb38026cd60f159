// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

// Package auth implements the login gateway's authentication decision engine:
// pre-login evaluation, username reconciliation, post-login automatic
// authentication, and pre-authentication server selection.
//
// The engine holds no cross-player state; all identity records live in the
// user.Repository and each connecting player is evaluated independently.
package auth
