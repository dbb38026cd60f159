// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package user

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate record")
