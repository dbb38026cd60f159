// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

// Package premium resolves usernames against the external premium identity
// service.
package premium

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Profile is a premium identity as reported by the upstream service.
// Name carries the account's current canonical casing.
type Profile struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Lookup resolves usernames to premium profiles.
//
// A nil Profile with a nil error means the name has no premium account.
// Upstream faults are returned as *Fault.
type Lookup interface {
	LookupName(ctx context.Context, username string) (*Profile, error)
}

// FaultKind classifies upstream lookup failures.
type FaultKind int

const (
	// FaultOther is an unexpected upstream failure.
	FaultOther FaultKind = iota
	// FaultThrottled means the upstream rejected the request for rate reasons.
	FaultThrottled
)

func (k FaultKind) String() string {
	if k == FaultThrottled {
		return "throttled"
	}
	return "other"
}

// Fault is an upstream lookup failure.
type Fault struct {
	Kind   FaultKind
	Status int // HTTP status when applicable, 0 otherwise
	Err    error
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("premium lookup %s: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("premium lookup %s (status %d)", f.Kind, f.Status)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// IsThrottled reports whether err is a throttled lookup fault.
func IsThrottled(err error) bool {
	f, ok := AsFault(err)
	return ok && f.Kind == FaultThrottled
}

// AsFault extracts a *Fault from an error chain.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
