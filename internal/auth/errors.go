// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth

import "fmt"

// UsernameIssueKind classifies why a claimed username could not be reconciled.
type UsernameIssueKind int

const (
	// IssueCaseMismatch means a record holds the name with different casing.
	IssueCaseMismatch UsernameIssueKind = iota
	// IssueIDCollision means the name's generated identifier already belongs
	// to an unrelated account.
	IssueIDCollision
)

func (k UsernameIssueKind) String() string {
	switch k {
	case IssueCaseMismatch:
		return "case_mismatch"
	case IssueIDCollision:
		return "id_collision"
	default:
		return "unknown"
	}
}

// InvalidUsernameError is returned by Reconcile when a claimed username cannot
// map to a record. CorrectCasing carries the stored display form on a case
// mismatch; OccupiedBy carries the conflicting account's nickname on an
// identifier collision, when known.
type InvalidUsernameError struct {
	Kind          UsernameIssueKind
	CorrectCasing string
	OccupiedBy    string
}

func (e *InvalidUsernameError) Error() string {
	switch e.Kind {
	case IssueCaseMismatch:
		return fmt.Sprintf("invalid username casing, stored form is %q", e.CorrectCasing)
	case IssueIDCollision:
		if e.OccupiedBy != "" {
			return fmt.Sprintf("generated identifier already occupied by %q", e.OccupiedBy)
		}
		return "generated identifier already occupied"
	default:
		return "invalid username"
	}
}
