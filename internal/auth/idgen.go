// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package auth

import (
	"github.com/google/uuid"

	"github.com/gatewarden/gatewarden/internal/user"
)

// IDGenerator produces local account identifiers. Generate must be
// deterministic over its inputs: the same (username, premium) pair always
// yields the same identifier, so re-provisioning attempts are idempotent.
type IDGenerator interface {
	Generate(username string, premium user.PremiumLink) uuid.UUID
}

// offlineNamespace is the fixed namespace for name-based local identifiers.
// Changing it would orphan every existing account.
var offlineNamespace = uuid.MustParse("6ba51f50-9b2c-4bd4-8c27-0e4a1f7de381")

// OfflineIDGenerator derives identifiers with a name-based (SHA-1) UUID over
// the claimed username and, when present, the premium identifier.
type OfflineIDGenerator struct{}

// NewOfflineIDGenerator creates a new OfflineIDGenerator.
func NewOfflineIDGenerator() *OfflineIDGenerator {
	return &OfflineIDGenerator{}
}

// Generate derives the local identifier for the given username and premium
// linkage.
func (g *OfflineIDGenerator) Generate(username string, premium user.PremiumLink) uuid.UUID {
	seed := "OfflinePlayer:" + username
	if id, ok := premium.ID(); ok {
		seed += ":" + id.String()
	}
	return uuid.NewSHA1(offlineNamespace, []byte(seed))
}

// Compile-time interface check.
var _ IDGenerator = (*OfflineIDGenerator)(nil)
