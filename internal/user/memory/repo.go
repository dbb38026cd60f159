// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

// Package memory provides an in-memory user repository for tests and
// development runs.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/gatewarden/gatewarden/internal/user"
)

// Repository implements user.Repository with process-local state. It enforces
// the same uniqueness constraints as the durable store: local ID, premium ID,
// and case-insensitive nickname.
type Repository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*user.User
	byName  map[string]uuid.UUID // lowercased nickname -> local ID
	byPremi map[uuid.UUID]uuid.UUID
}

// NewRepository creates an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		byID:    make(map[uuid.UUID]*user.User),
		byName:  make(map[string]uuid.UUID),
		byPremi: make(map[uuid.UUID]uuid.UUID),
	}
}

// GetByID retrieves a record by its local identifier.
func (r *Repository) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(user.ErrNotFound)
	}
	return clone(u), nil
}

// GetByPremiumID retrieves the record bound to a premium identifier.
func (r *Repository) GetByPremiumID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	localID, ok := r.byPremi[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("premium_id", id.String()).Wrap(user.ErrNotFound)
	}
	return clone(r.byID[localID]), nil
}

// GetByName retrieves a record by nickname (case-insensitive).
func (r *Repository) GetByName(_ context.Context, name string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	localID, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("name", name).Wrap(user.ErrNotFound)
	}
	return clone(r.byID[localID]), nil
}

// Insert stores a new record, rejecting uniqueness violations.
func (r *Repository) Insert(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[u.ID]; exists {
		return oops.Code("USER_DUPLICATE").With("id", u.ID.String()).Wrap(user.ErrDuplicate)
	}
	if _, exists := r.byName[strings.ToLower(u.Nickname)]; exists {
		return oops.Code("USER_DUPLICATE").With("nickname", u.Nickname).Wrap(user.ErrDuplicate)
	}
	if pid, ok := u.Premium.ID(); ok {
		if _, exists := r.byPremi[pid]; exists {
			return oops.Code("USER_DUPLICATE").With("premium_id", pid.String()).Wrap(user.ErrDuplicate)
		}
	}

	r.store(u)
	return nil
}

// Update persists changes to an existing record.
func (r *Repository) Update(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.byID[u.ID]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("id", u.ID.String()).Wrap(user.ErrNotFound)
	}

	// Drop stale secondary index entries before re-indexing.
	delete(r.byName, strings.ToLower(prev.Nickname))
	if pid, ok := prev.Premium.ID(); ok {
		delete(r.byPremi, pid)
	}

	r.store(u)
	return nil
}

// store indexes a copy of u. Callers must hold the write lock.
func (r *Repository) store(u *user.User) {
	c := clone(u)
	r.byID[c.ID] = c
	r.byName[strings.ToLower(c.Nickname)] = c.ID
	if pid, ok := c.Premium.ID(); ok {
		r.byPremi[pid] = c.ID
	}
}

// clone copies a record so callers cannot mutate indexed state.
func clone(u *user.User) *user.User {
	c := *u
	if u.LastAuthenticatedAt != nil {
		t := *u.LastAuthenticatedAt
		c.LastAuthenticatedAt = &t
	}
	return &c
}

// Compile-time interface check.
var _ user.Repository = (*Repository)(nil)
