// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

// Package postgres implements the user repository on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/gatewarden/gatewarden/internal/user"
)

// Repository implements user.Repository using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `
	id, premium_id, nickname, credential_hash, totp_secret,
	joined_at, last_seen_at, last_authenticated_at, last_ip, last_server`

// GetByID retrieves a record by its local identifier.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+userColumns+`
		FROM users
		WHERE id = $1
	`, id)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(user.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return u, nil
}

// GetByPremiumID retrieves the record bound to a premium identifier.
func (r *Repository) GetByPremiumID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+userColumns+`
		FROM users
		WHERE premium_id = $1
	`, id)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("premium_id", id.String()).
			Wrap(user.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_PREMIUM_FAILED").
			With("operation", "get user by premium id").
			With("premium_id", id.String()).
			Wrap(err)
	}
	return u, nil
}

// GetByName retrieves a record by nickname (case-insensitive).
func (r *Repository) GetByName(ctx context.Context, name string) (*user.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+userColumns+`
		FROM users
		WHERE LOWER(nickname) = LOWER($1)
	`, name)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("name", name).
			Wrap(user.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_NAME_FAILED").
			With("operation", "get user by name").
			With("name", name).
			Wrap(err)
	}
	return u, nil
}

// Insert stores a new record. Unique violations on id, premium_id, or the
// nickname index surface as user.ErrDuplicate so callers can retry
// reconciliation.
func (r *Repository) Insert(ctx context.Context, u *user.User) error {
	premiumID := premiumValue(u.Premium)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (
			id, premium_id, nickname, credential_hash, totp_secret,
			joined_at, last_seen_at, last_authenticated_at, last_ip, last_server
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		u.ID,
		premiumID,
		u.Nickname,
		nullableString(u.CredentialHash),
		nullableString(u.TOTPSecret),
		u.JoinedAt,
		u.LastSeenAt,
		u.LastAuthenticatedAt,
		nullableString(u.LastIP),
		nullableString(u.LastServer),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("USER_DUPLICATE").
				With("nickname", u.Nickname).
				With("constraint", pgErr.ConstraintName).
				Wrap(user.ErrDuplicate)
		}
		return oops.Code("USER_INSERT_FAILED").
			With("operation", "insert user").
			With("nickname", u.Nickname).
			Wrap(err)
	}
	return nil
}

// Update persists changes to an existing record.
func (r *Repository) Update(ctx context.Context, u *user.User) error {
	premiumID := premiumValue(u.Premium)

	result, err := r.pool.Exec(ctx, `
		UPDATE users SET
			premium_id = $2,
			nickname = $3,
			credential_hash = $4,
			totp_secret = $5,
			last_seen_at = $6,
			last_authenticated_at = $7,
			last_ip = $8,
			last_server = $9
		WHERE id = $1
	`,
		u.ID,
		premiumID,
		u.Nickname,
		nullableString(u.CredentialHash),
		nullableString(u.TOTPSecret),
		u.LastSeenAt,
		u.LastAuthenticatedAt,
		nullableString(u.LastIP),
		nullableString(u.LastServer),
	)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("id", u.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", u.ID.String()).
			Wrap(user.ErrNotFound)
	}
	return nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*user.User, error) {
	var (
		id         uuid.UUID
		premiumID  *uuid.UUID
		nickname   string
		credential *string
		totpSecret *string
		joinedAt   time.Time
		lastSeenAt time.Time
		lastAuthAt *time.Time
		lastIP     *string
		lastServer *string
	)

	err := row.Scan(
		&id,
		&premiumID,
		&nickname,
		&credential,
		&totpSecret,
		&joinedAt,
		&lastSeenAt,
		&lastAuthAt,
		&lastIP,
		&lastServer,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	premium := user.Unlinked()
	if premiumID != nil {
		premium = user.LinkedTo(*premiumID)
	}

	return &user.User{
		ID:                  id,
		Premium:             premium,
		Nickname:            nickname,
		CredentialHash:      deref(credential),
		TOTPSecret:          deref(totpSecret),
		JoinedAt:            joinedAt,
		LastSeenAt:          lastSeenAt,
		LastAuthenticatedAt: lastAuthAt,
		LastIP:              deref(lastIP),
		LastServer:          deref(lastServer),
	}, nil
}

func premiumValue(l user.PremiumLink) *uuid.UUID {
	if id, ok := l.ID(); ok {
		return &id
	}
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Compile-time interface check.
var _ user.Repository = (*Repository)(nil)
