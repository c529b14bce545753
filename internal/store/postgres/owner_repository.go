// Copyright 2026 The Crewdesk Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/crewdesk/crewdesk/internal/identity"
)

// OwnerRepository implements identity.OwnerRepository.
type OwnerRepository struct {
	db *DB
}

// NewOwnerRepository creates a new owner repository.
func NewOwnerRepository(db *DB) *OwnerRepository {
	return &OwnerRepository{db: db}
}

func (r *OwnerRepository) Create(ctx context.Context, o *identity.Owner) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO owners (id, email, name, password_hash, is_admin, failed_attempts, locked_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, o.ID, o.Email, o.Name, o.PasswordHash, o.IsAdmin, o.FailedLoginAttempts, o.LockedUntil, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create owner: %w", err)
	}
	return nil
}

func (r *OwnerRepository) GetByID(ctx context.Context, id string) (*identity.Owner, error) {
	return scanOwner(r.db.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, is_admin, failed_attempts, locked_until, created_at, updated_at
		FROM owners WHERE id = $1
	`, id))
}

func (r *OwnerRepository) GetByEmail(ctx context.Context, email string) (*identity.Owner, error) {
	return scanOwner(r.db.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, is_admin, failed_attempts, locked_until, created_at, updated_at
		FROM owners WHERE email = $1
	`, email))
}

func (r *OwnerRepository) Update(ctx context.Context, o *identity.Owner) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE owners
		SET email = $2, name = $3, password_hash = $4, is_admin = $5, updated_at = $6
		WHERE id = $1
	`, o.ID, o.Email, o.Name, o.PasswordHash, o.IsAdmin, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update owner: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrOwnerNotFound
	}
	return nil
}

func (r *OwnerRepository) UpdateLockout(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE owners SET failed_attempts = $2, locked_until = $3 WHERE id = $1
	`, id, failedAttempts, lockedUntil)
	if err != nil {
		return fmt.Errorf("failed to update lockout: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrOwnerNotFound
	}
	return nil
}

func (r *OwnerRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE owners SET password_hash = $2, updated_at = $3 WHERE id = $1
	`, id, passwordHash, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrOwnerNotFound
	}
	return nil
}

func scanOwner(row pgx.Row) (*identity.Owner, error) {
	var o identity.Owner
	err := row.Scan(&o.ID, &o.Email, &o.Name, &o.PasswordHash, &o.IsAdmin, &o.FailedLoginAttempts, &o.LockedUntil, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, identity.ErrOwnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan owner: %w", err)
	}
	return &o, nil
}

// MemberCredentialRepository implements identity.MemberCredentialRepository.
type MemberCredentialRepository struct {
	db *DB
}

// NewMemberCredentialRepository creates a new member credential repository.
func NewMemberCredentialRepository(db *DB) *MemberCredentialRepository {
	return &MemberCredentialRepository{db: db}
}

func (r *MemberCredentialRepository) Set(ctx context.Context, c *identity.MemberCredential) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO member_credentials (member_id, email, password_hash, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (member_id) DO UPDATE
		SET email = EXCLUDED.email, password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at
	`, c.MemberID, c.Email, c.PasswordHash, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to set member credential: %w", err)
	}
	return nil
}

func (r *MemberCredentialRepository) GetByEmail(ctx context.Context, email string) (*identity.MemberCredential, error) {
	var c identity.MemberCredential
	err := r.db.pool.QueryRow(ctx, `
		SELECT member_id, email, password_hash, updated_at
		FROM member_credentials WHERE email = $1
	`, email).Scan(&c.MemberID, &c.Email, &c.PasswordHash, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, identity.ErrOwnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan member credential: %w", err)
	}
	return &c, nil
}
