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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/crewdesk/crewdesk/internal/access"
)

// RoleRepository implements role.Repository on postgres. Permissions are
// stored as JSONB in whatever shape the caller supplied; the matrix code
// handles both grouped and flat layouts.
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a new role repository.
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) Create(ctx context.Context, role *access.Role) error {
	perms, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}

	_, err = r.db.pool.Exec(ctx, `
		INSERT INTO roles (id, name, permissions, created_by, is_system_role, locked, source_template, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, role.ID, role.Name, perms, role.CreatedBy, role.IsSystem, role.Locked, role.SourceTemplate, role.CreatedAt, role.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

func (r *RoleRepository) GetRole(ctx context.Context, id string) (*access.Role, error) {
	return r.scanOne(r.db.pool.QueryRow(ctx, `
		SELECT id, name, permissions, created_by, is_system_role, locked, source_template, created_at, updated_at
		FROM roles WHERE id = $1
	`, id), id)
}

func (r *RoleRepository) GetByName(ctx context.Context, ownerID, name string) (*access.Role, error) {
	return r.scanOne(r.db.pool.QueryRow(ctx, `
		SELECT id, name, permissions, created_by, is_system_role, locked, source_template, created_at, updated_at
		FROM roles WHERE created_by = $1 AND name = $2
	`, ownerID, name), name)
}

func (r *RoleRepository) Update(ctx context.Context, role *access.Role) error {
	perms, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}

	result, err := r.db.pool.Exec(ctx, `
		UPDATE roles
		SET name = $2, permissions = $3, is_system_role = $4, locked = $5, updated_at = $6
		WHERE id = $1
	`, role.ID, role.Name, perms, role.IsSystem, role.Locked, role.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("role %s: %w", role.ID, access.ErrNotFound)
	}
	return nil
}

func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("role %s: %w", id, access.ErrNotFound)
	}
	return nil
}

func (r *RoleRepository) ListByOwner(ctx context.Context, ownerID string) ([]*access.Role, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, permissions, created_by, is_system_role, locked, source_template, created_at, updated_at
		FROM roles WHERE created_by = $1
		ORDER BY created_at
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*access.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *RoleRepository) scanOne(row pgx.Row, key string) (*access.Role, error) {
	role, err := scanRole(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("role %s: %w", key, access.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return role, nil
}

func scanRole(row pgx.Row) (*access.Role, error) {
	var role access.Role
	var perms []byte
	if err := row.Scan(&role.ID, &role.Name, &perms, &role.CreatedBy, &role.IsSystem, &role.Locked, &role.SourceTemplate, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return nil, err
	}
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &role.Permissions); err != nil {
			return nil, fmt.Errorf("failed to decode permissions: %w", err)
		}
	}
	return &role, nil
}
