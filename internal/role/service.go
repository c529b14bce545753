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

// Package role manages the lifecycle of tenant-owned roles. All mutation
// paths funnel through the access-layer ladder; roles are never regenerated
// outside Create/Update/Delete and the one-time seeding at registration.
package role

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/crewdesk/crewdesk/internal/access"
	"github.com/crewdesk/crewdesk/internal/audit"
	"github.com/crewdesk/crewdesk/internal/id"
)

// Service provides role management business logic.
type Service struct {
	repo        Repository
	resolver    *access.Resolver
	auditLogger audit.Logger
}

// NewService creates a new role service.
func NewService(repo Repository, resolver *access.Resolver, auditLogger audit.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, auditLogger: auditLogger}
}

// CreateInput is the payload for role creation.
type CreateInput struct {
	Name        string                  `json:"name"`
	Permissions access.PermissionMatrix `json:"permissions"`
	OwnerID     string                  `json:"created_by"`
	IsSystem    bool                    `json:"is_system_role"`
	Locked      bool                    `json:"locked"`
}

// Validate implements request validation.
func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&in.OwnerID, validation.Required),
	)
}

// Create creates a role owned by in.OwnerID on behalf of principal.
func (s *Service) Create(ctx context.Context, p *access.Principal, in CreateInput) (*access.Role, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if p == nil {
		return nil, access.ErrUnauthenticated
	}
	if (in.IsSystem || in.Locked) && !p.IsAdmin() {
		return nil, access.Deny(access.ReasonSystemRole, "only admins may set system or locked flags")
	}
	if err := s.resolver.AuthorizeCreate(ctx, p, access.ActionCreateRole, in.OwnerID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if err := s.checkNameFree(ctx, in.OwnerID, name, ""); err != nil {
		return nil, err
	}

	now := time.Now()
	r := &access.Role{
		ID:          id.NewUUIDv7(),
		Name:        name,
		Permissions: in.Permissions,
		CreatedBy:   in.OwnerID,
		IsSystem:    in.IsSystem,
		Locked:      in.Locked,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if r.Permissions == nil {
		r.Permissions = access.PermissionMatrix{}
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleCreated,
		TenantID: in.OwnerID,
		ActorID:  p.ID,
		Resource: r.ID,
		Metadata: map[string]any{"name": r.Name},
	})
	return r, nil
}

// UpdateInput carries the mutable role fields. Nil pointers mean "leave
// unchanged".
type UpdateInput struct {
	Name        *string                  `json:"name,omitempty"`
	Permissions *access.PermissionMatrix `json:"permissions,omitempty"`
	IsSystem    *bool                    `json:"is_system_role,omitempty"`
	Locked      *bool                    `json:"locked,omitempty"`
}

// Update mutates a role after re-validating the lock/system constraints.
func (s *Service) Update(ctx context.Context, p *access.Principal, roleID string, in UpdateInput) (*access.Role, error) {
	target, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}

	changes := access.RoleChanges{
		SetSystem: in.IsSystem != nil && *in.IsSystem && !target.IsSystem,
		SetLocked: in.Locked != nil && *in.Locked && !target.Locked,
	}
	if err := s.resolver.AuthorizeRoleMutation(ctx, p, target, access.ActionUpdateRole, changes); err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, validation.NewError("validation_required", "name cannot be blank")
		}
		if name != target.Name {
			if err := s.checkNameFree(ctx, target.CreatedBy, name, target.ID); err != nil {
				return nil, err
			}
			target.Name = name
		}
	}
	if in.Permissions != nil {
		target.Permissions = *in.Permissions
	}
	if in.IsSystem != nil {
		target.IsSystem = *in.IsSystem
	}
	if in.Locked != nil {
		target.Locked = *in.Locked
	}
	target.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, target); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleUpdated,
		TenantID: target.CreatedBy,
		ActorID:  p.ID,
		Resource: target.ID,
	})
	return target, nil
}

// Delete removes a role after the same ladder as Update.
func (s *Service) Delete(ctx context.Context, p *access.Principal, roleID string) error {
	target, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return err
	}

	if err := s.resolver.AuthorizeRoleMutation(ctx, p, target, access.ActionDeleteRole, access.RoleChanges{}); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, roleID); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleDeleted,
		TenantID: target.CreatedBy,
		ActorID:  p.ID,
		Resource: target.ID,
	})
	return nil
}

// authorizeRoleRead walks team members through the standard denial ladder
// before any role content is returned. Owners and admins read freely within
// their tenancy; members additionally need view_role on their own role.
func (s *Service) authorizeRoleRead(ctx context.Context, p *access.Principal) error {
	if p.Kind != access.KindTeamMember {
		return nil
	}
	if p.Status != access.StatusActive {
		return access.Deny(access.ReasonInactive, string(p.Status))
	}
	if p.RoleID == "" {
		return access.Deny(access.ReasonNoRole, "no role assigned")
	}
	r, err := s.repo.GetRole(ctx, p.RoleID)
	if err != nil {
		if errors.Is(err, access.ErrNotFound) {
			return access.Deny(access.ReasonNoRole, "assigned role does not exist")
		}
		return err
	}
	if !r.Permissions.Has(access.ActionViewRole) {
		return access.Deny(access.ReasonMissingPermission, access.ActionViewRole)
	}
	return nil
}

// Get returns a role if the principal may view it.
func (s *Service) Get(ctx context.Context, p *access.Principal, roleID string) (*access.Role, error) {
	if p == nil {
		return nil, access.ErrUnauthenticated
	}
	if err := s.authorizeRoleRead(ctx, p); err != nil {
		return nil, err
	}
	target, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if p.IsAdmin() || p.TenantID() == target.CreatedBy {
		return target, nil
	}
	return nil, access.Deny(access.ReasonOutOfScope, "role belongs to another tenant")
}

// List returns the roles of the principal's tenant (or, for admins, of the
// requested owner).
func (s *Service) List(ctx context.Context, p *access.Principal, ownerID string) ([]*access.Role, error) {
	if p == nil {
		return nil, access.ErrUnauthenticated
	}
	if err := s.authorizeRoleRead(ctx, p); err != nil {
		return nil, err
	}
	if !p.IsAdmin() {
		if ownerID == "" {
			ownerID = p.TenantID()
		}
		if ownerID != p.TenantID() {
			return nil, access.Deny(access.ReasonOutOfScope, "cannot list another tenant's roles")
		}
	}
	return s.repo.ListByOwner(ctx, ownerID)
}

// SeedDefaults creates the default role set for a freshly registered owner.
// Seeding is idempotent per name: an existing role of the same name is left
// alone rather than regenerated.
func (s *Service) SeedDefaults(ctx context.Context, ownerID string) error {
	now := time.Now()
	for _, tpl := range DefaultTemplates {
		_, err := s.repo.GetByName(ctx, ownerID, tpl.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, access.ErrNotFound) {
			return fmt.Errorf("failed to check seeded role %s: %w", tpl.Name, err)
		}

		r := &access.Role{
			ID:             id.NewUUIDv7(),
			Name:           tpl.Name,
			Permissions:    tpl.Permissions,
			CreatedBy:      ownerID,
			SourceTemplate: tpl.Name,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.repo.Create(ctx, r); err != nil {
			return fmt.Errorf("failed to seed role %s: %w", tpl.Name, err)
		}
	}
	return nil
}

// checkNameFree enforces per-tenant name uniqueness on the trimmed name as
// stored, case-sensitively.
func (s *Service) checkNameFree(ctx context.Context, ownerID, name, excludeID string) error {
	existing, err := s.repo.GetByName(ctx, ownerID, name)
	if errors.Is(err, access.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check role name: %w", err)
	}
	if existing.ID == excludeID {
		return nil
	}
	return access.Deny(access.ReasonDuplicateName, fmt.Sprintf("role %q already exists", name))
}
