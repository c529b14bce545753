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

// Package team manages the team members of a tenant. A member belongs to
// exactly one owner; moving a member between tenants is re-authorized
// against the destination tenant, the same way a create would be.
package team

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/crewdesk/crewdesk/internal/access"
	"github.com/crewdesk/crewdesk/internal/audit"
	"github.com/crewdesk/crewdesk/internal/entity"
	"github.com/crewdesk/crewdesk/internal/id"
)

// Actions checked against a team member's permission matrix.
const (
	ActionCreate = "create_team"
	ActionView   = "view_team"
	ActionUpdate = "update_team"
	ActionDelete = "delete_team"
)

// Service provides team member management.
type Service struct {
	store       entity.Store
	roles       access.RoleStore
	resolver    *access.Resolver
	filters     *access.FilterBuilder
	auditLogger audit.Logger
}

// NewService creates a new team service.
func NewService(store entity.Store, roles access.RoleStore, resolver *access.Resolver, filters *access.FilterBuilder, auditLogger audit.Logger) *Service {
	return &Service{
		store:       store,
		roles:       roles,
		resolver:    resolver,
		filters:     filters,
		auditLogger: auditLogger,
	}
}

// CreateInput is the payload for adding a team member.
type CreateInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	RoleID    string `json:"role"`
	ManagedBy string `json:"managed_by"`
}

// Validate implements request validation.
func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.ManagedBy, validation.Required),
	)
}

// Create adds a member to the tenant named by in.ManagedBy. The assigned
// role, if any, must belong to that same tenant.
func (s *Service) Create(ctx context.Context, p *access.Principal, in CreateInput) (*entity.TeamMember, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if err := s.resolver.AuthorizeCreate(ctx, p, ActionCreate, in.ManagedBy); err != nil {
		return nil, err
	}
	if err := s.checkRoleTenancy(ctx, in.RoleID, in.ManagedBy); err != nil {
		return nil, err
	}

	now := time.Now()
	m := &entity.TeamMember{
		ID:        id.NewUUIDv7(),
		ManagedBy: in.ManagedBy,
		RoleID:    in.RoleID,
		Status:    entity.MemberActive,
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateTeamMember(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create team member: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeMemberCreated,
		TenantID: m.ManagedBy,
		ActorID:  p.ID,
		Resource: m.ID,
		Metadata: map[string]any{"email": m.Email, "role": m.RoleID},
	})
	return m, nil
}

// UpdateInput carries the mutable member fields. Nil pointers mean "leave
// unchanged".
type UpdateInput struct {
	Name      *string              `json:"name,omitempty"`
	Email     *string              `json:"email,omitempty"`
	RoleID    *string              `json:"role,omitempty"`
	Status    *entity.MemberStatus `json:"status,omitempty"`
	ManagedBy *string              `json:"managed_by,omitempty"`
}

// Update mutates a member. Changing ManagedBy is a tenant move and is
// re-authorized against the destination, so an owner cannot pull a member
// out of another tenant into their own.
func (s *Service) Update(ctx context.Context, p *access.Principal, memberID string, in UpdateInput) (*entity.TeamMember, error) {
	if err := s.resolver.Authorize(ctx, p, ActionUpdate, access.Ref{Type: entity.TypeTeamMember, ID: memberID}); err != nil {
		return nil, err
	}

	m, err := s.store.GetTeamMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	if in.ManagedBy != nil && *in.ManagedBy != m.ManagedBy {
		if err := s.resolver.AuthorizeCreate(ctx, p, ActionCreate, *in.ManagedBy); err != nil {
			return nil, err
		}
		m.ManagedBy = *in.ManagedBy
		// A moved member keeps no role from the old tenant.
		if in.RoleID == nil {
			m.RoleID = ""
		}
	}
	if in.RoleID != nil && *in.RoleID != m.RoleID {
		if err := s.checkRoleTenancy(ctx, *in.RoleID, m.ManagedBy); err != nil {
			return nil, err
		}
		m.RoleID = *in.RoleID
	}
	if in.Name != nil {
		m.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if err := validation.Validate(email, validation.Required, is.Email); err != nil {
			return nil, err
		}
		m.Email = email
	}
	if in.Status != nil {
		switch *in.Status {
		case entity.MemberActive, entity.MemberInactive, entity.MemberBanned:
			m.Status = *in.Status
		default:
			return nil, validation.NewError("validation_status", "unknown member status")
		}
	}
	m.UpdatedAt = time.Now()

	if err := s.store.UpdateTeamMember(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to update team member: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeMemberUpdated,
		TenantID: m.ManagedBy,
		ActorID:  p.ID,
		Resource: m.ID,
	})
	return m, nil
}

// Delete removes a member from their tenant.
func (s *Service) Delete(ctx context.Context, p *access.Principal, memberID string) error {
	if err := s.resolver.Authorize(ctx, p, ActionDelete, access.Ref{Type: entity.TypeTeamMember, ID: memberID}); err != nil {
		return err
	}

	m, err := s.store.GetTeamMember(ctx, memberID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTeamMember(ctx, memberID); err != nil {
		return fmt.Errorf("failed to delete team member: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeMemberRemoved,
		TenantID: m.ManagedBy,
		ActorID:  p.ID,
		Resource: m.ID,
	})
	return nil
}

// Get returns a member if the principal may view them.
func (s *Service) Get(ctx context.Context, p *access.Principal, memberID string) (*entity.TeamMember, error) {
	if err := s.resolver.Authorize(ctx, p, ActionView, access.Ref{Type: entity.TypeTeamMember, ID: memberID}); err != nil {
		return nil, err
	}
	return s.store.GetTeamMember(ctx, memberID)
}

// List returns the members visible to the principal under the caller's
// filter.
func (s *Service) List(ctx context.Context, p *access.Principal, caller entity.Filter) ([]*entity.TeamMember, error) {
	f, err := s.filters.Build(ctx, p, entity.TypeTeamMember, caller)
	if err != nil {
		return nil, err
	}
	return s.store.ListTeamMembers(ctx, f)
}

// checkRoleTenancy rejects a role assignment crossing tenant lines. An empty
// role id is allowed; the access ladder denies such members with its own
// no-role reason at decision time.
func (s *Service) checkRoleTenancy(ctx context.Context, roleID, ownerID string) error {
	if roleID == "" {
		return nil
	}
	r, err := s.roles.GetRole(ctx, roleID)
	if errors.Is(err, access.ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to load role: %w", err)
	}
	if r.CreatedBy != ownerID {
		return access.Deny(access.ReasonOutOfScope, "role belongs to another tenant")
	}
	return nil
}
