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

package access

import (
	"context"
	"errors"
	"time"
)

// Role is a named, tenant-owned bundle of permission grants.
type Role struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Permissions PermissionMatrix `json:"permissions"`
	CreatedBy   string           `json:"created_by"`
	IsSystem    bool             `json:"is_system_role"`
	Locked      bool             `json:"locked"`

	// SourceTemplate names the seeded template this role was cloned from,
	// if any.
	SourceTemplate string `json:"source_template,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoleStore loads roles for permission checks.
type RoleStore interface {
	GetRole(ctx context.Context, id string) (*Role, error)
}

// Role management action keys.
const (
	ActionViewRole   = "view_role"
	ActionCreateRole = "create_role"
	ActionUpdateRole = "update_role"
	ActionDeleteRole = "delete_role"
)

// RoleChanges describes the privileged flags a mutation requests. Only
// admins may set either; the zero value is always safe.
type RoleChanges struct {
	SetSystem bool
	SetLocked bool
}

// CanMutateRole decides whether principal may perform action
// (create_role/update_role/delete_role) on target. principalRole is the
// caller's own role matrix when the caller is a team member; it is ignored
// for admins and owners. target is nil for create.
//
// The ladder is fixed: admin override, then lock, then system-role guard,
// then privileged-flag guard, then owner-or-permitted within the target's
// tenant. Pure; the caller loads whatever state it needs first.
func CanMutateRole(p *Principal, principalRole *Role, target *Role, action string, changes RoleChanges) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if p.IsAdmin() {
		return nil
	}

	if target != nil && target.Locked {
		return Deny(ReasonLocked, "role is locked")
	}
	if target != nil && target.IsSystem {
		return Deny(ReasonSystemRole, "system roles are admin-managed")
	}
	if changes.SetSystem || changes.SetLocked {
		return Deny(ReasonSystemRole, "only admins may set system or locked flags")
	}

	ownerID := ""
	if target != nil {
		ownerID = target.CreatedBy
	}

	switch p.Kind {
	case KindOwner:
		if ownerID != "" && ownerID != p.ID {
			return Deny(ReasonOutOfScope, "role belongs to another tenant")
		}
		return nil
	case KindTeamMember:
		if p.Status != StatusActive {
			return Deny(ReasonInactive, "member is not active")
		}
		if principalRole == nil {
			return Deny(ReasonNoRole, "member has no role")
		}
		if !principalRole.Permissions.Has(action) {
			return Deny(ReasonMissingPermission, action)
		}
		if ownerID != "" && ownerID != p.ManagedBy {
			return Deny(ReasonOutOfScope, "role belongs to another tenant")
		}
		return nil
	default:
		return Deny(ReasonMissingPermission, "unknown principal kind")
	}
}

// AuthorizeRoleMutation loads the caller's role (team members only) and
// applies CanMutateRole. Role-store lookup failures other than not-found
// propagate as-is.
func (r *Resolver) AuthorizeRoleMutation(ctx context.Context, p *Principal, target *Role, action string, changes RoleChanges) error {
	if p == nil {
		return ErrUnauthenticated
	}

	var principalRole *Role
	if p.Kind == KindTeamMember && p.RoleID != "" {
		role, err := r.roles.GetRole(ctx, p.RoleID)
		switch {
		case errors.Is(err, ErrNotFound):
			// CanMutateRole turns the nil role into NO_ROLE.
		case err != nil:
			return err
		default:
			principalRole = role
		}
	}

	return CanMutateRole(p, principalRole, target, action, changes)
}
