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

// Package access is the tenant-scoped authorization core: one decision
// engine every controller calls instead of re-deriving "who may do what to
// which resource" inline. Decisions are pure reads; nothing here mutates
// state or caches across requests.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/crewdesk/crewdesk/internal/entity"
)

// Ref identifies an existing resource to authorize against.
type Ref struct {
	Type entity.Type
	ID   string
}

func (r Ref) String() string { return fmt.Sprintf("%s/%s", r.Type, r.ID) }

// Resolver composes a principal, a required action key, and a target's
// resolved tenant set into an allow/deny decision.
//
// Outcomes are distinguishable by error type: nil is allow, *DeniedError is
// an explicit policy rejection (403-class), and ErrNotFound means the target
// or a link in its ownership chain is missing (404-class). The two are never
// folded into each other.
type Resolver struct {
	ownership *OwnershipResolver
	roles     RoleStore
}

// NewResolver creates the decision engine.
func NewResolver(ownership *OwnershipResolver, roles RoleStore) *Resolver {
	return &Resolver{ownership: ownership, roles: roles}
}

// Ownership exposes the underlying chain resolver.
func (r *Resolver) Ownership() *OwnershipResolver { return r.ownership }

// Authorize decides whether principal may perform action on the resource
// identified by ref.
func (r *Resolver) Authorize(ctx context.Context, p *Principal, action string, ref Ref) error {
	return r.authorize(ctx, p, ref, func(m PermissionMatrix) bool {
		return m.Has(action)
	}, action)
}

// AuthorizeAny is Authorize for call sites that accept any one of a set of
// action keys.
func (r *Resolver) AuthorizeAny(ctx context.Context, p *Principal, actions []string, ref Ref) error {
	return r.authorize(ctx, p, ref, func(m PermissionMatrix) bool {
		return m.HasAny(actions...)
	}, fmt.Sprintf("any of %v", actions))
}

func (r *Resolver) authorize(ctx context.Context, p *Principal, ref Ref, permitted func(PermissionMatrix) bool, label string) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if p.IsAdmin() {
		return nil
	}

	if p.Kind == KindOwner {
		set, err := r.ownership.ResolveTenantIDs(ctx, ref.Type, ref.ID)
		if err != nil {
			return err
		}
		if set.Contains(p.ID) {
			// Owners implicitly hold every permission inside their own
			// tenant; no matrix lookup.
			return nil
		}
		return Deny(ReasonOutOfScope, ref.String())
	}

	// Team member: status, role, permission, then scope. The order matters
	// for the reason codes callers assert on.
	if p.Status != StatusActive {
		return Deny(ReasonInactive, string(p.Status))
	}
	if p.RoleID == "" {
		return Deny(ReasonNoRole, "no role assigned")
	}
	role, err := r.roles.GetRole(ctx, p.RoleID)
	if errors.Is(err, ErrNotFound) {
		return Deny(ReasonNoRole, "assigned role does not exist")
	}
	if err != nil {
		return err
	}
	if !permitted(role.Permissions) {
		return Deny(ReasonMissingPermission, label)
	}

	set, err := r.ownership.ResolveTenantIDs(ctx, ref.Type, ref.ID)
	if err != nil {
		return err
	}
	if !set.Contains(p.ManagedBy) {
		return Deny(ReasonOutOfScope, ref.String())
	}
	return nil
}

// AuthorizeCreate gates create operations, where no resource exists yet and
// the target is the owner field declared in the request payload. Non-admins
// may only declare their own scope anchor; a mismatch is rejected, never
// silently corrected.
func (r *Resolver) AuthorizeCreate(ctx context.Context, p *Principal, action, declaredOwner string) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if p.IsAdmin() {
		return nil
	}

	if p.Kind == KindOwner {
		if declaredOwner != p.ID {
			return Deny(ReasonOwnerMismatch, "declared owner is not the authenticated owner")
		}
		return nil
	}

	if p.Status != StatusActive {
		return Deny(ReasonInactive, string(p.Status))
	}
	if p.RoleID == "" {
		return Deny(ReasonNoRole, "no role assigned")
	}
	role, err := r.roles.GetRole(ctx, p.RoleID)
	if errors.Is(err, ErrNotFound) {
		return Deny(ReasonNoRole, "assigned role does not exist")
	}
	if err != nil {
		return err
	}
	if !role.Permissions.Has(action) {
		return Deny(ReasonMissingPermission, action)
	}
	if declaredOwner != p.ManagedBy {
		return Deny(ReasonOwnerMismatch, "declared owner is outside the member's tenant")
	}
	return nil
}

// AuthorizeMove gates updates that rewrite a foreign key encoding a scope
// boundary (an invoice's client, a milestone's attached invoice, a team
// member's managing owner). The existing resource AND the new reference must
// both be in scope; moving a resource across tenants is denied even when the
// original was accessible.
func (r *Resolver) AuthorizeMove(ctx context.Context, p *Principal, action string, ref, newTarget Ref) error {
	if err := r.Authorize(ctx, p, action, ref); err != nil {
		return err
	}
	return r.Authorize(ctx, p, action, newTarget)
}
