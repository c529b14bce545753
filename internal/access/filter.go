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
	"fmt"

	"github.com/crewdesk/crewdesk/internal/entity"
)

// scopeField describes how list queries for one entity type are narrowed to
// a tenant: which column carries the scope, whether the allowed values are
// the tenant id itself or a pre-resolved id set from a one-hop join, and the
// view permission a team member needs before any filter is built.
type scopeField struct {
	field      string
	viewAction string

	// resolveIDs, when set, maps the tenant id to the allowed values for
	// field (e.g. projects are scoped by client ids owned by the tenant).
	resolveIDs func(ctx context.Context, store entity.Reader, tenantID string) ([]string, error)
}

var scopeFields = map[entity.Type]scopeField{
	entity.TypeClient:     {field: "added_by", viewAction: "view_client"},
	entity.TypeInvoice:    {field: "created_by", viewAction: "view_invoice"},
	entity.TypeTeamMember: {field: "managed_by", viewAction: "view_team"},
	entity.TypeService:    {field: "user_id", viewAction: "view_service"},
	entity.TypeRateCard:   {field: "user_id", viewAction: "view_ratecard"},
	entity.TypeProject: {
		field:      "client",
		viewAction: "view_project",
		resolveIDs: func(ctx context.Context, store entity.Reader, tenantID string) ([]string, error) {
			return store.ListClientIDs(ctx, tenantID)
		},
	},
	// Leads carry no owner column; stores interpret the "tenant" predicate
	// through the same derivation the ownership table uses (assigned member's
	// managed_by, or the owner of a service the lead is interested in).
	entity.TypeLead: {field: "tenant", viewAction: "view_lead"},
}

// FilterBuilder turns a principal's scope into a list-query predicate
// instead of a single-resource check.
type FilterBuilder struct {
	store entity.Reader
	roles RoleStore
}

// NewFilterBuilder creates a filter builder over the given stores.
func NewFilterBuilder(store entity.Reader, roles RoleStore) *FilterBuilder {
	return &FilterBuilder{store: store, roles: roles}
}

// Build composes the caller's explicit filter with the principal's tenant
// scope for typ.
//
// Admins get the caller's filter untouched. Owners and team members get a
// tenant-membership predicate on the entity-appropriate field; team members
// must additionally hold the entity's view permission before any filter is
// built. A caller-supplied scoping condition that does not intersect the
// principal's scope is an explicit denial, not a silently empty result:
// "not permitted" must never masquerade as "nothing found".
func (b *FilterBuilder) Build(ctx context.Context, p *Principal, typ entity.Type, caller entity.Filter) (entity.Filter, error) {
	if p == nil {
		return entity.Filter{}, ErrUnauthenticated
	}
	if p.IsAdmin() {
		return caller, nil
	}

	sf, ok := scopeFields[typ]
	if !ok {
		return entity.Filter{}, fmt.Errorf("no scope field registered for entity type %q", typ)
	}

	if p.Kind == KindTeamMember {
		if p.Status != StatusActive {
			return entity.Filter{}, Deny(ReasonInactive, string(p.Status))
		}
		if p.RoleID == "" {
			return entity.Filter{}, Deny(ReasonNoRole, "no role assigned")
		}
		role, err := b.roles.GetRole(ctx, p.RoleID)
		if errors.Is(err, ErrNotFound) {
			return entity.Filter{}, Deny(ReasonNoRole, "assigned role does not exist")
		}
		if err != nil {
			return entity.Filter{}, err
		}
		if !role.Permissions.Has(sf.viewAction) {
			return entity.Filter{}, Deny(ReasonMissingPermission, sf.viewAction)
		}
	}

	tenantID := p.TenantID()
	allowed := []string{tenantID}
	if sf.resolveIDs != nil {
		ids, err := sf.resolveIDs(ctx, b.store, tenantID)
		if err != nil {
			return entity.Filter{}, err
		}
		allowed = ids
	}

	out := caller
	out.TenantField = sf.field
	out.TenantIDs = allowed

	// An explicit caller condition on the scope field either narrows within
	// the allowed set or is rejected outright.
	if want, ok := caller.Conditions[sf.field]; ok {
		if !contains(allowed, want) {
			return entity.Filter{}, Deny(ReasonOutOfScope, fmt.Sprintf("%s=%s", sf.field, want))
		}
		out.TenantIDs = []string{want}
		out.Conditions = make(map[string]string, len(caller.Conditions))
		for k, v := range caller.Conditions {
			if k != sf.field {
				out.Conditions[k] = v
			}
		}
	}

	return out, nil
}

func contains(ids []string, want string) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}
