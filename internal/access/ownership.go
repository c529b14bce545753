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
	"fmt"

	"github.com/crewdesk/crewdesk/internal/entity"
)

// TenantSet is the set of tenant ids a resource resolves to. Most entity
// types resolve to exactly one; milestones and leads may carry several
// candidates, in which case scope membership is any-of.
type TenantSet map[string]struct{}

// NewTenantSet builds a set from ids, skipping empties.
func NewTenantSet(ids ...string) TenantSet {
	s := make(TenantSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// Contains reports set membership.
func (s TenantSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts an id, ignoring empties.
func (s TenantSet) Add(id string) {
	if id != "" {
		s[id] = struct{}{}
	}
}

// IDs returns the member ids in no particular order.
func (s TenantSet) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

// ownershipEdge derives the owning tenant set for one entity type.
type ownershipEdge func(ctx context.Context, o *OwnershipResolver, id string) (TenantSet, error)

// OwnershipResolver walks the per-entity-type parent chains that anchor
// every resource to its tenant. The chains are fixed, not user-configurable;
// each entity type registers one edge in the table below.
type OwnershipResolver struct {
	store entity.Reader
	edges map[entity.Type]ownershipEdge
}

// NewOwnershipResolver creates a resolver over the given store.
func NewOwnershipResolver(store entity.Reader) *OwnershipResolver {
	o := &OwnershipResolver{store: store}
	o.edges = map[entity.Type]ownershipEdge{
		entity.TypeClient:        resolveClient,
		entity.TypeProject:       resolveProject,
		entity.TypeInvoice:       resolveInvoice,
		entity.TypePayment:       resolvePayment,
		entity.TypeMilestone:     resolveMilestone,
		entity.TypeService:       resolveService,
		entity.TypeLead:          resolveLead,
		entity.TypeTeamMember:    resolveTeamMember,
		entity.TypeCollaborator:  resolveCollaborator,
		entity.TypeRateCard:      resolveRateCard,
		entity.TypePublicProfile: resolvePublicProfile,
	}
	return o
}

// ResolveTenantIDs returns the non-empty set of tenant ids owning the
// entity, or ErrNotFound when the entity or a required link in its chain
// does not exist. An entity whose chain yields no candidate at all is also
// reported as ErrNotFound: a check against an empty set could never pass,
// and a broken chain is a 404-class condition, not a policy denial.
func (o *OwnershipResolver) ResolveTenantIDs(ctx context.Context, typ entity.Type, id string) (TenantSet, error) {
	edge, ok := o.edges[typ]
	if !ok {
		return nil, fmt.Errorf("no ownership edge registered for entity type %q", typ)
	}

	set, err := edge(ctx, o, id)
	if err != nil {
		return nil, err
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("ownership chain for %s %s is empty: %w", typ, id, ErrNotFound)
	}
	return set, nil
}

// ResolveClientLogin returns the client's own login account id. This is a
// different relation from tenancy: added_by is the agency owner who manages
// the record, user_id is the client's self-service login. Call sites must
// pick one explicitly; this resolver never scopes management operations by
// the login account.
func (o *OwnershipResolver) ResolveClientLogin(ctx context.Context, clientID string) (string, error) {
	c, err := o.store.GetClient(ctx, clientID)
	if err != nil {
		return "", err
	}
	return c.UserID, nil
}

// Client: direct field added_by.
func resolveClient(ctx context.Context, o *OwnershipResolver, id string) (TenantSet, error) {
	c, err := o.store.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewTenantSet(c.AddedBy), nil
}

// Project: one hop through its client.
func resolveProject(ctx context.Context, o *OwnershipResolver, id string) (TenantSet, error) {
	p, err := o.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := o.store.GetClient(ctx, p.Client)
	if err != nil {
		return nil, err
	}
	return NewTenantSet(c.AddedBy), nil
}

// Invoice: created_by plus the derived client owner, any-of.
func resolveInvoice(ctx context.Context, o *OwnershipResolver, id string) (TenantSet, error) {
	inv, err := o.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	set := NewTenantSet(inv.CreatedBy)
	if inv.Client != "" {
		c, err := o.store.GetClient(ctx, inv.Client)
		if err != nil {
			return nil, err
		}
		set.Add(c.AddedBy)
	}
	return set, nil
}

// Payment: one level of recursion through its invoice.
func resolvePayment(ctx context.Context, o *OwnershipResolver, id string) (TenantSet, error) {
	p, err := o.store.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	return resolveInvoice(ctx, o, p.InvoiceID)
}

// Milestone has no owner field. Union of (a) tenants of invoices attached to
// or referencing it and (b) tenants of projects listing it as a deliverable;
// uploader identity is the fallback when neither exists.
func resolveMilestone(ctx context.Context, o *OwnershipResolver, id string) (TenantSet, error) {
	m, err := o.store.GetMilestone(ctx, id)
	if err != nil {
		return nil, err
	}

	set := NewTenantSet()

	for _, ref := range m.InvoiceAttached {
		invSet, err := resolveInvoice(ctx, o, ref.InvoiceID)
		if err != nil {
			return nil, err
		}
		for _, t := range invSet.IDs() {
			set.Add(t)
		}
	}

	invoices, err := o.store.FindInvoicesByMilestone(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, inv := range invoices {
		invSet, err := resolveInvoice(ctx, o, inv.ID)
		if err != nil {
			return nil, err
		}
		for _, t := range invSet.IDs() {
			set.Add(t)
		}
	}

	projects, err := o.store.FindProjectsByDeliverable(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		c, err := o.store.GetClient(ctx, p.Client)
		if err != nil {
			return nil, err
		}
		set.Add(c.AddedBy)
	}

	if len(set) > 0 {
		return set, nil
	}

	// Weakest signal: whoever uploaded files to the milestone. An uploader
	// may be a team member (use their tenant) or an owner (the id itself).
	for _, up := range m.Uploads {
		member, err := o.store.GetTeamMember(ctx, up.UploadedBy)
		switch {
		case err == nil:
			set.Add(member.ManagedBy)
		case isNotFound(err):
			set.Add(up.UploadedBy)
		default:
			return nil, err
		}
	}
	return set, nil
}

// Service: direct field user_id.
func resolveService(ctx context.Context, o *OwnershipResolver, id string) (TenantSet, error) {
	s, err := o.store.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewTenantSet(s.UserID), nil
}

// Lead: union of the assigned member's tenant and the tenants of every
// service it is interested in.
func resolveLead(ctx context.Context, o *OwnershipResolver, id string) (TenantSet, error) {
	l, err := o.store.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}

	set := NewTenantSet()
	if l.AssignedTo != "" {
		member, err := o.store.GetTeamMember(ctx, l.AssignedTo)
		if err != nil {
			return nil, err
		}
		set.Add(member.ManagedBy)
	}
	for _, svcID := range l.LookingFor {
		svc, err := o.store.GetService(ctx, svcID)
		if err != nil {
			return nil, err
		}
		set.Add(svc.UserID)
	}
	return set, nil
}

// TeamMember: direct field managed_by.
func resolveTeamMember(ctx context.Context, o *OwnershipResolver, id string) (TenantSet, error) {
	m, err := o.store.GetTeamMember(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewTenantSet(m.ManagedBy), nil
}

func resolveCollaborator(ctx context.Context, o *OwnershipResolver, id string) (TenantSet, error) {
	c, err := o.store.GetCollaborator(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewTenantSet(c.ManagedBy), nil
}

func resolveRateCard(ctx context.Context, o *OwnershipResolver, id string) (TenantSet, error) {
	rc, err := o.store.GetRateCard(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewTenantSet(rc.UserID), nil
}

func resolvePublicProfile(ctx context.Context, o *OwnershipResolver, id string) (TenantSet, error) {
	p, err := o.store.GetPublicProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewTenantSet(p.UserID), nil
}
