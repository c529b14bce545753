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

// Package memory is an in-process store used by tests and local
// development. It implements the same repository contracts as the postgres
// store, including the not-found sentinel semantics the access layer
// depends on.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/crewdesk/crewdesk/internal/access"
	"github.com/crewdesk/crewdesk/internal/entity"
	"github.com/crewdesk/crewdesk/internal/identity"
)

// Store keeps every record in maps guarded by one mutex. Values are copied
// on the way in and out so callers cannot mutate shared state.
type Store struct {
	mu sync.RWMutex

	clients     map[string]*entity.Client
	projects    map[string]*entity.Project
	invoices    map[string]*entity.Invoice
	payments    map[string]*entity.Payment
	milestones  map[string]*entity.Milestone
	services    map[string]*entity.Service
	leads       map[string]*entity.Lead
	members     map[string]*entity.TeamMember
	collabs     map[string]*entity.Collaborator
	rateCards   map[string]*entity.RateCard
	profiles    map[string]*entity.PublicProfile
	roles       map[string]*access.Role
	owners      map[string]*identity.Owner
	memberCreds map[string]*identity.MemberCredential
}

// New creates an empty store.
func New() *Store {
	return &Store{
		clients:     map[string]*entity.Client{},
		projects:    map[string]*entity.Project{},
		invoices:    map[string]*entity.Invoice{},
		payments:    map[string]*entity.Payment{},
		milestones:  map[string]*entity.Milestone{},
		services:    map[string]*entity.Service{},
		leads:       map[string]*entity.Lead{},
		members:     map[string]*entity.TeamMember{},
		collabs:     map[string]*entity.Collaborator{},
		rateCards:   map[string]*entity.RateCard{},
		profiles:    map[string]*entity.PublicProfile{},
		roles:       map[string]*access.Role{},
		owners:      map[string]*identity.Owner{},
		memberCreds: map[string]*identity.MemberCredential{},
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, access.ErrNotFound)
}

// --- entity.Reader ---

func (s *Store) GetClient(ctx context.Context, id string) (*entity.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, notFound("client", id)
	}
	cp := *c
	return &cp, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*entity.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, notFound("project", id)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetInvoice(ctx context.Context, id string) (*entity.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, notFound("invoice", id)
	}
	cp := *inv
	return &cp, nil
}

func (s *Store) GetPayment(ctx context.Context, id string) (*entity.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, notFound("payment", id)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetMilestone(ctx context.Context, id string) (*entity.Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.milestones[id]
	if !ok {
		return nil, notFound("milestone", id)
	}
	cp := *m
	return &cp, nil
}

func (s *Store) GetService(ctx context.Context, id string) (*entity.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[id]
	if !ok {
		return nil, notFound("service", id)
	}
	cp := *svc
	return &cp, nil
}

func (s *Store) GetLead(ctx context.Context, id string) (*entity.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.leads[id]
	if !ok {
		return nil, notFound("lead", id)
	}
	cp := *l
	return &cp, nil
}

func (s *Store) GetTeamMember(ctx context.Context, id string) (*entity.TeamMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	if !ok {
		return nil, notFound("team member", id)
	}
	cp := *m
	return &cp, nil
}

func (s *Store) GetCollaborator(ctx context.Context, id string) (*entity.Collaborator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collabs[id]
	if !ok {
		return nil, notFound("collaborator", id)
	}
	cp := *c
	return &cp, nil
}

func (s *Store) GetRateCard(ctx context.Context, id string) (*entity.RateCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rc, ok := s.rateCards[id]
	if !ok {
		return nil, notFound("rate card", id)
	}
	cp := *rc
	return &cp, nil
}

func (s *Store) GetPublicProfile(ctx context.Context, id string) (*entity.PublicProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, notFound("public profile", id)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) FindProjectsByDeliverable(ctx context.Context, milestoneID string) ([]*entity.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.Project
	for _, p := range s.projects {
		if slices.Contains(p.Deliverables, milestoneID) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) FindInvoicesByMilestone(ctx context.Context, milestoneID string) ([]*entity.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.Invoice
	for _, inv := range s.invoices {
		if slices.Contains(inv.Milestones, milestoneID) {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) ListClientIDs(ctx context.Context, ownerID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, c := range s.clients {
		if c.AddedBy == ownerID {
			out = append(out, c.ID)
		}
	}
	return out, nil
}

// --- entity.Lister ---

func inScope(f entity.Filter, value string) bool {
	if f.TenantField == "" {
		return true
	}
	return slices.Contains(f.TenantIDs, value)
}

func (s *Store) ListClients(ctx context.Context, f entity.Filter) ([]*entity.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.Client
	for _, c := range s.clients {
		if !inScope(f, c.AddedBy) {
			continue
		}
		if v, ok := f.Conditions["user_id"]; ok && c.UserID != v {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) ListProjects(ctx context.Context, f entity.Filter) ([]*entity.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.Project
	for _, p := range s.projects {
		if !inScope(f, p.Client) {
			continue
		}
		if v, ok := f.Conditions["client"]; ok && p.Client != v {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) ListInvoices(ctx context.Context, f entity.Filter) ([]*entity.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.Invoice
	for _, inv := range s.invoices {
		if !inScope(f, inv.CreatedBy) {
			continue
		}
		if v, ok := f.Conditions["client"]; ok && inv.Client != v {
			continue
		}
		if v, ok := f.Conditions["payment_status"]; ok && inv.PaymentStatus != v {
			continue
		}
		cp := *inv
		out = append(out, &cp)
	}
	return out, nil
}

// ListLeads interprets the synthetic "tenant" scope field through the same
// derivation the ownership table uses: the assigned member's tenant, or the
// owner of any service the lead is interested in.
func (s *Store) ListLeads(ctx context.Context, f entity.Filter) ([]*entity.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.Lead
	for _, l := range s.leads {
		if f.TenantField != "" && !s.leadInTenantsLocked(l, f.TenantIDs) {
			continue
		}
		if v, ok := f.Conditions["assigned_to"]; ok && l.AssignedTo != v {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) leadInTenantsLocked(l *entity.Lead, tenantIDs []string) bool {
	if l.AssignedTo != "" {
		if m, ok := s.members[l.AssignedTo]; ok && slices.Contains(tenantIDs, m.ManagedBy) {
			return true
		}
	}
	for _, svcID := range l.LookingFor {
		if svc, ok := s.services[svcID]; ok && slices.Contains(tenantIDs, svc.UserID) {
			return true
		}
	}
	return false
}

func (s *Store) ListTeamMembers(ctx context.Context, f entity.Filter) ([]*entity.TeamMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.TeamMember
	for _, m := range s.members {
		if !inScope(f, m.ManagedBy) {
			continue
		}
		if v, ok := f.Conditions["status"]; ok && string(m.Status) != v {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

// --- entity.Writer ---

func (s *Store) CreateClient(ctx context.Context, c *entity.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.clients[c.ID] = &cp
	return nil
}

func (s *Store) CreateProject(ctx context.Context, p *entity.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *Store) CreateInvoice(ctx context.Context, inv *entity.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *inv
	s.invoices[inv.ID] = &cp
	return nil
}

func (s *Store) UpdateInvoice(ctx context.Context, inv *entity.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[inv.ID]; !ok {
		return notFound("invoice", inv.ID)
	}
	cp := *inv
	s.invoices[inv.ID] = &cp
	return nil
}

func (s *Store) CreatePayment(ctx context.Context, p *entity.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.payments[p.ID] = &cp
	return nil
}

func (s *Store) CreateMilestone(ctx context.Context, m *entity.Milestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.milestones[m.ID] = &cp
	return nil
}

func (s *Store) UpdateMilestone(ctx context.Context, m *entity.Milestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.milestones[m.ID]; !ok {
		return notFound("milestone", m.ID)
	}
	cp := *m
	s.milestones[m.ID] = &cp
	return nil
}

func (s *Store) CreateTeamMember(ctx context.Context, m *entity.TeamMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.members[m.ID] = &cp
	return nil
}

func (s *Store) UpdateTeamMember(ctx context.Context, m *entity.TeamMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[m.ID]; !ok {
		return notFound("team member", m.ID)
	}
	cp := *m
	s.members[m.ID] = &cp
	return nil
}

func (s *Store) DeleteTeamMember(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; !ok {
		return notFound("team member", id)
	}
	delete(s.members, id)
	return nil
}

// PutService seeds a service record. Services are read-only through the
// access core, so this is a test helper, not part of entity.Writer.
func (s *Store) PutService(svc *entity.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *svc
	s.services[svc.ID] = &cp
}

// PutLead seeds a lead record.
func (s *Store) PutLead(l *entity.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.leads[l.ID] = &cp
}

// --- role.Repository / access.RoleStore ---

func (s *Store) Create(ctx context.Context, r *access.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.roles[r.ID] = &cp
	return nil
}

func (s *Store) GetRole(ctx context.Context, id string) (*access.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[id]
	if !ok {
		return nil, notFound("role", id)
	}
	cp := *r
	return &cp, nil
}

func (s *Store) GetByName(ctx context.Context, ownerID, name string) (*access.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.roles {
		if r.CreatedBy == ownerID && r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, notFound("role", name)
}

func (s *Store) Update(ctx context.Context, r *access.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[r.ID]; !ok {
		return notFound("role", r.ID)
	}
	cp := *r
	s.roles[r.ID] = &cp
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[id]; !ok {
		return notFound("role", id)
	}
	delete(s.roles, id)
	return nil
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*access.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*access.Role
	for _, r := range s.roles {
		if r.CreatedBy == ownerID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- identity repositories ---

// Owners returns the owner repository view of the store.
func (s *Store) Owners() identity.OwnerRepository { return (*ownerRepo)(s) }

// MemberCredentials returns the member credential repository view.
func (s *Store) MemberCredentials() identity.MemberCredentialRepository { return (*credRepo)(s) }

type ownerRepo Store

func (r *ownerRepo) Create(ctx context.Context, o *identity.Owner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.owners[o.ID] = &cp
	return nil
}

func (r *ownerRepo) GetByID(ctx context.Context, id string) (*identity.Owner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.owners[id]
	if !ok {
		return nil, identity.ErrOwnerNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *ownerRepo) GetByEmail(ctx context.Context, email string) (*identity.Owner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.owners {
		if o.Email == email {
			cp := *o
			return &cp, nil
		}
	}
	return nil, identity.ErrOwnerNotFound
}

func (r *ownerRepo) Update(ctx context.Context, o *identity.Owner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owners[o.ID]; !ok {
		return identity.ErrOwnerNotFound
	}
	cp := *o
	r.owners[o.ID] = &cp
	return nil
}

func (r *ownerRepo) UpdateLockout(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.owners[id]
	if !ok {
		return identity.ErrOwnerNotFound
	}
	o.FailedLoginAttempts = failedAttempts
	o.LockedUntil = lockedUntil
	return nil
}

func (r *ownerRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.owners[id]
	if !ok {
		return identity.ErrOwnerNotFound
	}
	o.PasswordHash = passwordHash
	return nil
}

type credRepo Store

func (r *credRepo) Set(ctx context.Context, c *identity.MemberCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.memberCreds[c.Email] = &cp
	return nil
}

func (r *credRepo) GetByEmail(ctx context.Context, email string) (*identity.MemberCredential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.memberCreds[email]
	if !ok {
		return nil, identity.ErrOwnerNotFound
	}
	cp := *c
	return &cp, nil
}
