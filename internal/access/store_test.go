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

package access_test

import (
	"context"
	"fmt"

	"github.com/crewdesk/crewdesk/internal/access"
	"github.com/crewdesk/crewdesk/internal/entity"
)

// fakeStore implements entity.Reader over plain maps. Counts lookups per
// entity kind so tests can assert that traversals stay bounded.
type fakeStore struct {
	clients    map[string]*entity.Client
	projects   map[string]*entity.Project
	invoices   map[string]*entity.Invoice
	payments   map[string]*entity.Payment
	milestones map[string]*entity.Milestone
	services   map[string]*entity.Service
	leads      map[string]*entity.Lead
	members    map[string]*entity.TeamMember
	collabs    map[string]*entity.Collaborator
	rateCards  map[string]*entity.RateCard
	profiles   map[string]*entity.PublicProfile

	calls map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clients:    map[string]*entity.Client{},
		projects:   map[string]*entity.Project{},
		invoices:   map[string]*entity.Invoice{},
		payments:   map[string]*entity.Payment{},
		milestones: map[string]*entity.Milestone{},
		services:   map[string]*entity.Service{},
		leads:      map[string]*entity.Lead{},
		members:    map[string]*entity.TeamMember{},
		collabs:    map[string]*entity.Collaborator{},
		rateCards:  map[string]*entity.RateCard{},
		profiles:   map[string]*entity.PublicProfile{},
		calls:      map[string]int{},
	}
}

func (s *fakeStore) count(kind string) { s.calls[kind]++ }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, access.ErrNotFound)
}

func (s *fakeStore) GetClient(_ context.Context, id string) (*entity.Client, error) {
	s.count("client")
	if c, ok := s.clients[id]; ok {
		return c, nil
	}
	return nil, notFound("client", id)
}

func (s *fakeStore) GetProject(_ context.Context, id string) (*entity.Project, error) {
	s.count("project")
	if p, ok := s.projects[id]; ok {
		return p, nil
	}
	return nil, notFound("project", id)
}

func (s *fakeStore) GetInvoice(_ context.Context, id string) (*entity.Invoice, error) {
	s.count("invoice")
	if inv, ok := s.invoices[id]; ok {
		return inv, nil
	}
	return nil, notFound("invoice", id)
}

func (s *fakeStore) GetPayment(_ context.Context, id string) (*entity.Payment, error) {
	s.count("payment")
	if p, ok := s.payments[id]; ok {
		return p, nil
	}
	return nil, notFound("payment", id)
}

func (s *fakeStore) GetMilestone(_ context.Context, id string) (*entity.Milestone, error) {
	s.count("milestone")
	if m, ok := s.milestones[id]; ok {
		return m, nil
	}
	return nil, notFound("milestone", id)
}

func (s *fakeStore) GetService(_ context.Context, id string) (*entity.Service, error) {
	s.count("service")
	if svc, ok := s.services[id]; ok {
		return svc, nil
	}
	return nil, notFound("service", id)
}

func (s *fakeStore) GetLead(_ context.Context, id string) (*entity.Lead, error) {
	s.count("lead")
	if l, ok := s.leads[id]; ok {
		return l, nil
	}
	return nil, notFound("lead", id)
}

func (s *fakeStore) GetTeamMember(_ context.Context, id string) (*entity.TeamMember, error) {
	s.count("team_member")
	if m, ok := s.members[id]; ok {
		return m, nil
	}
	return nil, notFound("team_member", id)
}

func (s *fakeStore) GetCollaborator(_ context.Context, id string) (*entity.Collaborator, error) {
	s.count("collaborator")
	if c, ok := s.collabs[id]; ok {
		return c, nil
	}
	return nil, notFound("collaborator", id)
}

func (s *fakeStore) GetRateCard(_ context.Context, id string) (*entity.RateCard, error) {
	s.count("rate_card")
	if rc, ok := s.rateCards[id]; ok {
		return rc, nil
	}
	return nil, notFound("rate_card", id)
}

func (s *fakeStore) GetPublicProfile(_ context.Context, id string) (*entity.PublicProfile, error) {
	s.count("public_profile")
	if p, ok := s.profiles[id]; ok {
		return p, nil
	}
	return nil, notFound("public_profile", id)
}

func (s *fakeStore) FindProjectsByDeliverable(_ context.Context, milestoneID string) ([]*entity.Project, error) {
	s.count("find_projects")
	var out []*entity.Project
	for _, p := range s.projects {
		for _, d := range p.Deliverables {
			if d == milestoneID {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (s *fakeStore) FindInvoicesByMilestone(_ context.Context, milestoneID string) ([]*entity.Invoice, error) {
	s.count("find_invoices")
	var out []*entity.Invoice
	for _, inv := range s.invoices {
		for _, m := range inv.Milestones {
			if m == milestoneID {
				out = append(out, inv)
			}
		}
	}
	return out, nil
}

func (s *fakeStore) ListClientIDs(_ context.Context, ownerID string) ([]string, error) {
	s.count("list_client_ids")
	var out []string
	for id, c := range s.clients {
		if c.AddedBy == ownerID {
			out = append(out, id)
		}
	}
	return out, nil
}

// fakeRoles implements access.RoleStore.
type fakeRoles struct {
	roles map[string]*access.Role
}

func (f *fakeRoles) GetRole(_ context.Context, id string) (*access.Role, error) {
	if r, ok := f.roles[id]; ok {
		return r, nil
	}
	return nil, notFound("role", id)
}
