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

package entity

import "context"

// Filter is the predicate a list query runs under. TenantField/TenantIDs is
// the scope narrowing computed by the access layer; Conditions are the
// caller's own equality filters. An empty TenantField means no narrowing
// (platform admin).
type Filter struct {
	TenantField string
	TenantIDs   []string
	Conditions  map[string]string
}

// WithCondition returns a copy of the filter with one more equality condition.
func (f Filter) WithCondition(field, value string) Filter {
	out := f
	out.Conditions = make(map[string]string, len(f.Conditions)+1)
	for k, v := range f.Conditions {
		out.Conditions[k] = v
	}
	out.Conditions[field] = value
	return out
}

// Reader is the read surface the ownership resolver and filter builder
// traverse. Implementations return access-layer ErrNotFound (wrapped or
// direct) for missing records; the resolver depends on that distinction.
type Reader interface {
	GetClient(ctx context.Context, id string) (*Client, error)
	GetProject(ctx context.Context, id string) (*Project, error)
	GetInvoice(ctx context.Context, id string) (*Invoice, error)
	GetPayment(ctx context.Context, id string) (*Payment, error)
	GetMilestone(ctx context.Context, id string) (*Milestone, error)
	GetService(ctx context.Context, id string) (*Service, error)
	GetLead(ctx context.Context, id string) (*Lead, error)
	GetTeamMember(ctx context.Context, id string) (*TeamMember, error)
	GetCollaborator(ctx context.Context, id string) (*Collaborator, error)
	GetRateCard(ctx context.Context, id string) (*RateCard, error)
	GetPublicProfile(ctx context.Context, id string) (*PublicProfile, error)

	// Membership searches for the entities with no direct owner field.
	// Linear in tenant-scale data, consulted only by the documented
	// milestone fallbacks.
	FindProjectsByDeliverable(ctx context.Context, milestoneID string) ([]*Project, error)
	FindInvoicesByMilestone(ctx context.Context, milestoneID string) ([]*Invoice, error)

	// ListClientIDs pre-resolves the one-hop join used to scope project
	// queries ("projects whose client is owned by X").
	ListClientIDs(ctx context.Context, ownerID string) ([]string, error)
}

// Lister serves scoped list queries for the entity types exposed over HTTP.
type Lister interface {
	ListClients(ctx context.Context, f Filter) ([]*Client, error)
	ListProjects(ctx context.Context, f Filter) ([]*Project, error)
	ListInvoices(ctx context.Context, f Filter) ([]*Invoice, error)
	ListLeads(ctx context.Context, f Filter) ([]*Lead, error)
	ListTeamMembers(ctx context.Context, f Filter) ([]*TeamMember, error)
}

// Writer is the mutation surface the handlers exercise after authorization.
type Writer interface {
	CreateClient(ctx context.Context, c *Client) error
	CreateProject(ctx context.Context, p *Project) error
	CreateInvoice(ctx context.Context, inv *Invoice) error
	UpdateInvoice(ctx context.Context, inv *Invoice) error
	CreatePayment(ctx context.Context, p *Payment) error
	CreateMilestone(ctx context.Context, m *Milestone) error
	UpdateMilestone(ctx context.Context, m *Milestone) error
	CreateTeamMember(ctx context.Context, m *TeamMember) error
	UpdateTeamMember(ctx context.Context, m *TeamMember) error
	DeleteTeamMember(ctx context.Context, id string) error
}

// Store is the full entity store contract.
type Store interface {
	Reader
	Lister
	Writer
}
