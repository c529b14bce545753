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

// Package entity holds the domain records the access-control core reasons
// about. These are deliberately thin: only the identity and reference fields
// the ownership chains traverse, plus whatever a handler needs to echo back.
// Business behavior on these records lives outside this core.
package entity

import "time"

// Type identifies an entity kind in the ownership-edge table.
type Type string

const (
	TypeClient        Type = "client"
	TypeProject       Type = "project"
	TypeInvoice       Type = "invoice"
	TypePayment       Type = "payment"
	TypeMilestone     Type = "milestone"
	TypeService       Type = "service"
	TypeLead          Type = "lead"
	TypeTeamMember    Type = "team_member"
	TypeCollaborator  Type = "collaborator"
	TypeRateCard      Type = "rate_card"
	TypePublicProfile Type = "public_profile"
)

// Client is a customer record managed by an owner account.
// AddedBy is the owning tenant. UserID is the client's own login account,
// which is a different principal entirely and is never used for tenant
// scoping of management operations.
type Client struct {
	ID        string    `json:"id"`
	AddedBy   string    `json:"added_by"`
	UserID    string    `json:"user_id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project belongs to a client; its tenant is the client's added_by.
type Project struct {
	ID           string    `json:"id"`
	Client       string    `json:"client"`
	Name         string    `json:"name"`
	Deliverables []string  `json:"deliverables,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Invoice carries both a direct creator reference and a client reference;
// either resolves it into a tenant (any-of).
type Invoice struct {
	ID            string    `json:"id"`
	CreatedBy     string    `json:"created_by"`
	Client        string    `json:"client,omitempty"`
	Milestones    []string  `json:"milestones,omitempty"`
	Amount        int64     `json:"amount"`
	PaymentStatus string    `json:"payment_status,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Payment is scoped through the invoice it applies to.
type Payment struct {
	ID        string    `json:"id"`
	InvoiceID string    `json:"invoice_id"`
	Amount    int64     `json:"amount"`
	Method    string    `json:"method,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// InvoiceRef links a milestone to an invoice.
type InvoiceRef struct {
	InvoiceID string `json:"invoice_id"`
}

// Upload records a file attached to a milestone. UploadedBy may be an owner
// or a team member id.
type Upload struct {
	UploadedBy string `json:"uploaded_by"`
	FileName   string `json:"file_name,omitempty"`
}

// Milestone has no owner field of its own. Tenancy is derived from the
// invoices and projects that reference it, with uploader identity as a
// last-resort signal.
type Milestone struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	InvoiceAttached []InvoiceRef `json:"invoice_attached,omitempty"`
	Uploads         []Upload     `json:"uploads,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Service is an offering published by an owner.
type Service struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Lead may resolve to several tenants: the tenant of the team member it is
// assigned to and the tenants of every service it is interested in.
type Lead struct {
	ID         string    `json:"id"`
	AssignedTo string    `json:"assigned_to,omitempty"`
	LookingFor []string  `json:"looking_for,omitempty"`
	Name       string    `json:"name"`
	Email      string    `json:"email,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// MemberStatus is the lifecycle state of a team member.
type MemberStatus string

const (
	MemberActive   MemberStatus = "active"
	MemberInactive MemberStatus = "inactive"
	MemberBanned   MemberStatus = "banned"
)

// TeamMember is a delegated principal scoped to exactly one owner.
// ManagedBy is fixed at creation; only platform admins may move a member
// between tenants.
type TeamMember struct {
	ID        string       `json:"id"`
	ManagedBy string       `json:"managed_by"`
	RoleID    string       `json:"role"`
	Status    MemberStatus `json:"status"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Collaborator is an external contact owned directly by a tenant.
type Collaborator struct {
	ID        string    `json:"id"`
	ManagedBy string    `json:"managed_by"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// RateCard is owned directly by a tenant.
type RateCard struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// PublicProfile is owned directly by a tenant.
type PublicProfile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Handle    string    `json:"handle"`
	CreatedAt time.Time `json:"created_at"`
}
