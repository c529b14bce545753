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

// Kind identifies the type of principal making a request.
type Kind string

const (
	// KindAdmin is a platform operator. Every check short-circuits to allow.
	KindAdmin Kind = "admin"

	// KindOwner is a tenant root account. Owners implicitly hold every
	// permission on resources inside their own tenant and need no role.
	KindOwner Kind = "owner"

	// KindTeamMember is a delegated principal constrained by an assigned
	// role and scoped to the owner that manages it.
	KindTeamMember Kind = "team_member"
)

// Status is a team member's lifecycle state. Owners and admins are always
// treated as active.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusBanned   Status = "banned"
)

// Principal is the resolved identity of a caller. Token verification
// happens upstream; by the time a Principal reaches the resolver its fields
// are trusted.
type Principal struct {
	Kind Kind `json:"kind"`

	// ID is the account id: admin id, owner id, or team member id.
	ID string `json:"id"`

	// ManagedBy is the owning tenant of a team member. Empty otherwise.
	ManagedBy string `json:"managed_by,omitempty"`

	// RoleID is the team member's assigned role. Empty otherwise.
	RoleID string `json:"role,omitempty"`

	// Status is meaningful for team members only.
	Status Status `json:"status,omitempty"`
}

// TenantID returns the principal's scope anchor: the single tenant id every
// non-admin check compares against. Admins have no anchor.
func (p *Principal) TenantID() string {
	switch p.Kind {
	case KindOwner:
		return p.ID
	case KindTeamMember:
		return p.ManagedBy
	default:
		return ""
	}
}

// IsAdmin reports whether the principal bypasses all checks.
func (p *Principal) IsAdmin() bool { return p.Kind == KindAdmin }
