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

// Package identity handles owner registration, login for owners and team
// members, and the bearer tokens that carry a principal between requests.
//
// A token carries identity only. Role, status, and tenant binding are
// reloaded from the store on every request, so a revoked role or a
// deactivated member takes effect immediately, not at token expiry.
package identity

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrOwnerNotFound      = errors.New("owner not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password does not meet security requirements")
	ErrAccountLocked      = errors.New("account is locked")
)

// Owner is a business account. Each owner is a tenant root; IsAdmin marks
// the handful of platform operators, which is an account property and never
// implied by any tenant id value.
type Owner struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	Name                string     `json:"name"`
	PasswordHash        string     `json:"-"`
	IsAdmin             bool       `json:"is_admin"`
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// OwnerRepository defines owner persistence.
type OwnerRepository interface {
	Create(ctx context.Context, o *Owner) error
	GetByID(ctx context.Context, id string) (*Owner, error)

	// GetByEmail returns ErrOwnerNotFound when no owner has the email.
	GetByEmail(ctx context.Context, email string) (*Owner, error)

	Update(ctx context.Context, o *Owner) error
	UpdateLockout(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// MemberCredential is a team member's login secret, kept apart from the
// member record so the entity store never sees password material.
type MemberCredential struct {
	MemberID     string
	Email        string
	PasswordHash string
	UpdatedAt    time.Time
}

// MemberCredentialRepository defines member credential persistence.
type MemberCredentialRepository interface {
	Set(ctx context.Context, c *MemberCredential) error

	// GetByEmail returns ErrOwnerNotFound when no member has the email.
	GetByEmail(ctx context.Context, email string) (*MemberCredential, error)
}
