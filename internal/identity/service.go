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

package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/crewdesk/crewdesk/internal/access"
	"github.com/crewdesk/crewdesk/internal/audit"
	"github.com/crewdesk/crewdesk/internal/id"
)

// RoleSeeder creates the default role set for a new tenant.
type RoleSeeder interface {
	SeedDefaults(ctx context.Context, ownerID string) error
}

// Service provides registration and login.
type Service struct {
	owners             OwnerRepository
	memberCreds        MemberCredentialRepository
	members            MemberSource
	hasher             *PasswordHasher
	tokens             *TokenManager
	seeder             RoleSeeder
	auditLogger        audit.Logger
	lockoutMaxAttempts int
	lockoutDuration    time.Duration
}

// NewService creates a new identity service.
func NewService(
	owners OwnerRepository,
	memberCreds MemberCredentialRepository,
	members MemberSource,
	hasher *PasswordHasher,
	tokens *TokenManager,
	seeder RoleSeeder,
	auditLogger audit.Logger,
	lockoutMaxAttempts int,
	lockoutDuration time.Duration,
) *Service {
	return &Service{
		owners:             owners,
		memberCreds:        memberCreds,
		members:            members,
		hasher:             hasher,
		tokens:             tokens,
		seeder:             seeder,
		auditLogger:        auditLogger,
		lockoutMaxAttempts: lockoutMaxAttempts,
		lockoutDuration:    lockoutDuration,
	}
}

// RegisterInput is the payload for owner registration.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate implements request validation.
func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required),
	)
}

// Register creates an owner account and seeds its default roles. Seeding is
// part of registration; no other code path regenerates roles for a tenant.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Owner, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if !isStrongPassword(in.Password) {
		return nil, ErrWeakPassword
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.owners.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrOwnerNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	owner := &Owner{
		ID:           id.NewUUIDv7(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.owners.Create(ctx, owner); err != nil {
		return nil, fmt.Errorf("failed to create owner: %w", err)
	}

	if err := s.seeder.SeedDefaults(ctx, owner.ID); err != nil {
		return nil, fmt.Errorf("failed to seed default roles: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeOwnerRegistered,
		TenantID: owner.ID,
		ActorID:  owner.ID,
		Resource: owner.ID,
		Metadata: map[string]any{"email": owner.Email},
	})
	return owner, nil
}

// Login authenticates by email and password and returns a bearer token.
// Owner accounts are tried first, then team member credentials. Both paths
// fail with the same error so the response never reveals which table a
// given email lives in.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	owner, err := s.owners.GetByEmail(ctx, email)
	if err == nil {
		return s.loginOwner(ctx, owner, password)
	}
	if !errors.Is(err, ErrOwnerNotFound) {
		return "", fmt.Errorf("failed to look up owner: %w", err)
	}

	cred, err := s.memberCreds.GetByEmail(ctx, email)
	if err != nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			Resource: "login",
			Metadata: map[string]any{audit.AttrReason: "account_not_found"},
		})
		return "", ErrInvalidCredentials
	}
	return s.loginMember(ctx, cred, password)
}

func (s *Service) loginOwner(ctx context.Context, owner *Owner, password string) (string, error) {
	if owner.LockedUntil != nil && owner.LockedUntil.After(time.Now()) {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			TenantID: owner.ID,
			ActorID:  owner.ID,
			Resource: "login",
			Metadata: map[string]any{audit.AttrReason: "locked_out"},
		})
		return "", ErrAccountLocked
	}

	valid, err := s.hasher.Verify(password, owner.PasswordHash)
	if err != nil || !valid {
		attempts := owner.FailedLoginAttempts + 1
		var lockedUntil *time.Time
		if attempts >= s.lockoutMaxAttempts {
			until := time.Now().Add(s.lockoutDuration)
			lockedUntil = &until
		}
		_ = s.owners.UpdateLockout(ctx, owner.ID, attempts, lockedUntil)

		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			TenantID: owner.ID,
			ActorID:  owner.ID,
			Resource: "login",
			Metadata: map[string]any{
				audit.AttrReason:   "invalid_password",
				audit.AttrAttempts: attempts,
			},
		})
		return "", ErrInvalidCredentials
	}

	if owner.FailedLoginAttempts > 0 || owner.LockedUntil != nil {
		_ = s.owners.UpdateLockout(ctx, owner.ID, 0, nil)
	}

	p := &access.Principal{Kind: access.KindOwner, ID: owner.ID}
	if owner.IsAdmin {
		p.Kind = access.KindAdmin
	}
	token, err := s.tokens.Issue(p)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginSuccess,
		TenantID: owner.ID,
		ActorID:  owner.ID,
		Resource: "login",
	})
	return token, nil
}

func (s *Service) loginMember(ctx context.Context, cred *MemberCredential, password string) (string, error) {
	valid, err := s.hasher.Verify(password, cred.PasswordHash)
	if err != nil || !valid {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  cred.MemberID,
			Resource: "login",
			Metadata: map[string]any{audit.AttrReason: "invalid_password"},
		})
		return "", ErrInvalidCredentials
	}

	member, err := s.members.GetTeamMember(ctx, cred.MemberID)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	// Inactive and banned members still authenticate; the access ladder
	// denies them per request with its own reason.
	token, err := s.tokens.Issue(&access.Principal{
		Kind:      access.KindTeamMember,
		ID:        member.ID,
		ManagedBy: member.ManagedBy,
		RoleID:    member.RoleID,
		Status:    memberStatus(member.Status),
	})
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginSuccess,
		TenantID: member.ManagedBy,
		ActorID:  member.ID,
		Resource: "login",
	})
	return token, nil
}

// SetMemberPassword stores login credentials for a team member.
func (s *Service) SetMemberPassword(ctx context.Context, memberID, email, password string) error {
	if !isStrongPassword(password) {
		return ErrWeakPassword
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.memberCreds.Set(ctx, &MemberCredential{
		MemberID:     memberID,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		UpdatedAt:    time.Now(),
	})
}

// ChangePassword changes an owner's password after verifying the old one.
func (s *Service) ChangePassword(ctx context.Context, ownerID, oldPassword, newPassword string) error {
	owner, err := s.owners.GetByID(ctx, ownerID)
	if err != nil {
		return ErrOwnerNotFound
	}

	valid, err := s.hasher.Verify(oldPassword, owner.PasswordHash)
	if err != nil || !valid {
		return ErrInvalidCredentials
	}
	if !isStrongPassword(newPassword) {
		return ErrWeakPassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.owners.UpdatePassword(ctx, ownerID, hash)
}

func isStrongPassword(password string) bool {
	return len(password) >= 8
}
