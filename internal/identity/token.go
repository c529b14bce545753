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
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crewdesk/crewdesk/internal/access"
	"github.com/crewdesk/crewdesk/internal/entity"
)

const tokenIssuer = "crewdesk"

// MemberSource loads a team member by id. Satisfied by the entity store.
type MemberSource interface {
	GetTeamMember(ctx context.Context, id string) (*entity.TeamMember, error)
}

// TokenManager issues and verifies HS256 bearer tokens. The token binds only
// subject and kind; everything that can be revoked (role, status, tenant
// binding, admin flag) is reloaded on every verification.
type TokenManager struct {
	secret  []byte
	ttl     time.Duration
	owners  OwnerRepository
	members MemberSource
}

// NewTokenManager creates a token manager.
func NewTokenManager(secret []byte, ttl time.Duration, owners OwnerRepository, members MemberSource) *TokenManager {
	return &TokenManager{secret: secret, ttl: ttl, owners: owners, members: members}
}

// Issue creates a signed token for the principal.
func (m *TokenManager) Issue(p *access.Principal) (string, error) {
	now := time.Now()
	kind := p.Kind
	if kind == access.KindAdmin {
		// Admins are owners whose record carries the flag. The token never
		// encodes admin; verification derives it from the store.
		kind = access.KindOwner
	}
	claims := jwt.MapClaims{
		"iss":  tokenIssuer,
		"sub":  p.ID,
		"kind": string(kind),
		"iat":  now.Unix(),
		"exp":  now.Add(m.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ResolvePrincipal verifies a raw token and rebuilds the caller's principal
// from current store state. Every failure mode collapses to
// access.ErrUnauthenticated; callers get no oracle into why a token died.
func (m *TokenManager) ResolvePrincipal(ctx context.Context, raw string) (*access.Principal, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, access.ErrUnauthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, access.ErrUnauthenticated
	}
	sub, _ := claims["sub"].(string)
	kind, _ := claims["kind"].(string)
	if sub == "" {
		return nil, access.ErrUnauthenticated
	}

	switch access.Kind(kind) {
	case access.KindOwner:
		owner, err := m.owners.GetByID(ctx, sub)
		if err != nil {
			return nil, access.ErrUnauthenticated
		}
		p := &access.Principal{Kind: access.KindOwner, ID: owner.ID}
		if owner.IsAdmin {
			p.Kind = access.KindAdmin
		}
		return p, nil

	case access.KindTeamMember:
		member, err := m.members.GetTeamMember(ctx, sub)
		if err != nil {
			return nil, access.ErrUnauthenticated
		}
		return &access.Principal{
			Kind:      access.KindTeamMember,
			ID:        member.ID,
			ManagedBy: member.ManagedBy,
			RoleID:    member.RoleID,
			Status:    memberStatus(member.Status),
		}, nil

	default:
		return nil, access.ErrUnauthenticated
	}
}

func memberStatus(s entity.MemberStatus) access.Status {
	switch s {
	case entity.MemberActive:
		return access.StatusActive
	case entity.MemberBanned:
		return access.StatusBanned
	default:
		return access.StatusInactive
	}
}
