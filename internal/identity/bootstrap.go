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
	"os"

	"github.com/crewdesk/crewdesk/internal/audit"
)

const (
	EnvBootstrapAdminEmail    = "CREWDESK_BOOTSTRAP_ADMIN_EMAIL"
	EnvBootstrapAdminPassword = "CREWDESK_BOOTSTRAP_ADMIN_PASSWORD"
)

// BootstrapService promotes or creates the initial platform admin at
// startup. Admin is an account flag, never a magic tenant id.
type BootstrapService struct {
	identityService *Service
	auditLogger     audit.Logger
}

// NewBootstrapService creates a new bootstrap service.
func NewBootstrapService(identityService *Service, auditLogger audit.Logger) *BootstrapService {
	return &BootstrapService{identityService: identityService, auditLogger: auditLogger}
}

// Bootstrap checks for bootstrap configuration and executes it if necessary.
// With no email configured it is a no-op; with an email it is idempotent.
func (s *BootstrapService) Bootstrap(ctx context.Context) error {
	email := os.Getenv(EnvBootstrapAdminEmail)
	if email == "" {
		return nil
	}

	owner, err := s.identityService.owners.GetByEmail(ctx, email)
	if err == nil {
		if owner.IsAdmin {
			return nil
		}
		owner.IsAdmin = true
		if err := s.identityService.owners.Update(ctx, owner); err != nil {
			return fmt.Errorf("failed to promote bootstrap admin: %w", err)
		}
		s.logBootstrap(ctx, owner)
		return nil
	}
	if !errors.Is(err, ErrOwnerNotFound) {
		return fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}

	password := os.Getenv(EnvBootstrapAdminPassword)
	if password == "" {
		return fmt.Errorf("bootstrap admin %s does not exist and %s is not set", email, EnvBootstrapAdminPassword)
	}

	created, err := s.identityService.Register(ctx, RegisterInput{
		Name:     "Platform Admin",
		Email:    email,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	created.IsAdmin = true
	if err := s.identityService.owners.Update(ctx, created); err != nil {
		return fmt.Errorf("failed to flag bootstrap admin: %w", err)
	}

	s.logBootstrap(ctx, created)
	return nil
}

func (s *BootstrapService) logBootstrap(ctx context.Context, owner *Owner) {
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeOwnerRegistered,
		TenantID: owner.ID,
		ActorID:  owner.ID,
		Resource: owner.ID,
		Metadata: map[string]any{"email": owner.Email, "bootstrap_admin": true},
	})
}
