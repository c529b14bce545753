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

//go:build integration
// +build integration

package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/crewdesk/crewdesk/internal/access"
	"github.com/crewdesk/crewdesk/internal/entity"
	"github.com/crewdesk/crewdesk/internal/identity"
	"github.com/crewdesk/crewdesk/internal/id"
)

func testDB(t *testing.T) *DB {
	t.Helper()

	cfg := Config{
		Host:         envOr("DB_HOST", "localhost"),
		Port:         envOr("DB_PORT", "5432"),
		User:         envOr("DB_USER", "crewdesk"),
		Password:     envOr("DB_PASSWORD", "crewdesk_dev_password"),
		Database:     envOr("DB_NAME", "crewdesk"),
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 5,
	}

	ctx := context.Background()
	db, err := New(ctx, cfg)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to database: %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.Migrate(ctx, InitialSchema); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// TestPurpose: Validates owner persistence round trip and the not-found mapping.
// Scope: Database Integration Test
// Expected: A created owner is retrievable by id and email; a missing email maps to ErrOwnerNotFound.
// Test Case ID: PG-01
func TestOwnerRepository_RoundTrip(t *testing.T) {
	db := testDB(t)
	repo := NewOwnerRepository(db)
	ctx := context.Background()

	owner := &identity.Owner{
		ID:           id.NewUUIDv7(),
		Email:        id.NewUUIDv7() + "@example.com",
		Name:         "Integration Owner",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := repo.Create(ctx, owner); err != nil {
		t.Fatalf("create owner: %v", err)
	}

	got, err := repo.GetByEmail(ctx, owner.Email)
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != owner.ID {
		t.Errorf("expected id %s, got %s", owner.ID, got.ID)
	}

	_, err = repo.GetByEmail(ctx, "nobody-"+owner.Email)
	if !errors.Is(err, identity.ErrOwnerNotFound) {
		t.Errorf("expected ErrOwnerNotFound, got %v", err)
	}
}

// TestPurpose: Validates that scoped invoice queries never return rows from another tenant.
// Scope: Database Integration Test
// Security: Multi-tenant data separation enforced at the query layer
// Expected: A filter anchored to tenant A returns only A's invoices.
// Test Case ID: PG-02
func TestEntityStore_InvoiceScopeIsolation(t *testing.T) {
	db := testDB(t)
	owners := NewOwnerRepository(db)
	store := NewEntityStore(db)
	ctx := context.Background()

	tenantA, tenantB := seedOwner(t, ctx, owners), seedOwner(t, ctx, owners)

	now := time.Now()
	for _, inv := range []*entity.Invoice{
		{ID: id.NewUUIDv7(), CreatedBy: tenantA, Amount: 100, CreatedAt: now, UpdatedAt: now},
		{ID: id.NewUUIDv7(), CreatedBy: tenantA, Amount: 200, CreatedAt: now, UpdatedAt: now},
		{ID: id.NewUUIDv7(), CreatedBy: tenantB, Amount: 300, CreatedAt: now, UpdatedAt: now},
	} {
		if err := store.CreateInvoice(ctx, inv); err != nil {
			t.Fatalf("create invoice: %v", err)
		}
	}

	got, err := store.ListInvoices(ctx, entity.Filter{
		TenantField: "created_by",
		TenantIDs:   []string{tenantA},
	})
	if err != nil {
		t.Fatalf("list invoices: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 invoices, got %d", len(got))
	}
	for _, inv := range got {
		if inv.CreatedBy != tenantA {
			t.Errorf("cross-tenant leak: invoice %s belongs to %s", inv.ID, inv.CreatedBy)
		}
	}
}

// TestPurpose: Validates that role names are unique per tenant but reusable across tenants.
// Scope: Database Integration Test
// Expected: Same name in two tenants succeeds; duplicate within one tenant fails.
// Test Case ID: PG-03
func TestRoleRepository_NameUniquePerTenant(t *testing.T) {
	db := testDB(t)
	owners := NewOwnerRepository(db)
	repo := NewRoleRepository(db)
	ctx := context.Background()

	tenantA, tenantB := seedOwner(t, ctx, owners), seedOwner(t, ctx, owners)

	now := time.Now()
	mk := func(tenant string) *access.Role {
		return &access.Role{
			ID:          id.NewUUIDv7(),
			Name:        "Shared Name",
			Permissions: access.PermissionMatrix{"view_invoice": true},
			CreatedBy:   tenant,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}

	if err := repo.Create(ctx, mk(tenantA)); err != nil {
		t.Fatalf("create role in tenant A: %v", err)
	}
	if err := repo.Create(ctx, mk(tenantB)); err != nil {
		t.Errorf("same name in another tenant should succeed: %v", err)
	}
	if err := repo.Create(ctx, mk(tenantA)); err == nil {
		t.Error("duplicate name within one tenant should fail")
	}
}

func seedOwner(t *testing.T, ctx context.Context, repo *OwnerRepository) string {
	t.Helper()
	owner := &identity.Owner{
		ID:           id.NewUUIDv7(),
		Email:        id.NewUUIDv7() + "@example.com",
		Name:         "Seed Owner",
		PasswordHash: "x",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := repo.Create(ctx, owner); err != nil {
		t.Fatalf("seed owner: %v", err)
	}
	return owner.ID
}
