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

// Package system provides integration tests that run against a real PostgreSQL database.
//
// Test Execution:
//
//	INTEGRATION_TEST=true go test -v ./tests/system/...
//
// Prerequisites:
//
//	docker compose up -d postgres
//
// Test Categories:
//   - TEN-*: Tenant isolation tests
//   - LAD-*: Authorization ladder tests
package system

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdesk/crewdesk/internal/access"
	"github.com/crewdesk/crewdesk/internal/audit"
	"github.com/crewdesk/crewdesk/internal/entity"
	"github.com/crewdesk/crewdesk/internal/id"
	"github.com/crewdesk/crewdesk/internal/identity"
	"github.com/crewdesk/crewdesk/internal/role"
	"github.com/crewdesk/crewdesk/internal/store/postgres"
)

// testDB is the shared database connection for integration tests
var testDB *postgres.DB

// TestMain sets up and tears down the test database connection
func TestMain(m *testing.M) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		os.Exit(0)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:         getEnvOrDefault("DB_HOST", "localhost"),
		Port:         getEnvOrDefault("DB_PORT", "5432"),
		User:         getEnvOrDefault("DB_USER", "crewdesk"),
		Password:     getEnvOrDefault("DB_PASSWORD", "crewdesk_dev_password"),
		Database:     getEnvOrDefault("DB_NAME", "crewdesk"),
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	})
	if err != nil {
		panic("failed to connect to test database: " + err.Error())
	}
	testDB = db

	// Apply migrations; existing tables are fine
	_ = db.Migrate(ctx, postgres.InitialSchema)

	code := m.Run()

	testDB.Close()
	os.Exit(code)
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func seedOwner(t *testing.T, ctx context.Context, name string) string {
	t.Helper()
	repo := postgres.NewOwnerRepository(testDB)
	owner := &identity.Owner{
		ID:           id.NewUUIDv7(),
		Email:        name + "-" + id.NewUUIDv7()[:8] + "@example.com",
		Name:         name,
		PasswordHash: "x",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, repo.Create(ctx, owner))
	return owner.ID
}

// =============================================================================
// TENANT ISOLATION TESTS
// =============================================================================

// TestPurpose: Validates that an owner cannot read another owner's invoice through the full resolver stack.
// Scope: Integration Test
// Security: Multi-tenancy boundary enforcement over real SQL ownership resolution
// Expected: The foreign invoice is denied with OUT_OF_SCOPE; the owner's own invoice is allowed.
// Test Case ID: TEN-01
func TestTenant_Isolation_OwnerCannotReachForeignInvoice(t *testing.T) {
	if testDB == nil {
		t.Skip("Integration test requires database (set INTEGRATION_TEST=true)")
	}

	ctx := context.Background()
	store := postgres.NewEntityStore(testDB)
	roleRepo := postgres.NewRoleRepository(testDB)
	resolver := access.NewResolver(access.NewOwnershipResolver(store), roleRepo)

	ownerA := seedOwner(t, ctx, "owner-a")
	ownerB := seedOwner(t, ctx, "owner-b")

	now := time.Now()
	invoiceA := &entity.Invoice{ID: id.NewUUIDv7(), CreatedBy: ownerA, Amount: 100, CreatedAt: now, UpdatedAt: now}
	invoiceB := &entity.Invoice{ID: id.NewUUIDv7(), CreatedBy: ownerB, Amount: 200, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.CreateInvoice(ctx, invoiceA))
	require.NoError(t, store.CreateInvoice(ctx, invoiceB))

	principalA := &access.Principal{Kind: access.KindOwner, ID: ownerA}

	err := resolver.Authorize(ctx, principalA, "view_invoice", access.Ref{Type: entity.TypeInvoice, ID: invoiceA.ID})
	assert.NoError(t, err, "TEN-01: owner must reach their own invoice")

	err = resolver.Authorize(ctx, principalA, "view_invoice", access.Ref{Type: entity.TypeInvoice, ID: invoiceB.ID})
	denied, ok := access.Denied(err)
	require.True(t, ok, "TEN-01 SECURITY: foreign invoice must be denied, got %v", err)
	assert.Equal(t, access.ReasonOutOfScope, denied.Reason)
}

// TestPurpose: Validates that scoped list queries over SQL never include another tenant's rows.
// Scope: Integration Test
// Security: Scope predicate applied in the query, not post-filtered in memory
// Expected: The filter built for owner A matches only A's clients.
// Test Case ID: TEN-02
func TestTenant_Isolation_ScopedClientList(t *testing.T) {
	if testDB == nil {
		t.Skip("Integration test requires database (set INTEGRATION_TEST=true)")
	}

	ctx := context.Background()
	store := postgres.NewEntityStore(testDB)
	roleRepo := postgres.NewRoleRepository(testDB)
	filters := access.NewFilterBuilder(store, roleRepo)

	ownerA := seedOwner(t, ctx, "owner-a")
	ownerB := seedOwner(t, ctx, "owner-b")

	now := time.Now()
	for _, c := range []*entity.Client{
		{ID: id.NewUUIDv7(), AddedBy: ownerA, Name: "Acme", CreatedAt: now, UpdatedAt: now},
		{ID: id.NewUUIDv7(), AddedBy: ownerA, Name: "Initech", CreatedAt: now, UpdatedAt: now},
		{ID: id.NewUUIDv7(), AddedBy: ownerB, Name: "Globex", CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, store.CreateClient(ctx, c))
	}

	principalA := &access.Principal{Kind: access.KindOwner, ID: ownerA}
	f, err := filters.Build(ctx, principalA, entity.TypeClient, entity.Filter{})
	require.NoError(t, err)

	clients, err := store.ListClients(ctx, f)
	require.NoError(t, err)
	require.Len(t, clients, 2, "TEN-02: owner A must see exactly their clients")
	for _, c := range clients {
		assert.Equal(t, ownerA, c.AddedBy,
			"TEN-02 SECURITY: no cross-tenant rows in a scoped list")
	}
}

// TestPurpose: Validates lead visibility derivation over SQL: assignment and service interest both bind a lead to a tenant.
// Scope: Integration Test
// Expected: A lead assigned to owner A's member and a lead interested in A's service are visible to A; an unrelated lead is not.
// Test Case ID: TEN-03
func TestTenant_Isolation_LeadDerivation(t *testing.T) {
	if testDB == nil {
		t.Skip("Integration test requires database (set INTEGRATION_TEST=true)")
	}

	ctx := context.Background()
	store := postgres.NewEntityStore(testDB)
	roleRepo := postgres.NewRoleRepository(testDB)
	filters := access.NewFilterBuilder(store, roleRepo)

	ownerA := seedOwner(t, ctx, "owner-a")
	ownerB := seedOwner(t, ctx, "owner-b")

	now := time.Now()
	member := &entity.TeamMember{
		ID: id.NewUUIDv7(), ManagedBy: ownerA, Status: entity.MemberActive,
		Name: "Member A", Email: id.NewUUIDv7()[:8] + "@example.com",
		CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, store.CreateTeamMember(ctx, member))

	// Services have no dedicated write path in the store interface; insert
	// directly for the derivation fixture.
	serviceID := id.NewUUIDv7()
	_, err := testDB.Pool().Exec(ctx,
		`INSERT INTO services (id, user_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		serviceID, ownerA, "Design Sprint", now)
	require.NoError(t, err)

	leads := []struct {
		id         string
		assignedTo string
		lookingFor []string
	}{
		{id.NewUUIDv7(), member.ID, nil},          // visible via assignment
		{id.NewUUIDv7(), "", []string{serviceID}}, // visible via service interest
		{id.NewUUIDv7(), "", nil},                 // unrelated
	}
	for _, l := range leads {
		var assigned any
		if l.assignedTo != "" {
			assigned = l.assignedTo
		}
		lookingFor := l.lookingFor
		if lookingFor == nil {
			lookingFor = []string{}
		}
		_, err := testDB.Pool().Exec(ctx,
			`INSERT INTO leads (id, assigned_to, looking_for, name, created_at) VALUES ($1, $2, $3, $4, $5)`,
			l.id, assigned, lookingFor, "Lead", now)
		require.NoError(t, err)
	}

	principalA := &access.Principal{Kind: access.KindOwner, ID: ownerA}
	f, err := filters.Build(ctx, principalA, entity.TypeLead, entity.Filter{})
	require.NoError(t, err)

	got, err := store.ListLeads(ctx, f)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, l := range got {
		seen[l.ID] = true
	}
	assert.True(t, seen[leads[0].id], "TEN-03: assigned lead must be visible")
	assert.True(t, seen[leads[1].id], "TEN-03: service-interest lead must be visible")
	assert.False(t, seen[leads[2].id], "TEN-03: unrelated lead must stay invisible")

	principalB := &access.Principal{Kind: access.KindOwner, ID: ownerB}
	fB, err := filters.Build(ctx, principalB, entity.TypeLead, entity.Filter{})
	require.NoError(t, err)
	gotB, err := store.ListLeads(ctx, fB)
	require.NoError(t, err)
	for _, l := range gotB {
		assert.NotContains(t, []string{leads[0].id, leads[1].id}, l.ID,
			"TEN-03 SECURITY: owner B must not see owner A's leads")
	}
}

// =============================================================================
// AUTHORIZATION LADDER TESTS
// =============================================================================

// TestPurpose: Validates the member authorization ladder end to end over SQL-backed roles.
// Scope: Integration Test
// Security: Permission grants take effect without re-issuing anything
// Expected: A member with a view-only role is denied MISSING_PERMISSION on update; after the role is widened the same check passes.
// Test Case ID: LAD-01
func TestLadder_MemberPermissionWidening(t *testing.T) {
	if testDB == nil {
		t.Skip("Integration test requires database (set INTEGRATION_TEST=true)")
	}

	ctx := context.Background()
	store := postgres.NewEntityStore(testDB)
	roleRepo := postgres.NewRoleRepository(testDB)
	resolver := access.NewResolver(access.NewOwnershipResolver(store), roleRepo)
	auditLogger := audit.NewSlogLogger()
	roleService := role.NewService(roleRepo, resolver, auditLogger)

	ownerA := seedOwner(t, ctx, "owner-a")
	ownerPrincipal := &access.Principal{Kind: access.KindOwner, ID: ownerA}

	created, err := roleService.Create(ctx, ownerPrincipal, role.CreateInput{
		Name:        "Ladder Viewer " + id.NewUUIDv7()[:8],
		Permissions: access.PermissionMatrix{"view_invoice": true},
		OwnerID:     ownerA,
	})
	require.NoError(t, err)

	now := time.Now()
	invoice := &entity.Invoice{ID: id.NewUUIDv7(), CreatedBy: ownerA, Amount: 100, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.CreateInvoice(ctx, invoice))

	member := &access.Principal{
		Kind:      access.KindTeamMember,
		ID:        id.NewUUIDv7(),
		ManagedBy: ownerA,
		RoleID:    created.ID,
		Status:    access.StatusActive,
	}
	ref := access.Ref{Type: entity.TypeInvoice, ID: invoice.ID}

	require.NoError(t, resolver.Authorize(ctx, member, "view_invoice", ref))

	err = resolver.Authorize(ctx, member, "update_invoice", ref)
	denied, ok := access.Denied(err)
	require.True(t, ok, "LAD-01: update without a grant must be denied")
	assert.Equal(t, access.ReasonMissingPermission, denied.Reason)

	wider := access.PermissionMatrix{"view_invoice": true, "update_invoice": true}
	_, err = roleService.Update(ctx, ownerPrincipal, created.ID, role.UpdateInput{Permissions: &wider})
	require.NoError(t, err)

	assert.NoError(t, resolver.Authorize(ctx, member, "update_invoice", ref),
		"LAD-01: widened role must apply on the next check")
}
