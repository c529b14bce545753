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
	"testing"

	"github.com/crewdesk/crewdesk/internal/access"
	"github.com/crewdesk/crewdesk/internal/entity"
)

func newFilterFixture() (*access.FilterBuilder, *fakeStore) {
	store := newFakeStore()
	store.clients["c1"] = &entity.Client{ID: "c1", AddedBy: "o1"}
	store.clients["c2"] = &entity.Client{ID: "c2", AddedBy: "o1"}
	store.clients["c3"] = &entity.Client{ID: "c3", AddedBy: "o2"}

	roles := &fakeRoles{roles: map[string]*access.Role{
		"viewer": {
			ID:        "viewer",
			Name:      "Viewer",
			CreatedBy: "o1",
			Permissions: access.PermissionMatrix{
				"project": map[string]any{"view_project": true},
			},
		},
	}}

	return access.NewFilterBuilder(store, roles), store
}

// TestPurpose: Validates that admin list queries pass through unmodified
// while owner queries are narrowed to the owner's tenant.
// Scope: Unit Test
// Expected: No narrowing for admin; added_by narrowing for owner on clients.
func TestFilter_AdminPassthroughOwnerNarrowing(t *testing.T) {
	b, _ := newFilterFixture()
	ctx := context.Background()

	caller := entity.Filter{Conditions: map[string]string{"email": "x@y.z"}}

	got, err := b.Build(ctx, &access.Principal{Kind: access.KindAdmin, ID: "root"}, entity.TypeClient, caller)
	if err != nil {
		t.Fatalf("admin: unexpected %v", err)
	}
	if got.TenantField != "" || len(got.TenantIDs) != 0 {
		t.Errorf("admin filter must not be narrowed: %+v", got)
	}

	got, err = b.Build(ctx, owner("o1"), entity.TypeClient, caller)
	if err != nil {
		t.Fatalf("owner: unexpected %v", err)
	}
	if got.TenantField != "added_by" || len(got.TenantIDs) != 1 || got.TenantIDs[0] != "o1" {
		t.Errorf("owner filter = %+v, want added_by=[o1]", got)
	}
	if got.Conditions["email"] != "x@y.z" {
		t.Error("caller conditions must be preserved")
	}
}

// TestPurpose: Validates the one-hop join scoping for projects: the
// predicate is an IN over the tenant's client ids.
// Scope: Unit Test
// Expected: client IN {c1, c2} for owner o1.
func TestFilter_ProjectOneHopJoin(t *testing.T) {
	b, _ := newFilterFixture()

	got, err := b.Build(context.Background(), owner("o1"), entity.TypeProject, entity.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TenantField != "client" {
		t.Fatalf("tenant field = %q, want client", got.TenantField)
	}
	if len(got.TenantIDs) != 2 {
		t.Fatalf("client id set = %v, want c1 and c2", got.TenantIDs)
	}
	seen := map[string]bool{}
	for _, id := range got.TenantIDs {
		seen[id] = true
	}
	if !seen["c1"] || !seen["c2"] {
		t.Errorf("client id set = %v, want c1 and c2", got.TenantIDs)
	}
}

// TestPurpose: Validates that team members need the entity's view permission
// before any filter is built.
// Scope: Unit Test
// Expected: Deny(MISSING_PERMISSION) without view_client; narrowing with
// view_project.
func TestFilter_TeamMemberViewPermission(t *testing.T) {
	b, _ := newFilterFixture()
	ctx := context.Background()
	m := member("m1", "o1", "viewer", access.StatusActive)

	_, err := b.Build(ctx, m, entity.TypeClient, entity.Filter{})
	wantReason(t, err, access.ReasonMissingPermission)

	got, err := b.Build(ctx, m, entity.TypeProject, entity.Filter{})
	if err != nil {
		t.Fatalf("member with view_project: unexpected %v", err)
	}
	if got.TenantField != "client" || len(got.TenantIDs) != 2 {
		t.Errorf("member project filter = %+v", got)
	}

	_, err = b.Build(ctx, member("m1", "o1", "viewer", access.StatusInactive), entity.TypeProject, entity.Filter{})
	wantReason(t, err, access.ReasonInactive)
}

// TestPurpose: Validates that an explicit caller scope outside the
// principal's tenant is an explicit denial, never a silently empty result.
// Scope: Unit Test
// Security: "not permitted" must not masquerade as "nothing found".
// Expected: Deny(OUT_OF_SCOPE) for a foreign client filter; narrowing for an
// owned one.
func TestFilter_ExplicitScopeOutsidePrincipal(t *testing.T) {
	b, _ := newFilterFixture()
	ctx := context.Background()

	_, err := b.Build(ctx, owner("o1"), entity.TypeProject, entity.Filter{
		Conditions: map[string]string{"client": "c3"},
	})
	wantReason(t, err, access.ReasonOutOfScope)

	got, err := b.Build(ctx, owner("o1"), entity.TypeProject, entity.Filter{
		Conditions: map[string]string{"client": "c2", "status": "active"},
	})
	if err != nil {
		t.Fatalf("owned explicit client: unexpected %v", err)
	}
	if len(got.TenantIDs) != 1 || got.TenantIDs[0] != "c2" {
		t.Errorf("explicit narrowing = %v, want [c2]", got.TenantIDs)
	}
	if _, ok := got.Conditions["client"]; ok {
		t.Error("scope condition should be folded into the tenant predicate")
	}
	if got.Conditions["status"] != "active" {
		t.Error("unrelated conditions must survive")
	}
}
