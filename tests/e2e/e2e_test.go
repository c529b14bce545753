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

// Package e2e drives a running crewdesk server over plain HTTP.
//
// Test Execution:
//
//	go run ./cmd/server &
//	go test -v ./tests/e2e/...
//
// The suite skips itself when no server is listening.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	baseURL = getEnv("CREWDESK_API_URL", "http://127.0.0.1:8080")
	apiBase = baseURL + "/api/v1"
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// TestClient carries a bearer token between requests.
type TestClient struct {
	httpClient *http.Client
	token      string
}

func NewTestClient() *TestClient {
	return &TestClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *TestClient) Do(method, path string, body any) (int, map[string]any, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, _ := http.NewRequest(method, apiBase+path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var decoded map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		json.Unmarshal(raw, &decoded)
	}
	return resp.StatusCode, decoded, nil
}

func requireServer(t *testing.T) {
	t.Helper()
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		t.Skipf("Skipping e2e: no server at %s (%v)", baseURL, err)
	}
	resp.Body.Close()
}

// TestPurpose: Validates the full owner and team-member workflow over a live server.
// Scope: End-to-End Test
// Security: Every boundary crossed here is enforced server-side; the client carries only a bearer token.
// Expected: Registration, login, role/member management, and the member permission ladder behave as one coherent flow.
// Test Case ID: E2E-01
func TestE2E_Workflows(t *testing.T) {
	requireServer(t)

	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	ownerEmail := "e2e-owner-" + suffix + "@example.com"
	memberEmail := "e2e-member-" + suffix + "@example.com"
	ownerPassword := "e2e-owner-password"
	memberPassword := "e2e-member-password"

	owner := NewTestClient()
	member := NewTestClient()

	var ownerID, roleID, memberID, invoiceID string

	t.Run("OwnerRegistersAndLogsIn", func(t *testing.T) {
		status, body, err := owner.Do(http.MethodPost, "/auth/register", map[string]any{
			"name":     "E2E Owner",
			"email":    ownerEmail,
			"password": ownerPassword,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, status, "register: %v", body)
		ownerID = body["id"].(string)

		status, body, err = owner.Do(http.MethodPost, "/auth/login", map[string]any{
			"email":    ownerEmail,
			"password": ownerPassword,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, status, "login: %v", body)
		owner.token = body["token"].(string)
	})

	t.Run("SeededRolesArePresent", func(t *testing.T) {
		status, body, err := owner.Do(http.MethodGet, "/roles", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, status)
		roles := body["roles"].([]any)
		assert.NotEmpty(t, roles, "registration seeds default roles")
	})

	t.Run("OwnerCreatesViewOnlyRole", func(t *testing.T) {
		status, body, err := owner.Do(http.MethodPost, "/roles", map[string]any{
			"name":        "E2E Clerk " + suffix,
			"permissions": map[string]any{"view_invoice": true},
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, status, "create role: %v", body)
		roleID = body["id"].(string)
	})

	t.Run("OwnerAddsMemberWithCredentials", func(t *testing.T) {
		status, body, err := owner.Do(http.MethodPost, "/team", map[string]any{
			"name":       "E2E Member",
			"email":      memberEmail,
			"role":       roleID,
			"managed_by": ownerID,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, status, "create member: %v", body)
		memberID = body["id"].(string)

		status, body, err = owner.Do(http.MethodPost, "/team/"+memberID+"/password", map[string]any{
			"password": memberPassword,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, status, "set password: %v", body)
	})

	t.Run("OwnerCreatesInvoice", func(t *testing.T) {
		status, body, err := owner.Do(http.MethodPost, "/invoices", map[string]any{
			"amount":         4200,
			"payment_status": "pending",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, status, "create invoice: %v", body)
		invoiceID = body["id"].(string)
	})

	t.Run("MemberLogsInAndViewsButCannotMutate", func(t *testing.T) {
		status, body, err := member.Do(http.MethodPost, "/auth/login", map[string]any{
			"email":    memberEmail,
			"password": memberPassword,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, status, "member login: %v", body)
		member.token = body["token"].(string)

		status, _, err = member.Do(http.MethodGet, "/invoices/"+invoiceID, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status, "view_invoice grant must allow reads")

		status, body, err = member.Do(http.MethodPut, "/invoices/"+invoiceID, map[string]any{
			"payment_status": "paid",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, status, "update without grant must fail")
		assert.Equal(t, "MISSING_PERMISSION", body["reason"])
	})

	t.Run("WidenedRoleAppliesImmediately", func(t *testing.T) {
		status, body, err := owner.Do(http.MethodPut, "/roles/"+roleID, map[string]any{
			"permissions": map[string]any{"view_invoice": true, "update_invoice": true},
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, status, "widen role: %v", body)

		status, _, err = member.Do(http.MethodPut, "/invoices/"+invoiceID, map[string]any{
			"payment_status": "paid",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status,
			"member keeps the same token; the new grant applies at once")
	})

	t.Run("DeactivatedMemberIsDeniedPerRequest", func(t *testing.T) {
		status, body, err := owner.Do(http.MethodPut, "/team/"+memberID, map[string]any{
			"status": "inactive",
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, status, "deactivate: %v", body)

		status, body, err = member.Do(http.MethodGet, "/invoices/"+invoiceID, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, "INACTIVE", body["reason"])
	})
}
