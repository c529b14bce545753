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
	"testing"

	"github.com/crewdesk/crewdesk/internal/access"
)

// TestPurpose: Validates permission lookup across both matrix shapes that
// exist in role data (grouped and flat) with default-deny on everything else.
// Scope: Unit Test
// Security: Core permission-grant semantics
// Expected: true only for a literal true under any group or at top level.
func TestMatrix_Has(t *testing.T) {
	tests := []struct {
		name     string
		matrix   access.PermissionMatrix
		action   string
		expected bool
	}{
		{
			name:     "grouped grant",
			matrix:   access.PermissionMatrix{"project": map[string]any{"view_project": true}},
			action:   "view_project",
			expected: true,
		},
		{
			name:     "flat top-level grant",
			matrix:   access.PermissionMatrix{"view_project": true},
			action:   "view_project",
			expected: true,
		},
		{
			name:     "typed bool group",
			matrix:   access.PermissionMatrix{"invoice": map[string]bool{"create_invoice": true}},
			action:   "create_invoice",
			expected: true,
		},
		{
			name: "granted in second group",
			matrix: access.PermissionMatrix{
				"project": map[string]any{"view_project": false},
				"extra":   map[string]any{"view_project": true},
			},
			action:   "view_project",
			expected: true,
		},
		{
			name:     "explicit false is not granted",
			matrix:   access.PermissionMatrix{"project": map[string]any{"delete_project": false}},
			action:   "delete_project",
			expected: false,
		},
		{
			name:     "absent key is not granted",
			matrix:   access.PermissionMatrix{"project": map[string]any{"view_project": true}},
			action:   "delete_project",
			expected: false,
		},
		{
			name:     "truthy string is not a grant",
			matrix:   access.PermissionMatrix{"view_project": "true"},
			action:   "view_project",
			expected: false,
		},
		{
			name:     "numeric garbage is ignored",
			matrix:   access.PermissionMatrix{"project": map[string]any{"view_project": 1}},
			action:   "view_project",
			expected: false,
		},
		{
			name:     "nil matrix",
			matrix:   nil,
			action:   "view_project",
			expected: false,
		},
		{
			name:     "empty action key",
			matrix:   access.PermissionMatrix{"": true},
			action:   "",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.matrix.Has(tt.action); got != tt.expected {
				t.Errorf("Has(%q) = %v, want %v", tt.action, got, tt.expected)
			}
		})
	}
}

// TestPurpose: Validates action-set lookup used by call sites where a
// broader capability satisfies the check.
// Scope: Unit Test
// Expected: true if any listed action is granted.
func TestMatrix_HasAny(t *testing.T) {
	m := access.PermissionMatrix{"milestone": map[string]any{"create_milestone": true}}

	if !m.HasAny("update_milestone", "create_milestone") {
		t.Error("HasAny should accept create_milestone as a fallback grant")
	}
	if m.HasAny("delete_milestone", "view_milestone") {
		t.Error("HasAny should deny when no listed action is granted")
	}
	if m.HasAny() {
		t.Error("HasAny with no actions should deny")
	}
}
