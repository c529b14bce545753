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

// PermissionMatrix maps permission group names to action grants. Existing
// role data uses two shapes interchangeably and both must keep working:
//
//	{"project": {"view_project": true}}   grouped
//	{"view_project": true}                flat (legacy, ungrouped)
//
// An action is granted if it is true under any group or true at the top
// level. Anything malformed is ignored: the lookup is best-effort and
// default-deny, and never panics on shapes it does not recognize.
type PermissionMatrix map[string]any

// Has reports whether action is granted by the matrix.
func (m PermissionMatrix) Has(action string) bool {
	if m == nil || action == "" {
		return false
	}

	// Flat top-level key wins first.
	if granted(m[action]) {
		return true
	}

	// Then any group object containing the key.
	for _, v := range m {
		switch group := v.(type) {
		case map[string]any:
			if granted(group[action]) {
				return true
			}
		case map[string]bool:
			if group[action] {
				return true
			}
		case PermissionMatrix:
			if granted(group[action]) {
				return true
			}
		}
	}
	return false
}

// HasAny reports whether any of the actions is granted. Call sites where a
// broader capability satisfies the check (e.g. attaching a milestone accepts
// either update_milestone or create_milestone) declare an action set.
func (m PermissionMatrix) HasAny(actions ...string) bool {
	for _, a := range actions {
		if m.Has(a) {
			return true
		}
	}
	return false
}

// granted interprets a single matrix value. Only a literal true counts;
// strings, numbers, and nested garbage are not grants.
func granted(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
