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

package role

import "github.com/crewdesk/crewdesk/internal/access"

// Template is a seeded default role created for every new owner account.
type Template struct {
	Name        string
	Permissions access.PermissionMatrix
}

// Default templates. Matrices use the grouped shape; the engine accepts the
// flat legacy shape too, but nothing new is written that way.
var DefaultTemplates = []Template{
	{
		Name: "Admin",
		Permissions: access.PermissionMatrix{
			"client": map[string]any{
				"view_client": true, "create_client": true, "update_client": true, "delete_client": true,
			},
			"project": map[string]any{
				"view_project": true, "create_project": true, "update_project": true, "delete_project": true,
			},
			"invoice": map[string]any{
				"view_invoice": true, "create_invoice": true, "update_invoice": true, "delete_invoice": true,
			},
			"payment": map[string]any{
				"view_payment": true, "create_payment": true,
			},
			"milestone": map[string]any{
				"view_milestone": true, "create_milestone": true, "update_milestone": true, "delete_milestone": true,
			},
			"service": map[string]any{
				"view_service": true, "create_service": true, "update_service": true, "delete_service": true,
			},
			"lead": map[string]any{
				"view_lead": true, "create_lead": true, "update_lead": true, "delete_lead": true,
			},
			"team": map[string]any{
				"view_team": true, "create_team": true, "update_team": true, "delete_team": true,
			},
			"role": map[string]any{
				"view_role": true, "create_role": true, "update_role": true, "delete_role": true,
			},
		},
	},
	{
		Name: "Manager",
		Permissions: access.PermissionMatrix{
			"client": map[string]any{
				"view_client": true, "create_client": true, "update_client": true,
			},
			"project": map[string]any{
				"view_project": true, "create_project": true, "update_project": true,
			},
			"invoice": map[string]any{
				"view_invoice": true, "create_invoice": true, "update_invoice": true,
			},
			"payment": map[string]any{
				"view_payment": true, "create_payment": true,
			},
			"milestone": map[string]any{
				"view_milestone": true, "create_milestone": true, "update_milestone": true,
			},
			"lead": map[string]any{
				"view_lead": true, "create_lead": true, "update_lead": true,
			},
		},
	},
	{
		Name: "Viewer",
		Permissions: access.PermissionMatrix{
			"client":    map[string]any{"view_client": true},
			"project":   map[string]any{"view_project": true},
			"invoice":   map[string]any{"view_invoice": true},
			"milestone": map[string]any{"view_milestone": true},
			"lead":      map[string]any{"view_lead": true},
		},
	},
}
