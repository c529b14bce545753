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

import (
	"context"

	"github.com/crewdesk/crewdesk/internal/access"
)

// Repository defines role persistence. GetRole satisfies access.RoleStore so
// the same implementation backs both the engine and the lifecycle service.
type Repository interface {
	Create(ctx context.Context, r *access.Role) error
	GetRole(ctx context.Context, id string) (*access.Role, error)

	// GetByName looks a role up by its stored (trimmed) name within one
	// tenant. Returns access.ErrNotFound when absent.
	GetByName(ctx context.Context, ownerID, name string) (*access.Role, error)

	Update(ctx context.Context, r *access.Role) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]*access.Role, error)
}
