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

package http

import (
	"context"

	"github.com/crewdesk/crewdesk/internal/access"
)

type contextKey string

const principalKey contextKey = "principal"

// GetPrincipal retrieves the authenticated principal from context. Nil when
// the request never passed AuthMiddleware.
func GetPrincipal(ctx context.Context) *access.Principal {
	if p, ok := ctx.Value(principalKey).(*access.Principal); ok {
		return p
	}
	return nil
}

func withPrincipal(ctx context.Context, p *access.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}
