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
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/crewdesk/crewdesk/internal/access"
	"github.com/crewdesk/crewdesk/internal/identity"
	"github.com/crewdesk/crewdesk/internal/observability/logger"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondDomainError maps the error taxonomy onto HTTP statuses. Not-found
// and denial never blur: a resource the caller cannot see in any tenant is
// 404, a resource the caller can name but not touch is 403 with a reason
// code the client can branch on.
func (h *Handler) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	p := GetPrincipal(ctx)
	principalID := ""
	kind := ""
	tenantID := ""
	if p != nil {
		principalID = p.ID
		kind = string(p.Kind)
		tenantID = p.TenantID()
	}

	switch {
	case errors.Is(err, access.ErrUnauthenticated):
		h.accessLog.Unauthenticated(ctx, getClientIP(r), r.URL.Path)
		respondError(w, http.StatusUnauthorized, "not authenticated")

	case errors.Is(err, access.ErrNotFound):
		h.accessLog.NotFound(ctx, principalID, r.URL.Path)
		respondError(w, http.StatusNotFound, "not found")

	case errors.Is(err, identity.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "invalid credentials")

	case errors.Is(err, identity.ErrAccountLocked):
		respondError(w, http.StatusForbidden, "account locked")

	case errors.Is(err, identity.ErrEmailTaken):
		respondError(w, http.StatusConflict, "email already registered")

	case errors.Is(err, identity.ErrWeakPassword):
		respondError(w, http.StatusBadRequest, err.Error())

	default:
		if denied, ok := access.Denied(err); ok {
			h.accessLog.AccessDenied(ctx, principalID, kind, tenantID, r.URL.Path, string(denied.Reason))
			h.countDenial(ctx, denied.Reason)

			status := http.StatusForbidden
			if denied.Reason == access.ReasonDuplicateName {
				status = http.StatusConflict
			}
			respondJSON(w, status, map[string]string{
				"error":  denied.Error(),
				"reason": string(denied.Reason),
			})
			return
		}

		var verr validation.Errors
		if errors.As(err, &verr) {
			respondJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": verr,
			})
			return
		}
		var verrObj validation.Error
		if errors.As(err, &verrObj) {
			respondError(w, http.StatusBadRequest, verrObj.Error())
			return
		}

		slog.ErrorContext(ctx, "request failed", logger.Error(err), logger.Path(r.URL.Path))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
