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
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crewdesk/crewdesk/internal/access"
	"github.com/crewdesk/crewdesk/internal/entity"
	"github.com/crewdesk/crewdesk/internal/team"
)

// CreateTeamMember adds a team member
// @Summary Add a team member
// @Tags Team
// @Accept json
// @Produce json
// @Param request body team.CreateInput true "Member Data"
// @Success 201 {object} entity.TeamMember
// @Failure 403 {object} map[string]string
// @Router /team [post]
func (h *Handler) CreateTeamMember(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())

	var in team.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.ManagedBy == "" && p != nil && !p.IsAdmin() {
		in.ManagedBy = p.TenantID()
	}

	m, err := h.teamService.Create(r.Context(), p, in)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, m)
}

// ListTeamMembers lists members in scope. ?status= narrows by lifecycle
// state.
func (h *Handler) ListTeamMembers(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())

	caller := entity.Filter{}
	if status := r.URL.Query().Get("status"); status != "" {
		caller = caller.WithCondition("status", status)
	}

	members, err := h.teamService.List(r.Context(), p, caller)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"members": members})
}

// GetTeamMember returns a single member.
func (h *Handler) GetTeamMember(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())

	m, err := h.teamService.Get(r.Context(), p, chi.URLParam(r, "memberID"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

// UpdateTeamMember mutates a member. A managed_by change is a tenant move
// and is re-authorized against the destination.
func (h *Handler) UpdateTeamMember(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())

	var in team.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.teamService.Update(r.Context(), p, chi.URLParam(r, "memberID"), in)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

// DeleteTeamMember removes a member.
func (h *Handler) DeleteTeamMember(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())

	if err := h.teamService.Delete(r.Context(), p, chi.URLParam(r, "memberID")); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetPasswordRequest carries a member credential assignment.
type SetPasswordRequest struct {
	Password string `json:"password"`
}

// SetTeamMemberPassword sets login credentials for a member. Gated by the
// same permission as any other member mutation.
func (h *Handler) SetTeamMemberPassword(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	memberID := chi.URLParam(r, "memberID")

	if err := h.resolver.Authorize(r.Context(), p, team.ActionUpdate, access.Ref{Type: entity.TypeTeamMember, ID: memberID}); err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	var req SetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.store.GetTeamMember(r.Context(), memberID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	if err := h.identityService.SetMemberPassword(r.Context(), m.ID, m.Email, req.Password); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "password set"})
}
