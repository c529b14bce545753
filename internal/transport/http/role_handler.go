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

	"github.com/crewdesk/crewdesk/internal/role"
)

// CreateRole creates a role
// @Summary Create a role
// @Tags Roles
// @Accept json
// @Produce json
// @Param request body role.CreateInput true "Role Data"
// @Success 201 {object} access.Role
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /roles [post]
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())

	var in role.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// Non-admins create roles in their own tenant only; the declared
	// owner defaults to the caller's anchor rather than trusting the body.
	if in.OwnerID == "" && p != nil && !p.IsAdmin() {
		in.OwnerID = p.TenantID()
	}

	created, err := h.roleService.Create(r.Context(), p, in)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// ListRoles lists the roles of a tenant. Admins may name any tenant with
// ?owner=; everyone else gets their own.
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())

	ownerID := r.URL.Query().Get("owner")
	if ownerID == "" && p != nil {
		ownerID = p.TenantID()
	}

	roles, err := h.roleService.List(r.Context(), p, ownerID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

// GetRole returns a single role.
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())

	got, err := h.roleService.Get(r.Context(), p, chi.URLParam(r, "roleID"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, got)
}

// UpdateRole mutates a role
// @Summary Update a role
// @Tags Roles
// @Accept json
// @Produce json
// @Param roleID path string true "Role ID"
// @Param request body role.UpdateInput true "Changes"
// @Success 200 {object} access.Role
// @Failure 403 {object} map[string]string
// @Router /roles/{roleID} [put]
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())

	var in role.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.roleService.Update(r.Context(), p, chi.URLParam(r, "roleID"), in)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// DeleteRole deletes a role.
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())

	if err := h.roleService.Delete(r.Context(), p, chi.URLParam(r, "roleID")); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
