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
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crewdesk/crewdesk/internal/access"
	"github.com/crewdesk/crewdesk/internal/entity"
	"github.com/crewdesk/crewdesk/internal/id"
)

const (
	actionViewInvoice     = "view_invoice"
	actionCreateInvoice   = "create_invoice"
	actionUpdateInvoice   = "update_invoice"
	actionCreatePayment   = "create_payment"
	actionUpdateMilestone = "update_milestone"
	actionCreateMilestone = "create_milestone"
)

// ListClients lists the clients in scope.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())

	f, err := h.filters.Build(r.Context(), p, entity.TypeClient, entity.Filter{})
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	clients, err := h.store.ListClients(r.Context(), f)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"clients": clients})
}

// ListProjects lists the projects in scope. Projects carry no owner field;
// scope narrows through the client join. ?client= narrows further.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())

	caller := entity.Filter{}
	if client := r.URL.Query().Get("client"); client != "" {
		caller = caller.WithCondition("client", client)
	}

	f, err := h.filters.Build(r.Context(), p, entity.TypeProject, caller)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	projects, err := h.store.ListProjects(r.Context(), f)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// ListLeads lists the leads in scope via assignment and service-interest
// derivation.
func (h *Handler) ListLeads(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())

	caller := entity.Filter{}
	if assigned := r.URL.Query().Get("assigned_to"); assigned != "" {
		caller = caller.WithCondition("assigned_to", assigned)
	}

	f, err := h.filters.Build(r.Context(), p, entity.TypeLead, caller)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	leads, err := h.store.ListLeads(r.Context(), f)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"leads": leads})
}

// ListInvoices lists the invoices in scope. ?payment_status= narrows.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())

	caller := entity.Filter{}
	if status := r.URL.Query().Get("payment_status"); status != "" {
		caller = caller.WithCondition("payment_status", status)
	}

	f, err := h.filters.Build(r.Context(), p, entity.TypeInvoice, caller)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	invoices, err := h.store.ListInvoices(r.Context(), f)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

// GetInvoice returns a single invoice.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	invoiceID := chi.URLParam(r, "invoiceID")

	if err := h.resolver.Authorize(r.Context(), p, actionViewInvoice, access.Ref{Type: entity.TypeInvoice, ID: invoiceID}); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	inv, err := h.store.GetInvoice(r.Context(), invoiceID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

// CreateInvoiceRequest is the invoice creation payload.
type CreateInvoiceRequest struct {
	CreatedBy     string `json:"created_by,omitempty"`
	Client        string `json:"client,omitempty"`
	Amount        int64  `json:"amount"`
	PaymentStatus string `json:"payment_status,omitempty"`
}

// CreateInvoice creates an invoice
// @Summary Create an invoice
// @Tags Invoices
// @Accept json
// @Produce json
// @Param request body CreateInvoiceRequest true "Invoice Data"
// @Success 201 {object} entity.Invoice
// @Failure 403 {object} map[string]string
// @Router /invoices [post]
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())

	var req CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CreatedBy == "" && p != nil && !p.IsAdmin() {
		req.CreatedBy = p.TenantID()
	}

	if err := h.resolver.AuthorizeCreate(r.Context(), p, actionCreateInvoice, req.CreatedBy); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	// The client reference is a scope boundary of its own.
	if req.Client != "" {
		if err := h.resolver.Authorize(r.Context(), p, actionCreateInvoice, access.Ref{Type: entity.TypeClient, ID: req.Client}); err != nil {
			h.respondDomainError(w, r, err)
			return
		}
	}

	now := time.Now()
	inv := &entity.Invoice{
		ID:            id.NewUUIDv7(),
		CreatedBy:     req.CreatedBy,
		Client:        req.Client,
		Amount:        req.Amount,
		PaymentStatus: req.PaymentStatus,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.store.CreateInvoice(r.Context(), inv); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, inv)
}

// UpdateInvoiceRequest carries the mutable invoice fields. Nil pointers
// mean "leave unchanged".
type UpdateInvoiceRequest struct {
	Client        *string `json:"client,omitempty"`
	Amount        *int64  `json:"amount,omitempty"`
	PaymentStatus *string `json:"payment_status,omitempty"`
}

// UpdateInvoice mutates an invoice. Rewriting the client reference is a
// scope move; the new client must be in scope too.
func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	invoiceID := chi.URLParam(r, "invoiceID")

	var req UpdateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ref := access.Ref{Type: entity.TypeInvoice, ID: invoiceID}
	if req.Client != nil && *req.Client != "" {
		err := h.resolver.AuthorizeMove(r.Context(), p, actionUpdateInvoice, ref,
			access.Ref{Type: entity.TypeClient, ID: *req.Client})
		if err != nil {
			h.respondDomainError(w, r, err)
			return
		}
	} else if err := h.resolver.Authorize(r.Context(), p, actionUpdateInvoice, ref); err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	inv, err := h.store.GetInvoice(r.Context(), invoiceID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	if req.Client != nil {
		inv.Client = *req.Client
	}
	if req.Amount != nil {
		inv.Amount = *req.Amount
	}
	if req.PaymentStatus != nil {
		inv.PaymentStatus = *req.PaymentStatus
	}
	inv.UpdatedAt = time.Now()

	if err := h.store.UpdateInvoice(r.Context(), inv); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}

// CreatePaymentRequest is the payment creation payload.
type CreatePaymentRequest struct {
	Amount int64  `json:"amount"`
	Method string `json:"method,omitempty"`
}

// CreatePayment records a payment against an invoice. Payments have no
// owner field; authorization runs against the invoice they apply to.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	invoiceID := chi.URLParam(r, "invoiceID")

	if err := h.resolver.Authorize(r.Context(), p, actionCreatePayment, access.Ref{Type: entity.TypeInvoice, ID: invoiceID}); err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pay := &entity.Payment{
		ID:        id.NewUUIDv7(),
		InvoiceID: invoiceID,
		Amount:    req.Amount,
		Method:    req.Method,
		CreatedAt: time.Now(),
	}
	if err := h.store.CreatePayment(r.Context(), pay); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, pay)
}

// AttachMilestoneRequest names the invoice a milestone is attached to.
type AttachMilestoneRequest struct {
	InvoiceID string `json:"invoice_id"`
}

// AttachMilestone links a milestone to an invoice. Attachment rewrites a
// scope boundary on both sides, so the milestone and the invoice must each
// be in scope. Either milestone permission clears the milestone side.
func (h *Handler) AttachMilestone(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	milestoneID := chi.URLParam(r, "milestoneID")

	var req AttachMilestoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InvoiceID == "" {
		respondError(w, http.StatusBadRequest, "invoice_id is required")
		return
	}

	milestoneActions := []string{actionUpdateMilestone, actionCreateMilestone}
	if err := h.resolver.AuthorizeAny(r.Context(), p, milestoneActions, access.Ref{Type: entity.TypeMilestone, ID: milestoneID}); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	if err := h.resolver.Authorize(r.Context(), p, actionUpdateInvoice, access.Ref{Type: entity.TypeInvoice, ID: req.InvoiceID}); err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	m, err := h.store.GetMilestone(r.Context(), milestoneID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	inv, err := h.store.GetInvoice(r.Context(), req.InvoiceID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	if !milestoneAttached(m, inv.ID) {
		m.InvoiceAttached = append(m.InvoiceAttached, entity.InvoiceRef{InvoiceID: inv.ID})
		m.UpdatedAt = time.Now()
		if err := h.store.UpdateMilestone(r.Context(), m); err != nil {
			h.respondDomainError(w, r, err)
			return
		}
	}
	if !containsString(inv.Milestones, m.ID) {
		inv.Milestones = append(inv.Milestones, m.ID)
		inv.UpdatedAt = time.Now()
		if err := h.store.UpdateInvoice(r.Context(), inv); err != nil {
			h.respondDomainError(w, r, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, m)
}

func milestoneAttached(m *entity.Milestone, invoiceID string) bool {
	for _, ref := range m.InvoiceAttached {
		if ref.InvoiceID == invoiceID {
			return true
		}
	}
	return false
}

func containsString(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
