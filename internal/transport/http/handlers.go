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

// @title Crewdesk API
// @version 1.0.0
// @description Tenant-scoped business management backend

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/crewdesk/crewdesk/internal/access"
	"github.com/crewdesk/crewdesk/internal/audit"
	"github.com/crewdesk/crewdesk/internal/entity"
	"github.com/crewdesk/crewdesk/internal/identity"
	"github.com/crewdesk/crewdesk/internal/observability/logger"
	"github.com/crewdesk/crewdesk/internal/role"
	"github.com/crewdesk/crewdesk/internal/team"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService *identity.Service
	roleService     *role.Service
	teamService     *team.Service
	resolver        *access.Resolver
	filters         *access.FilterBuilder
	store           entity.Store
	verifier        TokenVerifier
	accessLog       *logger.AccessLogger
	auditLogger     audit.Logger
	denyCounter     metric.Int64Counter
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	roleService *role.Service,
	teamService *team.Service,
	resolver *access.Resolver,
	filters *access.FilterBuilder,
	store entity.Store,
	verifier TokenVerifier,
	accessLog *logger.AccessLogger,
	auditLogger audit.Logger,
	denyCounter metric.Int64Counter,
) *Handler {
	return &Handler{
		identityService: identityService,
		roleService:     roleService,
		teamService:     teamService,
		resolver:        resolver,
		filters:         filters,
		store:           store,
		verifier:        verifier,
		accessLog:       accessLog,
		auditLogger:     auditLogger,
		denyCounter:     denyCounter,
	}
}

func (h *Handler) countDenial(ctx context.Context, reason access.Reason) {
	if h.denyCounter == nil {
		return
	}
	h.denyCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(reason))))
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		// Protected routes. Everything below runs with a resolved
		// principal; scope narrowing happens in the access layer.
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Get("/auth/me", h.Me)
			r.Post("/auth/change-password", h.ChangePassword)

			r.Route("/roles", func(r chi.Router) {
				r.Post("/", h.CreateRole)
				r.Get("/", h.ListRoles)
				r.Get("/{roleID}", h.GetRole)
				r.Put("/{roleID}", h.UpdateRole)
				r.Delete("/{roleID}", h.DeleteRole)
			})

			r.Route("/team", func(r chi.Router) {
				r.Post("/", h.CreateTeamMember)
				r.Get("/", h.ListTeamMembers)
				r.Get("/{memberID}", h.GetTeamMember)
				r.Put("/{memberID}", h.UpdateTeamMember)
				r.Delete("/{memberID}", h.DeleteTeamMember)
				r.Post("/{memberID}/password", h.SetTeamMemberPassword)
			})

			r.Get("/clients", h.ListClients)
			r.Get("/projects", h.ListProjects)
			r.Get("/leads", h.ListLeads)

			r.Route("/invoices", func(r chi.Router) {
				r.Post("/", h.CreateInvoice)
				r.Get("/", h.ListInvoices)
				r.Get("/{invoiceID}", h.GetInvoice)
				r.Put("/{invoiceID}", h.UpdateInvoice)
				r.Post("/{invoiceID}/payments", h.CreatePayment)
			})

			r.Post("/milestones/{milestoneID}/attach", h.AttachMilestone)
		})
	})

	return r
}

// HealthCheck returns the health status
// @Summary Health Check
// @Description Checks if the service is up and running
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "crewdesk",
	})
}

// Register handles owner registration
// @Summary Register a new owner account
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body identity.RegisterInput true "Registration Data"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in identity.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	owner, err := h.identityService.Register(r.Context(), in)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"id":    owner.ID,
		"email": owner.Email,
		"name":  owner.Name,
	})
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" example:"owner@example.com"`
	Password string `json:"password" example:"secret123"`
}

// Login authenticates an owner or team member and issues a bearer token
// @Summary Login
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.identityService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.accessLog.LoginFailure(r.Context(), req.Email, getClientIP(r), "invalid_credentials")
		h.respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"token": token,
	})
}

// Me returns the resolved principal for the current token. The payload is
// live store state, not token claims.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	if p == nil {
		h.respondDomainError(w, r, access.ErrUnauthenticated)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// ChangePasswordRequest carries an owner password change.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword changes the authenticated owner's password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	if p == nil {
		h.respondDomainError(w, r, access.ErrUnauthenticated)
		return
	}
	if p.Kind == access.KindTeamMember {
		h.respondDomainError(w, r, access.Deny(access.ReasonMissingPermission, "owner account required"))
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.identityService.ChangePassword(r.Context(), p.ID, req.OldPassword, req.NewPassword); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}
