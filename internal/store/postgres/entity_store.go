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

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/crewdesk/crewdesk/internal/access"
	"github.com/crewdesk/crewdesk/internal/entity"
)

// EntityStore implements entity.Store. List queries append the access
// layer's tenant predicate as `field = ANY($n)`; condition fields are checked
// against a per-table allowlist so a caller-supplied filter can never smuggle
// SQL.
type EntityStore struct {
	db *DB
}

// NewEntityStore creates a new entity store.
func NewEntityStore(db *DB) *EntityStore {
	return &EntityStore{db: db}
}

var listColumns = map[string]map[string]bool{
	"clients":      {"added_by": true, "user_id": true},
	"projects":     {"client": true},
	"invoices":     {"created_by": true, "client": true, "payment_status": true},
	"leads":        {"assigned_to": true},
	"team_members": {"managed_by": true, "status": true},
}

// whereClause builds the WHERE fragment for a list query. The tenant
// predicate and every condition field must appear in the table's allowlist;
// the synthetic lead scope is handled by the caller and passed through here
// as a prebuilt fragment.
func whereClause(table string, f entity.Filter, extra string) (string, []any, error) {
	cols := listColumns[table]
	var parts []string
	var args []any

	if f.TenantField != "" && f.TenantField != "tenant" {
		if !cols[f.TenantField] {
			return "", nil, fmt.Errorf("unknown scope field %q for %s", f.TenantField, table)
		}
		args = append(args, f.TenantIDs)
		parts = append(parts, fmt.Sprintf("%s = ANY($%d)", f.TenantField, len(args)))
	}
	for field, value := range f.Conditions {
		if !cols[field] {
			return "", nil, fmt.Errorf("unknown filter field %q for %s", field, table)
		}
		args = append(args, value)
		parts = append(parts, fmt.Sprintf("%s = $%d", field, len(args)))
	}
	if extra != "" {
		parts = append(parts, extra)
	}

	if len(parts) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func notFoundErr(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, access.ErrNotFound)
}

// --- clients ---

func (s *EntityStore) GetClient(ctx context.Context, id string) (*entity.Client, error) {
	c, err := scanClient(s.db.pool.QueryRow(ctx, `
		SELECT id, added_by, user_id, name, email, created_at, updated_at
		FROM clients WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFoundErr("client", id)
	}
	return c, err
}

func (s *EntityStore) CreateClient(ctx context.Context, c *entity.Client) error {
	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO clients (id, added_by, user_id, name, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.AddedBy, c.UserID, c.Name, c.Email, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

func (s *EntityStore) ListClients(ctx context.Context, f entity.Filter) ([]*entity.Client, error) {
	where, args, err := whereClause("clients", f, "")
	if err != nil {
		return nil, err
	}
	rows, err := s.db.pool.Query(ctx, `
		SELECT id, added_by, user_id, name, email, created_at, updated_at
		FROM clients`+where+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var out []*entity.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *EntityStore) ListClientIDs(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := s.db.pool.Query(ctx, `SELECT id FROM clients WHERE added_by = $1`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list client ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanClient(row pgx.Row) (*entity.Client, error) {
	var c entity.Client
	if err := row.Scan(&c.ID, &c.AddedBy, &c.UserID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// --- projects ---

func (s *EntityStore) GetProject(ctx context.Context, id string) (*entity.Project, error) {
	p, err := scanProject(s.db.pool.QueryRow(ctx, `
		SELECT id, client, name, deliverables, created_at, updated_at
		FROM projects WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFoundErr("project", id)
	}
	return p, err
}

func (s *EntityStore) CreateProject(ctx context.Context, p *entity.Project) error {
	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO projects (id, client, name, deliverables, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.Client, p.Name, p.Deliverables, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (s *EntityStore) ListProjects(ctx context.Context, f entity.Filter) ([]*entity.Project, error) {
	where, args, err := whereClause("projects", f, "")
	if err != nil {
		return nil, err
	}
	rows, err := s.db.pool.Query(ctx, `
		SELECT id, client, name, deliverables, created_at, updated_at
		FROM projects`+where+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []*entity.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *EntityStore) FindProjectsByDeliverable(ctx context.Context, milestoneID string) ([]*entity.Project, error) {
	rows, err := s.db.pool.Query(ctx, `
		SELECT id, client, name, deliverables, created_at, updated_at
		FROM projects WHERE $1 = ANY(deliverables)
	`, milestoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to find projects by deliverable: %w", err)
	}
	defer rows.Close()

	var out []*entity.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProject(row pgx.Row) (*entity.Project, error) {
	var p entity.Project
	if err := row.Scan(&p.ID, &p.Client, &p.Name, &p.Deliverables, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// --- invoices ---

func (s *EntityStore) GetInvoice(ctx context.Context, id string) (*entity.Invoice, error) {
	inv, err := scanInvoice(s.db.pool.QueryRow(ctx, `
		SELECT id, created_by, client, milestones, amount, payment_status, created_at, updated_at
		FROM invoices WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFoundErr("invoice", id)
	}
	return inv, err
}

func (s *EntityStore) CreateInvoice(ctx context.Context, inv *entity.Invoice) error {
	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO invoices (id, created_by, client, milestones, amount, payment_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, inv.ID, inv.CreatedBy, nullable(inv.Client), inv.Milestones, inv.Amount, inv.PaymentStatus, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

func (s *EntityStore) UpdateInvoice(ctx context.Context, inv *entity.Invoice) error {
	result, err := s.db.pool.Exec(ctx, `
		UPDATE invoices
		SET client = $2, milestones = $3, amount = $4, payment_status = $5, updated_at = $6
		WHERE id = $1
	`, inv.ID, nullable(inv.Client), inv.Milestones, inv.Amount, inv.PaymentStatus, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	if result.RowsAffected() == 0 {
		return notFoundErr("invoice", inv.ID)
	}
	return nil
}

func (s *EntityStore) ListInvoices(ctx context.Context, f entity.Filter) ([]*entity.Invoice, error) {
	where, args, err := whereClause("invoices", f, "")
	if err != nil {
		return nil, err
	}
	rows, err := s.db.pool.Query(ctx, `
		SELECT id, created_by, client, milestones, amount, payment_status, created_at, updated_at
		FROM invoices`+where+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var out []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *EntityStore) FindInvoicesByMilestone(ctx context.Context, milestoneID string) ([]*entity.Invoice, error) {
	rows, err := s.db.pool.Query(ctx, `
		SELECT id, created_by, client, milestones, amount, payment_status, created_at, updated_at
		FROM invoices WHERE $1 = ANY(milestones)
	`, milestoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to find invoices by milestone: %w", err)
	}
	defer rows.Close()

	var out []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var client sql.NullString
	if err := row.Scan(&inv.ID, &inv.CreatedBy, &client, &inv.Milestones, &inv.Amount, &inv.PaymentStatus, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return nil, err
	}
	inv.Client = client.String
	return &inv, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// --- payments ---

func (s *EntityStore) GetPayment(ctx context.Context, id string) (*entity.Payment, error) {
	var p entity.Payment
	err := s.db.pool.QueryRow(ctx, `
		SELECT id, invoice_id, amount, method, created_at FROM payments WHERE id = $1
	`, id).Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFoundErr("payment", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *EntityStore) CreatePayment(ctx context.Context, p *entity.Payment) error {
	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO payments (id, invoice_id, amount, method, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.InvoiceID, p.Amount, p.Method, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// --- milestones ---

func (s *EntityStore) GetMilestone(ctx context.Context, id string) (*entity.Milestone, error) {
	var m entity.Milestone
	var attached, uploads []byte
	err := s.db.pool.QueryRow(ctx, `
		SELECT id, title, invoice_attached, uploads, created_at, updated_at
		FROM milestones WHERE id = $1
	`, id).Scan(&m.ID, &m.Title, &attached, &uploads, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFoundErr("milestone", id)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(attached, &m.InvoiceAttached); err != nil {
		return nil, fmt.Errorf("failed to decode invoice refs: %w", err)
	}
	if err := json.Unmarshal(uploads, &m.Uploads); err != nil {
		return nil, fmt.Errorf("failed to decode uploads: %w", err)
	}
	return &m, nil
}

func (s *EntityStore) CreateMilestone(ctx context.Context, m *entity.Milestone) error {
	attached, uploads, err := encodeMilestone(m)
	if err != nil {
		return err
	}
	_, err = s.db.pool.Exec(ctx, `
		INSERT INTO milestones (id, title, invoice_attached, uploads, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.Title, attached, uploads, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create milestone: %w", err)
	}
	return nil
}

func (s *EntityStore) UpdateMilestone(ctx context.Context, m *entity.Milestone) error {
	attached, uploads, err := encodeMilestone(m)
	if err != nil {
		return err
	}
	result, err := s.db.pool.Exec(ctx, `
		UPDATE milestones SET title = $2, invoice_attached = $3, uploads = $4, updated_at = $5
		WHERE id = $1
	`, m.ID, m.Title, attached, uploads, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update milestone: %w", err)
	}
	if result.RowsAffected() == 0 {
		return notFoundErr("milestone", m.ID)
	}
	return nil
}

func encodeMilestone(m *entity.Milestone) ([]byte, []byte, error) {
	attached, err := json.Marshal(m.InvoiceAttached)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode invoice refs: %w", err)
	}
	uploads, err := json.Marshal(m.Uploads)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode uploads: %w", err)
	}
	return attached, uploads, nil
}

// --- services ---

func (s *EntityStore) GetService(ctx context.Context, id string) (*entity.Service, error) {
	var svc entity.Service
	err := s.db.pool.QueryRow(ctx, `
		SELECT id, user_id, name, created_at FROM services WHERE id = $1
	`, id).Scan(&svc.ID, &svc.UserID, &svc.Name, &svc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFoundErr("service", id)
	}
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

// --- leads ---

func (s *EntityStore) GetLead(ctx context.Context, id string) (*entity.Lead, error) {
	l, err := scanLead(s.db.pool.QueryRow(ctx, `
		SELECT id, assigned_to, looking_for, name, email, created_at
		FROM leads WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFoundErr("lead", id)
	}
	return l, err
}

// ListLeads resolves the synthetic "tenant" scope with the same derivation
// the ownership table uses: the assigned member's tenant or the owner of an
// interesting service.
func (s *EntityStore) ListLeads(ctx context.Context, f entity.Filter) ([]*entity.Lead, error) {
	var extra string
	scoped := f
	if f.TenantField == "tenant" {
		extra = `(
			EXISTS (SELECT 1 FROM team_members tm WHERE tm.id = leads.assigned_to AND tm.managed_by = ANY($1))
			OR EXISTS (SELECT 1 FROM services sv WHERE sv.id::text = ANY(leads.looking_for) AND sv.user_id = ANY($1))
		)`
		scoped.TenantField = ""
	}

	var args []any
	if extra != "" {
		args = append(args, f.TenantIDs)
	}
	where, condArgs, err := leadWhere(scoped, extra, len(args))
	if err != nil {
		return nil, err
	}
	args = append(args, condArgs...)

	rows, err := s.db.pool.Query(ctx, `
		SELECT id, assigned_to, looking_for, name, email, created_at
		FROM leads`+where+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var out []*entity.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func leadWhere(f entity.Filter, extra string, offset int) (string, []any, error) {
	cols := listColumns["leads"]
	var parts []string
	var args []any
	if extra != "" {
		parts = append(parts, extra)
	}
	for field, value := range f.Conditions {
		if !cols[field] {
			return "", nil, fmt.Errorf("unknown filter field %q for leads", field)
		}
		args = append(args, value)
		parts = append(parts, fmt.Sprintf("%s = $%d", field, offset+len(args)))
	}
	if len(parts) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func scanLead(row pgx.Row) (*entity.Lead, error) {
	var l entity.Lead
	var assigned sql.NullString
	if err := row.Scan(&l.ID, &assigned, &l.LookingFor, &l.Name, &l.Email, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.AssignedTo = assigned.String
	return &l, nil
}

// --- team members ---

func (s *EntityStore) GetTeamMember(ctx context.Context, id string) (*entity.TeamMember, error) {
	m, err := scanMember(s.db.pool.QueryRow(ctx, `
		SELECT id, managed_by, role_id, status, name, email, created_at, updated_at
		FROM team_members WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFoundErr("team member", id)
	}
	return m, err
}

func (s *EntityStore) CreateTeamMember(ctx context.Context, m *entity.TeamMember) error {
	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO team_members (id, managed_by, role_id, status, name, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, m.ID, m.ManagedBy, nullable(m.RoleID), m.Status, m.Name, m.Email, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create team member: %w", err)
	}
	return nil
}

func (s *EntityStore) UpdateTeamMember(ctx context.Context, m *entity.TeamMember) error {
	result, err := s.db.pool.Exec(ctx, `
		UPDATE team_members
		SET managed_by = $2, role_id = $3, status = $4, name = $5, email = $6, updated_at = $7
		WHERE id = $1
	`, m.ID, m.ManagedBy, nullable(m.RoleID), m.Status, m.Name, m.Email, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update team member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return notFoundErr("team member", m.ID)
	}
	return nil
}

func (s *EntityStore) DeleteTeamMember(ctx context.Context, id string) error {
	result, err := s.db.pool.Exec(ctx, `DELETE FROM team_members WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete team member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return notFoundErr("team member", id)
	}
	return nil
}

func (s *EntityStore) ListTeamMembers(ctx context.Context, f entity.Filter) ([]*entity.TeamMember, error) {
	where, args, err := whereClause("team_members", f, "")
	if err != nil {
		return nil, err
	}
	rows, err := s.db.pool.Query(ctx, `
		SELECT id, managed_by, role_id, status, name, email, created_at, updated_at
		FROM team_members`+where+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	var out []*entity.TeamMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMember(row pgx.Row) (*entity.TeamMember, error) {
	var m entity.TeamMember
	var roleID sql.NullString
	if err := row.Scan(&m.ID, &m.ManagedBy, &roleID, &m.Status, &m.Name, &m.Email, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.RoleID = roleID.String
	return &m, nil
}

// --- directly owned records ---

func (s *EntityStore) GetCollaborator(ctx context.Context, id string) (*entity.Collaborator, error) {
	var c entity.Collaborator
	err := s.db.pool.QueryRow(ctx, `
		SELECT id, managed_by, name, created_at FROM collaborators WHERE id = $1
	`, id).Scan(&c.ID, &c.ManagedBy, &c.Name, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFoundErr("collaborator", id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *EntityStore) GetRateCard(ctx context.Context, id string) (*entity.RateCard, error) {
	var rc entity.RateCard
	err := s.db.pool.QueryRow(ctx, `
		SELECT id, user_id, title, created_at FROM rate_cards WHERE id = $1
	`, id).Scan(&rc.ID, &rc.UserID, &rc.Title, &rc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFoundErr("rate card", id)
	}
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

func (s *EntityStore) GetPublicProfile(ctx context.Context, id string) (*entity.PublicProfile, error) {
	var p entity.PublicProfile
	err := s.db.pool.QueryRow(ctx, `
		SELECT id, user_id, handle, created_at FROM public_profiles WHERE id = $1
	`, id).Scan(&p.ID, &p.UserID, &p.Handle, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFoundErr("public profile", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
