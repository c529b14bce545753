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

package logger

import (
	"context"
	"log/slog"
)

// AccessEvent is a security-relevant decision as seen at the transport
// edge. The audit package carries the domain-level trail; this logger is
// the request-scoped view the HTTP middleware emits.
type AccessEvent struct {
	EventType     string
	PrincipalID   string
	PrincipalKind string
	TenantID      string
	IPAddress     string
	Action        string
	Resource      string
	Result        string // success, failure, denied
	Reason        string
	Metadata      map[string]any
}

// AccessLogger logs access-control decisions.
type AccessLogger struct {
	logger *slog.Logger
}

// NewAccessLogger creates a new access logger.
func NewAccessLogger(logger *slog.Logger) *AccessLogger {
	return &AccessLogger{
		logger: logger.With(Component("access")),
	}
}

// Log logs an access event
func (a *AccessLogger) Log(ctx context.Context, event AccessEvent) {
	attrs := []slog.Attr{
		slog.String("event_type", event.EventType),
		slog.String("action", event.Action),
		slog.String("result", event.Result),
	}

	if event.PrincipalID != "" {
		attrs = append(attrs, slog.String("principal_id", event.PrincipalID))
	}
	if event.PrincipalKind != "" {
		attrs = append(attrs, slog.String("principal_kind", event.PrincipalKind))
	}
	if event.TenantID != "" {
		attrs = append(attrs, slog.String("tenant_id", event.TenantID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.Resource != "" {
		attrs = append(attrs, slog.String("resource", event.Resource))
	}
	if event.Reason != "" {
		attrs = append(attrs, slog.String("reason", event.Reason))
	}
	if len(event.Metadata) > 0 {
		attrs = append(attrs, slog.Any("metadata", event.Metadata))
	}

	a.logger.LogAttrs(ctx, slog.LevelInfo, "access_event", attrs...)
}

// Authentication events
func (a *AccessLogger) LoginSuccess(ctx context.Context, principalID, ipAddr string) {
	a.Log(ctx, AccessEvent{
		EventType:   "authentication",
		PrincipalID: principalID,
		IPAddress:   ipAddr,
		Action:      "login",
		Result:      "success",
	})
}

func (a *AccessLogger) LoginFailure(ctx context.Context, email, ipAddr, reason string) {
	a.Log(ctx, AccessEvent{
		EventType: "authentication",
		IPAddress: ipAddr,
		Action:    "login",
		Result:    "failure",
		Reason:    reason,
		Metadata:  map[string]any{"email": email},
	})
}

func (a *AccessLogger) Unauthenticated(ctx context.Context, ipAddr, path string) {
	a.Log(ctx, AccessEvent{
		EventType: "authentication",
		IPAddress: ipAddr,
		Action:    "request",
		Resource:  path,
		Result:    "failure",
		Reason:    "unauthenticated",
	})
}

// Access control events
func (a *AccessLogger) AccessDenied(ctx context.Context, principalID, kind, tenantID, resource, reason string) {
	a.Log(ctx, AccessEvent{
		EventType:     "access_control",
		PrincipalID:   principalID,
		PrincipalKind: kind,
		TenantID:      tenantID,
		Action:        "access",
		Resource:      resource,
		Result:        "denied",
		Reason:        reason,
	})
}

func (a *AccessLogger) NotFound(ctx context.Context, principalID, resource string) {
	a.Log(ctx, AccessEvent{
		EventType:   "access_control",
		PrincipalID: principalID,
		Action:      "access",
		Resource:    resource,
		Result:      "failure",
		Reason:      "not_found",
	})
}
