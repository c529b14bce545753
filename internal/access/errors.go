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

package access

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// ErrNotFound reports that a target entity, or a required link in its
	// ownership chain, does not exist. It is a 404-class condition and is
	// never folded into a policy denial.
	ErrNotFound = errors.New("entity not found")

	// ErrUnauthenticated reports a missing or unverifiable principal.
	ErrUnauthenticated = errors.New("not authenticated")
)

// Reason is a machine-distinguishable denial code.
type Reason string

const (
	ReasonOutOfScope        Reason = "OUT_OF_SCOPE"
	ReasonMissingPermission Reason = "MISSING_PERMISSION"
	ReasonInactive          Reason = "INACTIVE"
	ReasonNoRole            Reason = "NO_ROLE"
	ReasonLocked            Reason = "LOCKED"
	ReasonSystemRole        Reason = "SYSTEM_ROLE_NONADMIN"
	ReasonOwnerMismatch     Reason = "OWNER_MISMATCH"
	ReasonDuplicateName     Reason = "DUPLICATE_NAME"
)

// DeniedError is an explicit policy rejection. It is terminal and never
// retried; callers map it to a 403-class outcome (409 for DUPLICATE_NAME).
type DeniedError struct {
	Reason Reason
	Detail string
}

func (e *DeniedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("access denied: %s", e.Reason)
	}
	return fmt.Sprintf("access denied: %s: %s", e.Reason, e.Detail)
}

// Deny builds a DeniedError.
func Deny(reason Reason, detail string) *DeniedError {
	return &DeniedError{Reason: reason, Detail: detail}
}

// Denied unwraps err into a DeniedError if it is one.
func Denied(err error) (*DeniedError, bool) {
	var d *DeniedError
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
