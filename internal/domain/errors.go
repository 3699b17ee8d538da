// Package domain provides shared domain-level sentinel errors.
package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested entity does not exist for the acting
// tenant. A resource owned by another tenant is reported identically, so the
// response never leaks cross-tenant existence.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists indicates a logical-id collision within the acting tenant.
var ErrAlreadyExists = errors.New("already exists")

// ErrMissingContext indicates code ran outside a bound tenant scope. This is
// a programming error upstream; callers must never substitute a default
// tenant.
var ErrMissingContext = errors.New("no tenant context bound")

// ErrCrossTenantReference indicates a request referenced a resource owned by
// a different tenant. Never retried or downgraded.
var ErrCrossTenantReference = errors.New("referenced resource belongs to another tenant")

// ErrQuotaExceeded indicates the quota ledger rejected an admit. Use
// errors.Is against this sentinel; the concrete *QuotaExceededError carries
// the usage numbers.
var ErrQuotaExceeded = errors.New("quota exceeded")

// ErrStorageUnavailable indicates the storage collaborator could not be
// reached. Quota admit checks treat this as a rejection (fail closed).
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrValidation indicates a request failed input validation.
var ErrValidation = errors.New("validation failed")

// ErrForbidden indicates the principal's role does not permit the operation.
var ErrForbidden = errors.New("forbidden")

// ErrConflict indicates a concurrent modification conflict (optimistic locking).
var ErrConflict = errors.New("conflict: resource was modified by another request")

// QuotaExceededError reports a rejected admit with the usage observed at
// decision time, for client messaging.
type QuotaExceededError struct {
	Kind    string
	Current int64
	Limit   int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s: %d of %d used", e.Kind, e.Current, e.Limit)
}

// Is makes errors.Is(err, ErrQuotaExceeded) match.
func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
