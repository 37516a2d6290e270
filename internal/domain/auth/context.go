// Package auth carries the per-request authorization context. It is built
// once by the API boundary and passed explicitly into every use case; the
// core never inspects tokens itself.
package auth

import (
	"context"
)

// Role is the caller's role within the tenant
type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleManager Role = "MANAGER"
	RoleStaff   Role = "STAFF"
)

// Context identifies the caller and the tenant/branch scope every store
// query must be bound to. Tenant scoping is a hard invariant, not an
// optimization.
type Context struct {
	TenantID string
	BranchID string
	UserID   string
	Role     Role
}

// CanRefund reports whether the caller may issue refunds
func (c Context) CanRefund() bool {
	return c.Role == RoleOwner || c.Role == RoleManager
}

type ctxKey struct{}

// WithContext attaches the auth context to a request context
func WithContext(ctx context.Context, ac Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, ac)
}

// FromContext extracts the auth context set by the boundary middleware
func FromContext(ctx context.Context) (Context, bool) {
	ac, ok := ctx.Value(ctxKey{}).(Context)
	return ac, ok
}
