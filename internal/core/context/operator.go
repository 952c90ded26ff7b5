package context

import (
	"context"
	"slices"
)

// Operator is the authenticated caller of the ops API.
type Operator struct {
	Subject string
	Roles   []string
	// Sites restricts the operator to these sites; empty means every site.
	Sites []string
}

// HasRole reports whether the operator holds role.
func (o *Operator) HasRole(role string) bool {
	return o != nil && slices.Contains(o.Roles, role)
}

// CanAccessSite reports whether the operator may act on siteID.
func (o *Operator) CanAccessSite(siteID string) bool {
	if o == nil {
		return false
	}
	return len(o.Sites) == 0 || slices.Contains(o.Sites, siteID)
}

type operatorKey struct{}

// WithOperator adds Operator to context.
func WithOperator(ctx context.Context, op *Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// GetOperator returns Operator from context.
func GetOperator(ctx context.Context) *Operator {
	if v, ok := ctx.Value(operatorKey{}).(*Operator); ok {
		return v
	}
	return nil
}
