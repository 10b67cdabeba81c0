package privacy

import (
	"context"
	"fmt"
	"slices"

	"github.com/syssam/relmap"
)

// Viewer represents the authenticated user making a request.
// This interface should be implemented by application-specific user types.
type Viewer interface {
	// GetID returns the viewer's unique identifier.
	GetID() string
	// GetRoles returns the viewer's roles.
	GetRoles() []string
	// GetTenantID returns the viewer's tenant identifier for multi-tenancy.
	// Returns empty string if not applicable.
	GetTenantID() string
}

type viewerCtxKey struct{}

// WithViewer returns a new context with the viewer attached.
func WithViewer(ctx context.Context, viewer Viewer) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, viewer)
}

// ViewerFromContext retrieves the viewer from the context.
// Returns nil if no viewer is present.
func ViewerFromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerCtxKey{}).(Viewer)
	return v
}

// SimpleViewer is a basic implementation of the Viewer interface.
type SimpleViewer struct {
	UserID   string
	Roles    []string
	TenantID string
}

// GetID returns the user ID.
func (v *SimpleViewer) GetID() string {
	return v.UserID
}

// GetRoles returns the user's roles.
func (v *SimpleViewer) GetRoles() []string {
	return v.Roles
}

// GetTenantID returns the tenant ID.
func (v *SimpleViewer) GetTenantID() string {
	return v.TenantID
}

// DenyIfNoViewer returns a rule that denies the write if no viewer is
// present in the context. It is typically the first rule of a policy:
//
//	privacy.NewClass("friendship",
//	    privacy.DenyIfNoViewer(),
//	    privacy.HasRole("admin"),
//	    privacy.IsOwner("owner_id"),
//	    privacy.AlwaysDenyRule(),
//	)
func DenyIfNoViewer() EdgeRule {
	return ContextEdgeRule(func(ctx context.Context) error {
		if ViewerFromContext(ctx) == nil {
			return Denyf("relmap/privacy: viewer required")
		}
		return Skip
	})
}

// HasRole returns a rule that allows the write if the viewer has the
// specified role, and skips otherwise.
func HasRole(role string) EdgeRule {
	return HasAnyRole(role)
}

// HasAnyRole returns a rule that allows the write if the viewer has any of
// the specified roles, and skips otherwise.
func HasAnyRole(roles ...string) EdgeRule {
	return ContextEdgeRule(func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		viewerRoles := viewer.GetRoles()
		for _, role := range roles {
			if slices.Contains(viewerRoles, role) {
				return Allow
			}
		}
		return Skip
	})
}

// IsOwner returns a rule that allows the write if the start node's property
// matches the viewer's ID.
func IsOwner(property string) EdgeRule {
	return EdgeRuleFunc(func(ctx context.Context, e *relmap.Edge) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		value, ok := e.Start().Get(property)
		if !ok {
			return Skip
		}
		if stringify(value) == viewer.GetID() {
			return Allow
		}
		return Skip
	})
}

// TenantRule returns a rule that denies edges crossing tenants: both
// endpoints that carry the property must match the viewer's tenant.
func TenantRule(property string) EdgeRule {
	return EdgeRuleFunc(func(ctx context.Context, e *relmap.Edge) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil || viewer.GetTenantID() == "" {
			return Skip
		}
		for _, n := range []*relmap.Node{e.Start(), e.End()} {
			value, ok := n.Get(property)
			if !ok {
				continue
			}
			if stringify(value) != viewer.GetTenantID() {
				return Denyf("relmap/privacy: tenant mismatch on %s", n)
			}
		}
		return Skip
	})
}

func stringify(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
