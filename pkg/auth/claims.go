package auth

import "context"

// Claims is the validated identity carried by every authenticated request:
// which tenant the caller belongs to, which agent it identifies as, and
// which roles it holds. A caller may hold more than one role (e.g. a
// curator agent that also emits); HasRole checks whether any held role
// satisfies the minimum required.
type Claims struct {
	TenantID string
	AgentID  string
	Roles    []Role
}

// HasRole reports whether any of c's roles satisfies min.
func (c Claims) HasRole(min Role) bool {
	for _, r := range c.Roles {
		if r.Allows(min) {
			return true
		}
	}
	return false
}

// IsCurator is shorthand for HasRole(RoleCurator), used by the store's
// raw-read ACL check where the caller's curator-ness overrides ACL.
func (c Claims) IsCurator() bool {
	return c.HasRole(RoleCurator)
}

type claimsContextKey struct{}

// WithClaims returns a copy of ctx carrying c, retrievable with
// ClaimsFromContext.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, c)
}

// ClaimsFromContext extracts the Claims a prior middleware stage attached,
// if any.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(Claims)
	return c, ok
}
