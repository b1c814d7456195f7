// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// Identity contains the caller identity resolved by the identity middleware.
// OrgID scopes every read and write; Actor is an opaque display name recorded
// on audit entries and counts. This service does not authenticate or authorize,
// it records whatever identity it is handed.
type Identity struct {
	OrgID string
	Actor string
}

type identityKey struct{}

// WithIdentity adds Identity to context.
func WithIdentity(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, ident)
}

// GetIdentity returns Identity from context or nil.
func GetIdentity(ctx context.Context) *Identity {
	if v, ok := ctx.Value(identityKey{}).(*Identity); ok {
		return v
	}
	return nil
}

// GetOrgID returns the organization scope from context or empty string.
func GetOrgID(ctx context.Context) string {
	if ident := GetIdentity(ctx); ident != nil {
		return ident.OrgID
	}
	return ""
}

// GetActor returns the caller display name from context or empty string.
func GetActor(ctx context.Context) string {
	if ident := GetIdentity(ctx); ident != nil {
		return ident.Actor
	}
	return ""
}
