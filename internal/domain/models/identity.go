package models

import (
	"context"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

// Identity is the authenticated caller: an opaque id from the auth collaborator
// plus the active role read from the profile.
type Identity struct {
	UserID string
	Role   types.UserRole
}

func (i *Identity) IsAnonymous() bool {
	return i == nil || i.UserID == ""
}

// AnonymousIdentity is used for requests without a bearer token.
func AnonymousIdentity() *Identity {
	return &Identity{}
}

type identityCtxKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext returns the caller identity, or an anonymous one.
func IdentityFromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityCtxKey{}).(*Identity); ok && id != nil {
		return id
	}
	return AnonymousIdentity()
}
