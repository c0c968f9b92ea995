package auth

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/user/entity"
)

type contextKey struct{}

// Identity is what the gate binds to an authenticated request.
type Identity struct {
	User    *entity.User
	Token   string
	Session *Session
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFromContext returns the identity bound by the gate, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	return id, ok && id != nil
}
