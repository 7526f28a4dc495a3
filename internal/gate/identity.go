package gate

import (
	"context"

	"github.com/example/userauth/internal/token"
)

// Identity is the authenticated caller of one request. It is never persisted.
type Identity struct {
	Subject     string
	Email       string
	Role        token.Role
	Authorities []string
}

type identityKey struct{}

// WithIdentity returns ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity attached by the gate, if any.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

func identityFrom(c *token.Claims) *Identity {
	return &Identity{
		Subject:     c.Subject,
		Email:       c.Email,
		Role:        c.Role,
		Authorities: []string{"ROLE_" + string(c.Role)},
	}
}
