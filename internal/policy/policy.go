// Package policy decides whether an authenticated identity may reach a resource.
package policy

import (
	"errors"
	"net/http"

	"github.com/example/userauth/internal/gate"
	"github.com/example/userauth/internal/respond"
	"github.com/example/userauth/internal/token"
)

var (
	ErrUnauthorized = errors.New("Unauthorized")
	ErrForbidden    = errors.New("Access Denied")
)

// RoleSet is the static set of roles a route accepts.
type RoleSet map[token.Role]struct{}

// Roles builds a RoleSet.
func Roles(roles ...token.Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Has reports whether role is in the set.
func (s RoleSet) Has(role token.Role) bool {
	_, ok := s[role]
	return ok
}

// Decide returns nil when id may access a resource requiring one of roles,
// ErrUnauthorized when there is no identity, and ErrForbidden when the role does not match.
func Decide(id *gate.Identity, roles RoleSet) error {
	if id == nil {
		return ErrUnauthorized
	}
	if !roles.Has(id.Role) {
		return ErrForbidden
	}
	return nil
}

// Require wraps a handler with a role check against the identity attached by the gate.
func Require(roles RoleSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := gate.FromContext(r.Context())
			switch err := Decide(id, roles); {
			case errors.Is(err, ErrUnauthorized):
				respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, err.Error())
			case errors.Is(err, ErrForbidden):
				respond.Error(w, http.StatusForbidden, respond.CodeForbidden, err.Error())
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// SelfOrAdmin reports whether id may act on the account with the given subject id.
func SelfOrAdmin(id *gate.Identity, subject string) bool {
	if id == nil {
		return false
	}
	return id.Role == token.RoleAdmin || id.Subject == subject
}
