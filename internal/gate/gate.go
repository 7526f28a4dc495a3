// Package gate authenticates every inbound request from its bearer token.
//
// A request is either on the public allow-list, rejected, or carries an Identity in its
// context for the rest of its handling. The revocation set is consulted before the token is
// decoded so that a signed-out token is reported as "Token invalid" rather than the generic
// "Unauthorized".
package gate

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/example/userauth/internal/respond"
	"github.com/example/userauth/internal/revocation"
	"github.com/example/userauth/internal/token"
)

var (
	ErrUnauthorized = errors.New("Unauthorized")
	ErrTokenInvalid = errors.New("Token invalid")

	errMissingCredential = errors.New("missing or malformed bearer credential")
)

const bearerPrefix = "Bearer "

// Gate is the per-request authenticator.
type Gate struct {
	codec  *token.Codec
	store  *revocation.Store
	public []string
	logger *logrus.Logger
}

// New builds a Gate. Entries of publicPaths ending in "/" match as prefixes; all others
// must match the request path exactly.
func New(codec *token.Codec, store *revocation.Store, publicPaths []string, logger *logrus.Logger) *Gate {
	return &Gate{
		codec:  codec,
		store:  store,
		public: append([]string(nil), publicPaths...),
		logger: logger,
	}
}

// IsPublic reports whether path skips authentication.
func (g *Gate) IsPublic(path string) bool {
	for _, p := range g.public {
		if strings.HasSuffix(p, "/") {
			if strings.HasPrefix(path, p) {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

// Middleware rejects requests to non-public paths that do not carry a valid, unrevoked token.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.IsPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		id, err := g.Authenticate(r.Header.Get("Authorization"))
		if err != nil {
			g.logRejection(r, err)
			WriteRejection(w, err)
			return
		}
		g.logger.WithFields(logrus.Fields{"sub": id.Subject, "role": id.Role}).Debug("authenticated request")
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// Authenticate turns an Authorization header value into an Identity.
func (g *Gate) Authenticate(header string) (*Identity, error) {
	raw, err := bearer(header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if g.store.IsRevoked(raw) {
		return nil, ErrTokenInvalid
	}
	claims, err := g.codec.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return identityFrom(claims), nil
}

// SignOut validates the token in header and revokes it. An invalid or expired token is
// Unauthorized; a token that is already revoked is Token invalid.
func (g *Gate) SignOut(header string) error {
	raw, err := bearer(header)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	claims, err := g.codec.Decode(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if !g.store.Revoke(raw) {
		return ErrTokenInvalid
	}
	g.logger.WithField("sub", claims.Subject).Info("token revoked on sign-out")
	return nil
}

// WriteRejection writes the 401 body for an error returned by Authenticate or SignOut.
func WriteRejection(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrTokenInvalid) {
		respond.Error(w, http.StatusUnauthorized, respond.CodeTokenInvalid, ErrTokenInvalid.Error())
		return
	}
	respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, ErrUnauthorized.Error())
}

func (g *Gate) logRejection(r *http.Request, err error) {
	entry := g.logger.WithFields(logrus.Fields{"path": r.URL.Path, "method": r.Method})
	if errors.Is(err, ErrTokenInvalid) {
		entry.Warn("blocked request with revoked token")
		return
	}
	entry.WithError(err).Debug("rejected unauthenticated request")
}

func bearer(header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", errMissingCredential
	}
	raw := strings.TrimSpace(header[len(bearerPrefix):])
	if raw == "" {
		return "", errMissingCredential
	}
	return raw, nil
}
