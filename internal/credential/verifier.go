package credential

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/userauth/internal/token"
)

// DefaultMaxPayload bounds the serialized size of a sign-up request.
const DefaultMaxPayload = 10_000_000

// Verifier checks passwords against stored hashes and issues tokens on success.
type Verifier struct {
	users      UserStore
	hasher     PasswordHasher
	codec      *token.Codec
	maxPayload int

	// decoy is compared against when the email is unknown so both failure paths pay for one
	// hash comparison.
	decoy string
}

// NewVerifier wires a Verifier. maxPayload <= 0 selects DefaultMaxPayload.
func NewVerifier(users UserStore, hasher PasswordHasher, codec *token.Codec, maxPayload int) (*Verifier, error) {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	decoy, err := hasher.Hash("decoy-password-never-matches")
	if err != nil {
		return nil, fmt.Errorf("credential: prepare decoy hash: %w", err)
	}
	return &Verifier{
		users:      users,
		hasher:     hasher,
		codec:      codec,
		maxPayload: maxPayload,
		decoy:      decoy,
	}, nil
}

// Authenticate returns a fresh token for the user with the given email and password.
// Unknown email and wrong password both yield an *AuthError.
func (v *Verifier) Authenticate(ctx context.Context, email, password string) (string, error) {
	u, err := v.users.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}
	if u == nil {
		v.hasher.Verify(password, v.decoy)
		return "", &AuthError{Kind: NotFound}
	}
	if !v.hasher.Verify(password, u.PasswordHash) {
		return "", &AuthError{Kind: BadPassword}
	}
	return v.codec.Issue(u.ID, u.Email, u.Role)
}

// CreateUser registers a new USER account and returns its public profile.
func (v *Verifier) CreateUser(ctx context.Context, in NewUser) (*Profile, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	if len(raw) > v.maxPayload {
		return nil, ErrPayloadTooLarge
	}

	exists, err := v.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrDuplicateEmail
	}

	hash, err := v.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	saved, err := v.users.Save(ctx, &User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         token.RoleUser,
	})
	if err != nil {
		return nil, err
	}
	return ProfileOf(saved), nil
}
