package credential

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/userauth/internal/token"
)

type mapStore struct {
	mu      sync.Mutex
	byEmail map[string]*User
	saves   int
	failErr error
}

func newMapStore() *mapStore { return &mapStore{byEmail: map[string]*User{}} }

func (m *mapStore) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	u, ok := m.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *mapStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return false, m.failErr
	}
	_, ok := m.byEmail[email]
	return ok, nil
}

func (m *mapStore) Save(_ context.Context, u *User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok && u.ID == "" {
		return nil, ErrDuplicateEmail
	}
	cp := *u
	now := time.Now().UTC()
	cp.ID = uuid.NewString()
	cp.Created, cp.Updated = now, now
	m.byEmail[cp.Email] = &cp
	m.saves++
	out := cp
	return &out, nil
}

func newTestVerifier(t *testing.T, store UserStore) (*Verifier, *token.Codec) {
	t.Helper()
	codec, err := token.NewCodec([]byte("verifier-test-secret-verifier"), time.Hour)
	require.NoError(t, err)
	v, err := NewVerifier(store, BcryptHasher{Cost: bcrypt.MinCost}, codec, 0)
	require.NoError(t, err)
	return v, codec
}

func TestCreateUserThenAuthenticate(t *testing.T) {
	store := newMapStore()
	v, codec := newTestVerifier(t, store)
	ctx := context.Background()

	p, err := v.CreateUser(ctx, NewUser{Name: "Ada", Email: "ada@example.com", Password: "password123"})
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	require.Equal(t, "Ada", p.Name)
	require.Equal(t, token.RoleUser, p.Role)
	require.False(t, p.Created.IsZero())
	require.NotEqual(t, "password123", store.byEmail["ada@example.com"].PasswordHash)

	tok, err := v.Authenticate(ctx, "ada@example.com", "password123")
	require.NoError(t, err)

	claims, err := codec.Decode(tok)
	require.NoError(t, err)
	require.Equal(t, p.ID, claims.Subject)
	require.Equal(t, "ada@example.com", claims.Email)
	require.Equal(t, token.RoleUser, claims.Role)
}

func TestAuthenticateFailuresLookAlike(t *testing.T) {
	store := newMapStore()
	v, _ := newTestVerifier(t, store)
	ctx := context.Background()
	_, err := v.CreateUser(ctx, NewUser{Name: "Ada", Email: "ada@example.com", Password: "password123"})
	require.NoError(t, err)

	_, wrongPass := v.Authenticate(ctx, "ada@example.com", "nope-nope")
	_, unknown := v.Authenticate(ctx, "ghost@example.com", "password123")

	var a, b *AuthError
	require.True(t, errors.As(wrongPass, &a))
	require.True(t, errors.As(unknown, &b))
	require.Equal(t, BadPassword, a.Kind)
	require.Equal(t, NotFound, b.Kind)
	require.Equal(t, wrongPass.Error(), unknown.Error())
	require.Equal(t, InvalidCredentialsMessage, unknown.Error())
}

func TestAuthenticatePropagatesStoreFailure(t *testing.T) {
	store := newMapStore()
	v, _ := newTestVerifier(t, store)
	boom := errors.New("store down")
	store.failErr = boom

	_, err := v.Authenticate(context.Background(), "ada@example.com", "password123")
	require.ErrorIs(t, err, boom)

	var authErr *AuthError
	require.False(t, errors.As(err, &authErr))
}

func TestCreateUserDuplicateEmailLeavesOriginal(t *testing.T) {
	store := newMapStore()
	v, _ := newTestVerifier(t, store)
	ctx := context.Background()

	first, err := v.CreateUser(ctx, NewUser{Name: "First", Email: "dup@example.com", Password: "password123"})
	require.NoError(t, err)
	before := *store.byEmail["dup@example.com"]

	_, err = v.CreateUser(ctx, NewUser{Name: "Second", Email: "dup@example.com", Password: "different-pass"})
	require.ErrorIs(t, err, ErrDuplicateEmail)

	after := store.byEmail["dup@example.com"]
	require.Equal(t, before, *after)
	require.Equal(t, first.ID, after.ID)
	require.Equal(t, 1, store.saves)
}

func TestCreateUserPayloadTooLarge(t *testing.T) {
	store := newMapStore()
	codec, err := token.NewCodec([]byte("verifier-test-secret-verifier"), time.Hour)
	require.NoError(t, err)
	v, err := NewVerifier(store, BcryptHasher{Cost: bcrypt.MinCost}, codec, 128)
	require.NoError(t, err)

	_, err = v.CreateUser(context.Background(), NewUser{
		Name:     strings.Repeat("n", 200),
		Email:    "big@example.com",
		Password: "password123",
	})
	require.ErrorIs(t, err, ErrPayloadTooLarge)
	require.Zero(t, store.saves)
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	require.True(t, h.Verify("s3cret-pass", hash))
	require.False(t, h.Verify("s3cret-pasS", hash))
	require.False(t, h.Verify("s3cret-pass", "not-a-hash"))

	again, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	require.NotEqual(t, hash, again, "hashes must be salted")
}

func TestBcryptHasherLongPasswords(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	long := strings.Repeat("p", 255)

	hash, err := h.Hash(long)
	require.NoError(t, err)
	require.True(t, h.Verify(long, hash))

	// differing only past byte 72 must not verify
	require.False(t, h.Verify(long[:254]+"q", hash))
	require.False(t, h.Verify(long[:72], hash))
}
