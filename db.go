package main

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/example/userauth/internal/credential"
	"github.com/example/userauth/internal/token"
)

var errUserNotFound = errors.New("user not found")

// DB is the user store behind the HTTP layer. FindByEmail, ExistsByEmail and Save serve the
// credential verifier; the rest serve the user endpoints.
type DB interface {
	credential.UserStore
	Init() error
	// GetUserByID returns nil, nil when the id is unknown.
	GetUserByID(ctx context.Context, id string) (*credential.User, error)
	ListUsers(ctx context.Context, offset, limit int) ([]*credential.User, error)
	// DeleteUser reports whether a user was removed.
	DeleteUser(ctx context.Context, id string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

func now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// Memory DB
type MemDB struct {
	mu      sync.RWMutex
	users   map[string]*credential.User
	byEmail map[string]string
}

func NewMemoryDB() *MemDB {
	return &MemDB{users: map[string]*credential.User{}, byEmail: map[string]string{}}
}

func (m *MemDB) Init() error { return nil }

func (m *MemDB) FindByEmail(_ context.Context, email string) (*credential.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[email]
	if !ok {
		return nil, nil
	}
	u := *m.users[id]
	return &u, nil
}

func (m *MemDB) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byEmail[email]
	return ok, nil
}

func (m *MemDB) Save(_ context.Context, u *credential.User) (*credential.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := *u
	if saved.ID == "" {
		if _, taken := m.byEmail[saved.Email]; taken {
			return nil, credential.ErrDuplicateEmail
		}
		saved.ID = uuid.NewString()
		saved.Created = now()
		saved.Updated = saved.Created
	} else {
		old, ok := m.users[saved.ID]
		if !ok {
			return nil, errUserNotFound
		}
		if owner, taken := m.byEmail[saved.Email]; taken && owner != saved.ID {
			return nil, credential.ErrDuplicateEmail
		}
		delete(m.byEmail, old.Email)
		saved.Created = old.Created
		saved.Updated = now()
	}
	m.users[saved.ID] = &saved
	m.byEmail[saved.Email] = saved.ID
	out := saved
	return &out, nil
}

func (m *MemDB) GetUserByID(_ context.Context, id string) (*credential.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

func (m *MemDB) ListUsers(_ context.Context, offset, limit int) ([]*credential.User, error) {
	m.mu.RLock()
	all := make([]*credential.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		all = append(all, &cp)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Created.Equal(all[j].Created) {
			return all[i].ID < all[j].ID
		}
		return all[i].Created.Before(all[j].Created)
	})
	if offset >= len(all) {
		return []*credential.User{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *MemDB) DeleteUser(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return false, nil
	}
	delete(m.byEmail, u.Email)
	delete(m.users, id)
	return true, nil
}

func (m *MemDB) Ping(context.Context) error { return nil }
func (m *MemDB) Close() error               { return nil }

// SQLite DB
type SQLiteDB struct {
	db   *sql.DB
	path string
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &SQLiteDB{db: d, path: path}
	if err := s.Init(); err != nil {
		d.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteDB) Init() error {
	queries := []string{
		`PRAGMA busy_timeout = 5000;`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS users_created_at_idx ON users(created_at, id);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// sqliteTime has a fixed width so that text ordering matches time ordering.
const sqliteTime = "2006-01-02T15:04:05.000000Z07:00"

const sqliteUserColumns = `id,name,email,password,role,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSQLiteUser(row rowScanner) (*credential.User, error) {
	var u credential.User
	var role, created, updated string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &created, &updated); err != nil {
		return nil, err
	}
	u.Role = token.Role(role)
	var err error
	if u.Created, err = time.Parse(sqliteTime, created); err != nil {
		return nil, err
	}
	if u.Updated, err = time.Parse(sqliteTime, updated); err != nil {
		return nil, err
	}
	return &u, nil
}

func isSQLiteUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteDB) FindByEmail(ctx context.Context, email string) (*credential.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE email = ?`, email)
	u, err := scanSQLiteUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (s *SQLiteDB) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE email = ?`, email).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteDB) Save(ctx context.Context, u *credential.User) (*credential.User, error) {
	saved := *u
	ts := now()
	if saved.ID == "" {
		saved.ID = uuid.NewString()
		saved.Created, saved.Updated = ts, ts
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO users(`+sqliteUserColumns+`) VALUES(?,?,?,?,?,?,?)`,
			saved.ID, saved.Name, saved.Email, saved.PasswordHash, string(saved.Role),
			saved.Created.Format(sqliteTime), saved.Updated.Format(sqliteTime))
		if isSQLiteUniqueViolation(err) {
			return nil, credential.ErrDuplicateEmail
		}
		if err != nil {
			return nil, err
		}
		return &saved, nil
	}

	saved.Updated = ts
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, password = ?, role = ?, updated_at = ? WHERE id = ?`,
		saved.Name, saved.Email, saved.PasswordHash, string(saved.Role), saved.Updated.Format(sqliteTime), saved.ID)
	if isSQLiteUniqueViolation(err) {
		return nil, credential.ErrDuplicateEmail
	}
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, errUserNotFound
	}
	return s.GetUserByID(ctx, saved.ID)
}

func (s *SQLiteDB) GetUserByID(ctx context.Context, id string) (*credential.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id)
	u, err := scanSQLiteUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (s *SQLiteDB) ListUsers(ctx context.Context, offset, limit int) ([]*credential.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteUserColumns+` FROM users ORDER BY created_at, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []*credential.User{}
	for rows.Next() {
		u, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLiteDB) DeleteUser(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *SQLiteDB) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *SQLiteDB) Close() error                   { return s.db.Close() }
