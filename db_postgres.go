package main

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/example/userauth/internal/credential"
	"github.com/example/userauth/internal/token"
)

const pgUniqueViolation = "23505"

type PostgresDB struct {
	db  *sql.DB
	dsn string
}

func NewPostgresDB(dsn string) (*PostgresDB, error) {
	d, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	p := &PostgresDB{db: d, dsn: dsn}
	if err := p.Init(); err != nil {
		d.Close()
		return nil, err
	}
	return p, nil
}

func (p *PostgresDB) Init() error {
	// rely on migrations to create tables; just verify connectivity
	return p.db.Ping()
}

const pgUserColumns = `id,name,email,password,role,created_at,updated_at`

func scanPostgresUser(row rowScanner) (*credential.User, error) {
	var u credential.User
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.Created, &u.Updated); err != nil {
		return nil, err
	}
	u.Role = token.Role(role)
	u.Created = u.Created.UTC()
	u.Updated = u.Updated.UTC()
	return &u, nil
}

func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

func (p *PostgresDB) FindByEmail(ctx context.Context, email string) (*credential.User, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+pgUserColumns+` FROM users WHERE email = $1`, email)
	u, err := scanPostgresUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (p *PostgresDB) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

func (p *PostgresDB) Save(ctx context.Context, u *credential.User) (*credential.User, error) {
	var row *sql.Row
	if u.ID == "" {
		row = p.db.QueryRowContext(ctx,
			`INSERT INTO users(name,email,password,role,created_at,updated_at) VALUES($1,$2,$3,$4,now(),now()) RETURNING `+pgUserColumns,
			u.Name, u.Email, u.PasswordHash, string(u.Role))
	} else {
		row = p.db.QueryRowContext(ctx,
			`UPDATE users SET name = $1, email = $2, password = $3, role = $4, updated_at = now() WHERE id = $5 RETURNING `+pgUserColumns,
			u.Name, u.Email, u.PasswordHash, string(u.Role), u.ID)
	}
	saved, err := scanPostgresUser(row)
	switch {
	case isPostgresUniqueViolation(err):
		return nil, credential.ErrDuplicateEmail
	case errors.Is(err, sql.ErrNoRows):
		return nil, errUserNotFound
	case err != nil:
		return nil, err
	}
	return saved, nil
}

func (p *PostgresDB) GetUserByID(ctx context.Context, id string) (*credential.User, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+pgUserColumns+` FROM users WHERE id = $1`, id)
	u, err := scanPostgresUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (p *PostgresDB) ListUsers(ctx context.Context, offset, limit int) ([]*credential.User, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+pgUserColumns+` FROM users ORDER BY created_at, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []*credential.User{}
	for rows.Next() {
		u, err := scanPostgresUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (p *PostgresDB) DeleteUser(ctx context.Context, id string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (p *PostgresDB) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }
func (p *PostgresDB) Close() error                   { return p.db.Close() }
