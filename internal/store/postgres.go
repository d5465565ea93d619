package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/naseaoi/IceTV/internal/models"
)

// Postgres implements Store using PostgreSQL. The configuration document is
// kept as a single JSONB row; user credentials live in their own table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close
// when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// GetConfig returns the stored configuration document.
func (p *Postgres) GetConfig(ctx context.Context) (*models.AdminConfig, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT doc FROM admin_config WHERE id = 1`).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetConfig: %w", err)
	}
	var cfg models.AdminConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("GetConfig unmarshal: %w", err)
	}
	return &cfg, nil
}

// SaveConfig replaces the stored configuration document (last write wins).
func (p *Postgres) SaveConfig(ctx context.Context, cfg *models.AdminConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("SaveConfig marshal: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO admin_config (id, doc, updated_at) VALUES (1, $1, NOW())
		 ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`,
		raw,
	)
	if err != nil {
		return fmt.Errorf("SaveConfig: %w", err)
	}
	return nil
}

// CreateUser registers a new account with a bcrypt-hashed password.
func (p *Postgres) CreateUser(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("CreateUser hash: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2)`,
		username, string(hash),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return ErrUserExists
		}
		return fmt.Errorf("CreateUser: %w", err)
	}
	return nil
}

// VerifyUser checks the password against the stored bcrypt hash.
func (p *Postgres) VerifyUser(ctx context.Context, username, password string) error {
	var hash string
	err := p.pool.QueryRow(ctx,
		`SELECT password_hash FROM users WHERE username = $1`, username,
	).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("VerifyUser: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrBadCredentials
	}
	return nil
}

// ChangePassword replaces the account's password hash.
func (p *Postgres) ChangePassword(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("ChangePassword hash: %w", err)
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE username = $1`,
		username, string(hash),
	)
	if err != nil {
		return fmt.Errorf("ChangePassword: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes the account's credential row.
func (p *Postgres) DeleteUser(ctx context.Context, username string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("DeleteUser: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UserExists reports whether the account exists.
func (p *Postgres) UserExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("UserExists: %w", err)
	}
	return exists, nil
}
