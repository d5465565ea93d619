package store

import (
	"context"
	"errors"

	"github.com/naseaoi/IceTV/internal/models"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrUserExists is returned by CreateUser when the username is taken.
var ErrUserExists = errors.New("user already exists")

// ErrBadCredentials is returned by VerifyUser on a password mismatch.
var ErrBadCredentials = errors.New("bad credentials")

// ErrAccountsUnsupported is returned by the credential operations of stores
// that keep no persistent accounts (memory mode).
var ErrAccountsUnsupported = errors.New("persistent accounts are not supported in this storage mode")

// Store defines persistence for the configuration document and for user
// credentials. The document is read and written as one unit; last write
// wins.
type Store interface {
	// GetConfig returns the configuration document, or ErrNotFound before
	// the first save.
	GetConfig(ctx context.Context) (*models.AdminConfig, error)
	// SaveConfig replaces the stored configuration document.
	SaveConfig(ctx context.Context, cfg *models.AdminConfig) error

	// CreateUser registers a new account. Returns ErrUserExists if taken.
	CreateUser(ctx context.Context, username, password string) error
	// VerifyUser checks credentials. Returns ErrNotFound for an unknown
	// username and ErrBadCredentials for a wrong password.
	VerifyUser(ctx context.Context, username, password string) error
	// ChangePassword replaces the account's password.
	ChangePassword(ctx context.Context, username, password string) error
	// DeleteUser removes the account's credentials.
	DeleteUser(ctx context.Context, username string) error
	// UserExists reports whether the account exists.
	UserExists(ctx context.Context, username string) (bool, error)
}
