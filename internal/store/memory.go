package store

import (
	"context"
	"sync"

	"github.com/naseaoi/IceTV/internal/models"
)

// Memory is a process-local Store for the "memory" storage mode and for
// tests. The document survives only for the lifetime of the process, and
// the credential operations report ErrAccountsUnsupported: in this mode
// there are no persistent accounts, so register and change-password are
// rejected at the API layer.
type Memory struct {
	mu  sync.RWMutex
	cfg *models.AdminConfig
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) GetConfig(_ context.Context) (*models.AdminConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cfg == nil {
		return nil, ErrNotFound
	}
	return m.cfg.Clone(), nil
}

func (m *Memory) SaveConfig(_ context.Context, cfg *models.AdminConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg.Clone()
	return nil
}

func (m *Memory) CreateUser(context.Context, string, string) error {
	return ErrAccountsUnsupported
}

func (m *Memory) VerifyUser(context.Context, string, string) error {
	return ErrAccountsUnsupported
}

func (m *Memory) ChangePassword(context.Context, string, string) error {
	return ErrAccountsUnsupported
}

func (m *Memory) DeleteUser(context.Context, string) error {
	// Nothing to delete; document cleanup happens in the admin service.
	return nil
}

func (m *Memory) UserExists(context.Context, string) (bool, error) {
	return false, nil
}
