// Package admin applies action-discriminated mutations to the configuration
// document. Every mutation loads the document, applies one action to a
// working copy, and saves the copy only if the whole action succeeded, so a
// rejected action never leaves a partial write behind.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/naseaoi/IceTV/internal/cache"
	"github.com/naseaoi/IceTV/internal/models"
	"github.com/naseaoi/IceTV/internal/store"
)

// Mutation errors. The HTTP layer maps these to status codes; everything
// else surfaces as a 500.
var (
	ErrInvalid       = errors.New("invalid request")
	ErrNotFound      = errors.New("entry not found")
	ErrKeyExists     = errors.New("key already exists")
	ErrConfigOrigin  = errors.New("entries from the config file cannot be modified this way")
	ErrOrderConflict = errors.New("order does not match the stored key set")
	ErrPermission    = errors.New("permission denied")
	ErrUnknownAction = errors.New("unknown action")
	ErrBusy          = errors.New("the same action is already in flight")
)

const mutationLockTTL = 30 * time.Second

// Service mediates all writes to the configuration document.
type Service struct {
	store store.Store
	rds   *cache.Redis // nil when Redis is not configured
	mu    sync.Mutex   // in-process fallback when rds is nil
	owner string
}

// NewService creates a Service. rds may be nil; the per-action mutation
// lock then falls back to a process-local mutex.
func NewService(s store.Store, rds *cache.Redis, ownerUsername string) *Service {
	return &Service{store: s, rds: rds, owner: ownerUsername}
}

// Owner returns the environment-defined owner username.
func (s *Service) Owner() string {
	return s.owner
}

// Config returns the current document, falling back to the default
// document before the first save.
func (s *Service) Config(ctx context.Context) (*models.AdminConfig, error) {
	cfg, err := s.store.GetConfig(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return models.DefaultAdminConfig(), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Bootstrap seeds the document on first start. When rawConfigFile is
// non-empty it is applied as the subscription file, populating the
// config-origin source lists.
func (s *Service) Bootstrap(ctx context.Context, rawConfigFile string) error {
	_, err := s.store.GetConfig(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	cfg := models.DefaultAdminConfig()
	if rawConfigFile != "" {
		cfg.ConfigFile = rawConfigFile
		if err := applyConfigFile(cfg, rawConfigFile); err != nil {
			return fmt.Errorf("bootstrap config file: %w", err)
		}
	}
	return s.store.SaveConfig(ctx, cfg)
}

// Reset rebuilds the document from defaults plus the stored subscription
// file. User accounts and groups survive a reset so administrators are not
// locked out of a freshly reset instance.
func (s *Service) Reset(ctx context.Context) error {
	return s.mutate(ctx, "config", "reset", func(cfg *models.AdminConfig) error {
		fresh := models.DefaultAdminConfig()
		fresh.ConfigFile = cfg.ConfigFile
		fresh.UserConfig = cfg.UserConfig
		if cfg.ConfigFile != "" {
			if err := applyConfigFile(fresh, cfg.ConfigFile); err != nil {
				return err
			}
		}
		*cfg = *fresh
		return nil
	})
}

// SetConfigFile stores a new subscription file and reseeds the
// config-origin entries from it. Owner-only at the HTTP layer.
func (s *Service) SetConfigFile(ctx context.Context, raw string) error {
	if raw != "" {
		if !json.Valid([]byte(raw)) {
			return fmt.Errorf("%w: config file is not valid JSON", ErrInvalid)
		}
	}
	return s.mutate(ctx, "config", "config_file", func(cfg *models.AdminConfig) error {
		cfg.ConfigFile = raw
		if raw == "" {
			cfg.SourceConfig = dropConfigSources(cfg.SourceConfig)
			cfg.LiveConfig = dropConfigSources(cfg.LiveConfig)
			cfg.CustomCategories = dropConfigCategories(cfg.CustomCategories)
			return nil
		}
		return applyConfigFile(cfg, raw)
	})
}

// SetSiteConfig replaces the site settings wholesale.
func (s *Service) SetSiteConfig(ctx context.Context, site models.SiteConfig) error {
	if site.SiteName == "" {
		return fmt.Errorf("%w: site_name must not be empty", ErrInvalid)
	}
	return s.mutate(ctx, "site", "update", func(cfg *models.AdminConfig) error {
		cfg.SiteConfig = site
		return nil
	})
}

// mutate runs fn against a working copy of the document under the
// per-action lock and persists the copy only when fn succeeds.
func (s *Service) mutate(ctx context.Context, resource, action string, fn func(*models.AdminConfig) error) error {
	unlock, err := s.lock(ctx, resource, action)
	if err != nil {
		return err
	}
	defer unlock()

	cfg, err := s.Config(ctx)
	if err != nil {
		return err
	}
	work := cfg.Clone()
	if err := fn(work); err != nil {
		return err
	}
	return s.store.SaveConfig(ctx, work)
}

// lock acquires the mutation lock for one (resource, action) pair. With
// Redis configured the lock is shared across instances; otherwise a
// process-local mutex serialises all mutations.
func (s *Service) lock(ctx context.Context, resource, action string) (func(), error) {
	if s.rds == nil {
		s.mu.Lock()
		return s.mu.Unlock, nil
	}
	unlock, err := cache.TryLock(ctx, s.rds, cache.MutationLockKey(resource, action), mutationLockTTL)
	if errors.Is(err, cache.ErrLocked) {
		return nil, ErrBusy
	}
	if err != nil {
		return nil, err
	}
	return unlock, nil
}
