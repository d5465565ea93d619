package store

import (
	"context"
	"log"
	"time"

	"github.com/naseaoi/IceTV/internal/cache"
	"github.com/naseaoi/IceTV/internal/models"
)

const (
	ttlConfig = 2 * time.Minute

	keyConfig = "icetv:admin_config"
)

// Cached wraps a Store with a Redis caching layer for the configuration
// document. Every write invalidates the cached document, so the next read
// always refetches the authoritative copy.
type Cached struct {
	inner Store
	cache *cache.Redis
}

// NewCached creates a Cached store that wraps inner with Redis caching.
func NewCached(inner Store, c *cache.Redis) *Cached {
	return &Cached{inner: inner, cache: c}
}

func (c *Cached) GetConfig(ctx context.Context) (*models.AdminConfig, error) {
	if v, err := cache.Get[models.AdminConfig](ctx, c.cache, keyConfig); err == nil {
		return &v, nil
	}
	cfg, err := c.inner.GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, keyConfig, cfg, ttlConfig); err != nil {
		log.Printf("cache: set %s: %v", keyConfig, err)
	}
	return cfg, nil
}

func (c *Cached) SaveConfig(ctx context.Context, cfg *models.AdminConfig) error {
	if err := c.inner.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	c.invalidate(ctx, keyConfig)
	return nil
}

// --- credential passthrough (never cached) ---

func (c *Cached) CreateUser(ctx context.Context, username, password string) error {
	return c.inner.CreateUser(ctx, username, password)
}

func (c *Cached) VerifyUser(ctx context.Context, username, password string) error {
	return c.inner.VerifyUser(ctx, username, password)
}

func (c *Cached) ChangePassword(ctx context.Context, username, password string) error {
	return c.inner.ChangePassword(ctx, username, password)
}

func (c *Cached) DeleteUser(ctx context.Context, username string) error {
	return c.inner.DeleteUser(ctx, username)
}

func (c *Cached) UserExists(ctx context.Context, username string) (bool, error) {
	return c.inner.UserExists(ctx, username)
}

// invalidate deletes exact cache keys, logging any errors.
func (c *Cached) invalidate(ctx context.Context, keys ...string) {
	if err := cache.Del(ctx, c.cache, keys...); err != nil {
		log.Printf("cache: del %v: %v", keys, err)
	}
}
